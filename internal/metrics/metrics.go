/*
 *
 * Copyright 2025 gRPC authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

// Package metrics exposes the osrm-datastore publish cycle to Prometheus:
// how many publishes ran, how long sizing and population took, how large
// the published region was, and which region is currently live.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "osrm_datastore"

var (
	// PublishTotal counts completed publish runs, labeled by outcome.
	PublishTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "publish_total",
		Help:      "Total number of publish runs, by outcome.",
	}, []string{"outcome"})

	// PublishDuration observes wall-clock time spent sizing and
	// populating a region, by phase.
	PublishDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "publish_duration_seconds",
		Help:      "Time spent in each phase of a publish run.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"phase"})

	// RegionBytes is the size of the most recently published region.
	RegionBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "region_bytes",
		Help:      "Size in bytes of the most recently published region.",
	})

	// CurrentRegion reports which of the two region slots (1 or 2) is
	// currently live, or 0 if nothing has been published yet.
	CurrentRegion = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "current_region",
		Help:      "Which region slot (1 or 2) clients should currently read, 0 if none.",
	})

	// CurrentTimestamp is the monotonically increasing publish counter of
	// the currently live region.
	CurrentTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "current_timestamp",
		Help:      "Timestamp of the currently live region.",
	})

	// MonitorStuckTotal counts how many times the Monitor mutex had to be
	// force-recovered after a bounded wait timed out.
	MonitorStuckTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "monitor_stuck_total",
		Help:      "Number of times the monitor lock was force-recovered after a stuck wait.",
	})
)

// Registry bundles every collector this package defines, for a single
// MustRegister call at startup.
func Registry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(PublishTotal, PublishDuration, RegionBytes, CurrentRegion, CurrentTimestamp, MonitorStuckTotal)
	return r
}
