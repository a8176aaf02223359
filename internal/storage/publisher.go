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

package storage

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PublishResult summarizes one successful publish run, for logging and
// metrics.
type PublishResult struct {
	Region           RegionID
	Timestamp        uint32
	Bytes            uint64
	Features         FeatureSet
	SizingTook       time.Duration
	PopulateTook     time.Duration
	MonitorRecovered bool
}

// Publisher drives one end-to-end publish: pick the next region, size it,
// allocate it, populate it, then swap the Monitor to point readers at it
// and reclaim whatever was published before. It is the Go analogue of
// Storage::Run in the original implementation, broken into named steps
// instead of one function, and using a file lock plus the Monitor's own
// bounded-wait mutex instead of boost::interprocess primitives.
type Publisher struct {
	Paths          InputPaths
	Log            zerolog.Logger
	MaxWaitSeconds int
	DetachPoll     time.Duration
}

// NewPublisher returns a Publisher configured with sane defaults for
// MaxWaitSeconds and DetachPoll; callers typically only set Paths and Log.
func NewPublisher(paths InputPaths, log zerolog.Logger) *Publisher {
	return &Publisher{
		Paths:          paths,
		Log:            log,
		MaxWaitSeconds: 60,
		DetachPoll:     250 * time.Millisecond,
	}
}

// Run performs one publish cycle under the cross-process advisory lock
// described in filelock_unix.go, so two osrm-datastore invocations never
// race to pick the same next region.
func (p *Publisher) Run(ctx context.Context) (PublishResult, error) {
	var result PublishResult

	lock, err := TryAcquireDatastoreLock()
	if err != nil {
		return result, err
	}
	if lock == nil {
		p.Log.Warn().Msg("data update in progress, waiting...")
		lock, err = AcquireDatastoreLock()
		if err != nil {
			return result, err
		}
	}
	defer lock.Release()

	monitor, err := OpenMonitor()
	if err != nil {
		return result, err
	}
	defer func() {
		if monitor != nil {
			monitor.Close()
		}
	}()

	inUse, timestamp := monitor.Load()
	next := NextRegion(inUse)
	p.Log.Info().Stringer("in_use", inUse).Stringer("next", next).Msg("selected next region")

	if RegionExists(next) {
		p.Log.Warn().Stringer("region", next).Msg("removing stale region before publish")
		if err := p.removeStaleRegion(ctx, next); err != nil {
			return result, err
		}
	}

	var layout Layout
	sizeStart := time.Now()
	features, err := PopulateLayout(&layout, p.Paths)
	if err != nil {
		return result, err
	}
	result.SizingTook = time.Since(sizeStart)
	result.Features = features

	totalSize := SizeOfLayout() + layout.Size()
	region, err := CreateRegion(next, totalSize)
	if err != nil {
		return result, err
	}
	result.Bytes = totalSize

	populateStart := time.Now()
	mem := region.Ptr()
	copyLayoutHeader(&layout, mem)
	if err := PopulateData(&layout, mem[SizeOfLayout():], p.Paths, features); err != nil {
		region.Close()
		RemoveRegion(next)
		return result, err
	}
	result.PopulateTook = time.Since(populateStart)

	if err := region.Close(); err != nil {
		return result, err
	}

	newTimestamp := timestamp + 1
	swapped, recovered, err := p.swapMonitor(ctx, monitor, next, newTimestamp)
	if err != nil {
		return result, err
	}
	monitor = swapped
	result.Region = next
	result.Timestamp = newTimestamp
	result.MonitorRecovered = recovered

	// A recovered swap destroyed and recreated the monitor: whatever region
	// it used to point readers at can no longer be trusted as "in use", so
	// the spec skips old-region reclamation in that case (it resets
	// in_use to REGION_NONE rather than replaying it).
	if recovered {
		inUse = RegionNone
	}

	if inUse != RegionNone {
		if err := WaitForDetach(ctx, inUse, p.DetachPoll); err != nil {
			p.Log.Warn().Err(err).Stringer("region", inUse).Msg("timed out waiting for clients to detach")
			return result, err
		}
		if err := RemoveRegion(inUse); err != nil {
			return result, err
		}
	}

	return result, nil
}

// swapMonitor takes the Monitor's bounded-wait mutex, publishes the new
// region and timestamp, and releases it. A MonitorStuckError means the
// previous holder died without releasing the mutex; per spec.md's
// recovery pseudocode (Monitor.remove(); Monitor ← new Monitor({REGION_NONE,
// 0})) the stuck monitor is destroyed outright and a fresh one created,
// rather than having its lock word cleared in place. The returned *Monitor
// replaces the caller's — the one passed in may already be closed.
func (p *Publisher) swapMonitor(ctx context.Context, monitor *Monitor, region RegionID, timestamp uint32) (*Monitor, bool, error) {
	recovered := false
	err := monitor.Lock(ctx, p.MaxWaitSeconds)
	if err != nil {
		var stuck *MonitorStuckError
		if !asMonitorStuck(err, &stuck) {
			return monitor, recovered, err
		}
		p.Log.Error().Int("after_seconds", stuck.AfterSeconds).Msg("monitor stuck, destroying and recreating from REGION_NONE")
		if err := monitor.Remove(); err != nil {
			return monitor, recovered, err
		}
		fresh, err := CreateMonitor()
		if err != nil {
			return monitor, recovered, err
		}
		monitor = fresh
		recovered = true
		if err := monitor.Lock(ctx, p.MaxWaitSeconds); err != nil {
			return monitor, recovered, err
		}
	}
	defer monitor.Unlock()

	monitor.Store(region, timestamp)
	return monitor, recovered, nil
}

func asMonitorStuck(err error, target **MonitorStuckError) bool {
	if e, ok := err.(*MonitorStuckError); ok {
		*target = e
		return true
	}
	return false
}

// removeStaleRegion reclaims a region slot nothing should currently be
// attached to (a previous publisher run died between allocating it and
// ever publishing it). It waits briefly for detach as a safety margin
// before removing it, rather than assuming it is unattached.
func (p *Publisher) removeStaleRegion(ctx context.Context, id RegionID) error {
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = WaitForDetach(waitCtx, id, p.DetachPoll)
	return RemoveRegion(id)
}

// copyLayoutHeader writes a bitwise copy of layout to the first
// SizeOfLayout() bytes of mem, the way the original implementation copies
// its DataLayout object to the start of the shared memory block so a
// reader can later memcpy it back out and recompute every offset.
func copyLayoutHeader(layout *Layout, mem []byte) {
	src := layoutBytes(layout)
	copy(mem[:len(src)], src)
}
