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

// Command osrm-datastore loads a routing graph produced by an OSRM-style
// preprocessing pipeline into shared memory and publishes it for a
// separately-running query engine to pick up, swapping it atomically so
// in-flight queries never see a half-written graph.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/osrm-go/datastore/internal/config"
	"github.com/osrm-go/datastore/internal/metrics"
	"github.com/osrm-go/datastore/internal/storage"
)

var (
	flagConfigPath  string
	flagBase        string
	flagMaxWait     int
	flagMetricsAddr string
	flagLogLevel    string
	flagLogFormat   string
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "osrm-datastore [base]",
		Short: "Publish a routing graph into shared memory",
		Long: "osrm-datastore loads the .osrm.* files produced for a given base path " +
			"into a fresh shared memory region and atomically swaps the running query " +
			"engine over to it, reclaiming the previously published region once every " +
			"client has detached from it.",
		Args: cobra.MaximumNArgs(1),
		RunE: runPublish,
	}

	flags := cmd.Flags()
	flags.StringVar(&flagConfigPath, "config", "", "path to a YAML config file")
	flags.StringVar(&flagBase, "base", "", "base path of the .osrm.* input files")
	flags.IntVar(&flagMaxWait, "max-wait", 0, "seconds to wait for the monitor lock before forcing recovery (0 = use config/default)")
	flags.StringVar(&flagMetricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on, empty disables it")
	flags.StringVar(&flagLogLevel, "log-level", "", "trace, debug, info, warn, or error (empty = use config/default)")
	flags.StringVar(&flagLogFormat, "log-format", "", "console or json (empty = use config/default)")

	return cmd
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(flagConfigPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg, cmd, args)

	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(cfg)

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, log)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	paths := storage.InputPathsFromBase(cfg.Base)
	publisher := storage.NewPublisher(paths, log)
	publisher.MaxWaitSeconds = cfg.MaxWaitSeconds
	publisher.DetachPoll = cfg.DetachPollInterval

	start := time.Now()
	result, err := publisher.Run(ctx)
	if err != nil {
		metrics.PublishTotal.WithLabelValues("error").Inc()
		var stuck *storage.MonitorStuckError
		if errors.As(err, &stuck) {
			metrics.MonitorStuckTotal.Inc()
		}
		log.Error().Err(err).Msg("publish failed")
		return err
	}
	if result.MonitorRecovered {
		metrics.MonitorStuckTotal.Inc()
	}

	metrics.PublishTotal.WithLabelValues("ok").Inc()
	metrics.PublishDuration.WithLabelValues("sizing").Observe(result.SizingTook.Seconds())
	metrics.PublishDuration.WithLabelValues("populate").Observe(result.PopulateTook.Seconds())
	metrics.RegionBytes.Set(float64(result.Bytes))
	metrics.CurrentRegion.Set(float64(result.Region))
	metrics.CurrentTimestamp.Set(float64(result.Timestamp))

	log.Info().
		Stringer("region", result.Region).
		Uint32("timestamp", result.Timestamp).
		Uint64("bytes", result.Bytes).
		Dur("total", time.Since(start)).
		Msg("publish complete")
	return nil
}

func applyFlagOverrides(cfg *config.Config, cmd *cobra.Command, args []string) {
	if len(args) == 1 {
		cfg.Base = args[0]
	}
	if flagBase != "" {
		cfg.Base = flagBase
	}
	if flagMaxWait > 0 {
		cfg.MaxWaitSeconds = flagMaxWait
	}
	if flagMetricsAddr != "" {
		cfg.MetricsAddr = flagMetricsAddr
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var writer = os.Stderr
	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Logger()
	}
	return logger
}

func serveMetrics(addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	log.Info().Str("addr", addr).Msg("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
