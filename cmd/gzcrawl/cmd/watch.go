// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gizzahub/gzh-crawl-core/internal/fswatch"
	"github.com/gizzahub/gzh-crawl-core/internal/metrics"
	"github.com/gizzahub/gzh-crawl-core/internal/model"
)

var watchMetricsInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run as a long-lived daemon: scheduler workers, filesystem watches, and metrics",
	Long: `watch reloads every auto-scheduled repository into the cron
scheduler, starts an fsnotify watch for every FILESYSTEM descriptor
with watch_enabled, mirrors progress snapshots into Prometheus gauges,
and blocks until interrupted.

Quick Start:
  # Run the daemon, reloading whatever is currently in the state store
  gzcrawl watch`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchMetricsInterval, "metrics-interval", metrics.PollInterval(), "how often index size/document count gauges are refreshed")
}

func runWatch(c *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	a.Tracker.SetRecorder(collector)

	if swept, err := a.Crawler.CleanupAbandoned(time.Hour); err != nil {
		fmt.Fprintf(os.Stderr, "warning: abandonment sweep: %v\n", err)
	} else if swept > 0 {
		fmt.Printf("swept %d abandoned crawl(s) from a prior process\n", swept)
	}

	if err := a.Service.Scheduler.ReloadAll(a.Store.List()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: scheduler reload: %v\n", err)
	}

	fsWatcher, err := fswatch.New(a.Crawler, a.Logger)
	if err != nil {
		return fmt.Errorf("start filesystem watcher: %w", err)
	}
	defer fsWatcher.Close()

	watching := 0
	for _, d := range a.Store.List() {
		if d.Kind == model.KindFilesystem && d.Enabled && d.Schedule.WatchEnabled {
			if err := fsWatcher.Watch(d.ID, d.Origin, fswatch.DefaultDebounce); err != nil {
				fmt.Fprintf(os.Stderr, "warning: watch %s: %v\n", d.Name, err)
				continue
			}
			watching++
		}
	}

	fmt.Printf("scheduler workers reloaded; watching %d filesystem repositor(ies) for changes\n", watching)
	fmt.Println("Press Ctrl+C to stop...")

	ticker := time.NewTicker(watchMetricsInterval)
	defer ticker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-sigChan:
			fmt.Println("\nstopping watch...")
			return nil
		case <-ticker.C:
			collector.SetIndexStats(a.Writer.DocumentCount(), a.Writer.IndexSizeOnDiskMB())
		}
	}
}
