// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package metrics exposes the crawl core's observable state as
// Prometheus gauges and counters. It implements progress.Recorder as
// a push feed from the Progress Tracker and separately tracks index
// storage statistics, which are polled rather than pushed.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gizzahub/gzh-crawl-core/internal/model"
)

// Collector is a progress.Recorder that mirrors every snapshot
// mutation into per-repository gauges, plus a small set of
// process-wide gauges for index storage and active-crawl count.
type Collector struct {
	filesProcessed  *prometheus.GaugeVec
	filesIndexed    *prometheus.GaugeVec
	progressPercent *prometheus.GaugeVec
	statusCode      *prometheus.GaugeVec
	crawlDuration   *prometheus.HistogramVec
	crawlsTotal     *prometheus.CounterVec

	crawlsActive  prometheus.Gauge
	documentCount prometheus.Gauge
	indexSizeMB   prometheus.Gauge

	active map[string]struct{}
	mu     sync.Mutex
}

// statusCodes maps each progress status to a small integer so a
// single gauge can be graphed; active statuses sort below terminal
// ones so "is this stuck mid-crawl" reads directly off the value.
var statusCodes = map[model.ProgressStatus]float64{
	model.StatusStarting:   1,
	model.StatusCloning:    2,
	model.StatusProcessing: 3,
	model.StatusIndexing:   4,
	model.StatusCompleted:  5,
	model.StatusFailed:     6,
	model.StatusCancelled:  7,
}

// NewCollector builds and registers every metric against reg. Pass
// prometheus.DefaultRegisterer to expose them on a process-wide
// promhttp.Handler() endpoint.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		filesProcessed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gzcrawl_files_processed",
			Help: "Files processed by the current or most recent crawl, by repository.",
		}, []string{"repository"}),
		filesIndexed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gzcrawl_files_indexed",
			Help: "Files successfully indexed by the current or most recent crawl, by repository.",
		}, []string{"repository"}),
		progressPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gzcrawl_progress_percent",
			Help: "Derived progress percentage (0-100) of the current or most recent crawl, by repository.",
		}, []string{"repository"}),
		statusCode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gzcrawl_crawl_status",
			Help: "Crawl status as a numeric code (1=STARTING 2=CLONING 3=PROCESSING 4=INDEXING 5=COMPLETED 6=FAILED 7=CANCELLED), by repository.",
		}, []string{"repository"}),
		crawlDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gzcrawl_crawl_duration_seconds",
			Help:    "Wall-clock duration of a completed crawl, by repository and outcome.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"repository", "status"}),
		crawlsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gzcrawl_crawls_total",
			Help: "Completed crawls, partitioned by repository and outcome.",
		}, []string{"repository", "status"}),
		crawlsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gzcrawl_crawls_active",
			Help: "Number of repositories with a crawl currently in a non-terminal status.",
		}),
		documentCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gzcrawl_index_documents",
			Help: "Document count in the search index as of the most recent commit.",
		}),
		indexSizeMB: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gzcrawl_index_size_mb",
			Help: "Search index size on disk, in megabytes.",
		}),
		active: make(map[string]struct{}),
	}

	reg.MustRegister(
		c.filesProcessed, c.filesIndexed, c.progressPercent, c.statusCode,
		c.crawlDuration, c.crawlsTotal, c.crawlsActive, c.documentCount, c.indexSizeMB,
	)
	return c
}

// Observe implements progress.Recorder.
func (c *Collector) Observe(snp model.ProgressSnapshot) {
	repo := snp.RepositoryID

	c.filesProcessed.WithLabelValues(repo).Set(float64(snp.FilesProcessed))
	c.filesIndexed.WithLabelValues(repo).Set(float64(snp.FilesIndexed))
	c.progressPercent.WithLabelValues(repo).Set(snp.Percentage())
	if code, ok := statusCodes[snp.Status]; ok {
		c.statusCode.WithLabelValues(repo).Set(code)
	}

	c.mu.Lock()
	_, wasActive := c.active[repo]
	switch {
	case snp.Status.IsActive() && !wasActive:
		c.active[repo] = struct{}{}
		c.crawlsActive.Inc()
	case !snp.Status.IsActive() && wasActive:
		delete(c.active, repo)
		c.crawlsActive.Dec()
	}
	c.mu.Unlock()

	if snp.Status.IsTerminal() && snp.CompletedAt != nil {
		status := string(snp.Status)
		c.crawlsTotal.WithLabelValues(repo, status).Inc()
		c.crawlDuration.WithLabelValues(repo, status).Observe(snp.CompletedAt.Sub(snp.StartedAt).Seconds())
	}
}

// SetIndexStats records the search index's document count and
// on-disk size, polled independently from the progress push feed.
func (c *Collector) SetIndexStats(documentCount int, indexSizeMB float64) {
	c.documentCount.Set(float64(documentCount))
	c.indexSizeMB.Set(indexSizeMB)
}

// pollInterval is the default cadence cmd/gzcrawl uses when polling
// index stats into a Collector.
const pollInterval = 30 * time.Second

// PollInterval returns the default cadence for SetIndexStats polling.
func PollInterval() time.Duration { return pollInterval }
