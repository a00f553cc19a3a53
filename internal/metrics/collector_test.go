// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/gizzahub/gzh-crawl-core/internal/model"
)

func gaugeValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := vec.WithLabelValues(labels...).Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestObserveSetsPerRepositoryGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	total := 10
	c.Observe(model.ProgressSnapshot{
		RepositoryID:   "repo-1",
		Status:         model.StatusProcessing,
		FilesProcessed: 4,
		FilesIndexed:   3,
		TotalFiles:     &total,
	})

	if got := gaugeValue(t, c.filesProcessed, "repo-1"); got != 4 {
		t.Fatalf("filesProcessed = %v, want 4", got)
	}
	if got := gaugeValue(t, c.filesIndexed, "repo-1"); got != 3 {
		t.Fatalf("filesIndexed = %v, want 3", got)
	}
	if got := gaugeValue(t, c.progressPercent, "repo-1"); got != 40 {
		t.Fatalf("progressPercent = %v, want 40", got)
	}
	if got := gaugeValue(t, c.statusCode, "repo-1"); got != 3 {
		t.Fatalf("statusCode = %v, want 3 (PROCESSING)", got)
	}
}

func TestActiveCrawlsGaugeTracksTransitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.Observe(model.ProgressSnapshot{RepositoryID: "repo-1", Status: model.StatusStarting})
	c.Observe(model.ProgressSnapshot{RepositoryID: "repo-2", Status: model.StatusCloning})

	m := &dto.Metric{}
	if err := c.crawlsActive.Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := m.GetGauge().GetValue(); got != 2 {
		t.Fatalf("crawlsActive = %v, want 2", got)
	}

	completedAt := time.Now()
	c.Observe(model.ProgressSnapshot{
		RepositoryID: "repo-1",
		Status:       model.StatusCompleted,
		StartedAt:    completedAt.Add(-time.Second),
		CompletedAt:  &completedAt,
	})

	m = &dto.Metric{}
	if err := c.crawlsActive.Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := m.GetGauge().GetValue(); got != 1 {
		t.Fatalf("crawlsActive after one completion = %v, want 1", got)
	}
}

func TestTerminalObservationIncrementsCrawlsTotal(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	completedAt := time.Now()
	c.Observe(model.ProgressSnapshot{
		RepositoryID: "repo-1",
		Status:       model.StatusCompleted,
		StartedAt:    completedAt.Add(-5 * time.Second),
		CompletedAt:  &completedAt,
	})

	m := &dto.Metric{}
	if err := c.crawlsTotal.WithLabelValues("repo-1", "COMPLETED").Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Fatalf("crawlsTotal = %v, want 1", got)
	}
}

func TestSetIndexStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetIndexStats(42, 12.5)

	m := &dto.Metric{}
	if err := c.documentCount.Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := m.GetGauge().GetValue(); got != 42 {
		t.Fatalf("documentCount = %v, want 42", got)
	}
}
