// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package model

import "time"

// ProgressStatus is the lifecycle state of one repository's crawl, as
// observed through the Progress Tracker.
type ProgressStatus string

const (
	StatusStarting   ProgressStatus = "STARTING"
	StatusCloning    ProgressStatus = "CLONING"
	StatusProcessing ProgressStatus = "PROCESSING"
	StatusIndexing   ProgressStatus = "INDEXING"
	StatusCompleted  ProgressStatus = "COMPLETED"
	StatusFailed     ProgressStatus = "FAILED"
	StatusCancelled  ProgressStatus = "CANCELLED"
)

// IsActive reports whether status represents a still-running crawl.
func (s ProgressStatus) IsActive() bool {
	switch s {
	case StatusStarting, StatusCloning, StatusProcessing, StatusIndexing:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether status is one a crawl does not leave.
func (s ProgressStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// SubProjectSnapshot is the embedded hierarchical progress record for
// a GIT_MULTI crawl.
type SubProjectSnapshot struct {
	TotalSubProjects  int
	CurrentSubProject string
	CurrentTotalFiles int
	CurrentFilesDone  int
}

// ProgressSnapshot is the ephemeral, observable record of one
// repository's crawl. A retrieved snapshot is always a value copy;
// callers never see a reference into the tracker's internal state.
type ProgressSnapshot struct {
	RepositoryID string
	Status       ProgressStatus

	FilesProcessed int
	FilesIndexed   int
	TotalFiles     *int
	CurrentFile    string
	Error          string

	StartedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	SubProject *SubProjectSnapshot
}

// Percentage computes the derived progress percentage: clamp(100 *
// processed / total, 0, 100) when total is known and positive, 0
// otherwise. COMPLETED snapshots are forced to 100 by the tracker at
// the moment of transition, not by this formula.
func (p ProgressSnapshot) Percentage() float64 {
	if p.TotalFiles == nil || *p.TotalFiles <= 0 {
		return 0
	}
	pct := 100 * float64(p.FilesProcessed) / float64(*p.TotalFiles)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
