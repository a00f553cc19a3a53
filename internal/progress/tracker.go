// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package progress implements the Progress Tracker (C1): an in-memory,
// process-wide store of hierarchical progress snapshots keyed by
// repository identity. Mutations are serialized per identity; readers
// always see a consistent, independent value copy.
package progress

import (
	"sync"
	"time"

	"github.com/gizzahub/gzh-crawl-core/internal/model"
)

// Clock abstracts time.Now so tests can control timestamps. It
// defaults to time.Now.
type Clock func() time.Time

// Recorder receives a value-copy snapshot after every mutation, for
// external observability (e.g. a Prometheus collector) that wants a
// push feed instead of polling Get/Active. Observe must not block.
type Recorder interface {
	Observe(model.ProgressSnapshot)
}

// Tracker is the process-wide progress store, S in the design.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     Clock
	rec     Recorder
}

type entry struct {
	mu  sync.Mutex
	snp model.ProgressSnapshot
}

// NewTracker returns an empty tracker using time.Now for timestamps.
func NewTracker() *Tracker {
	return &Tracker{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// NewTrackerWithClock is NewTracker with an injectable clock, for
// deterministic retention tests.
func NewTrackerWithClock(clock Clock) *Tracker {
	t := NewTracker()
	t.now = clock
	return t
}

func (t *Tracker) getOrCreate(id string) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		e = &entry{}
		t.entries[id] = e
	}
	return e
}

func (t *Tracker) get(id string) (*entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	return e, ok
}

// SetRecorder attaches a push-feed observer. It is not safe to call
// concurrently with mutations; set it once during wiring, before the
// tracker is shared across goroutines.
func (t *Tracker) SetRecorder(rec Recorder) {
	t.rec = rec
}

// notify pushes a value-copy snapshot to the attached Recorder, if
// any. Called after the entry lock has been released.
func (t *Tracker) notify(snp model.ProgressSnapshot) {
	if t.rec != nil {
		t.rec.Observe(snp)
	}
}

// Start creates a new STARTING snapshot for id, replacing any prior
// snapshot.
func (t *Tracker) Start(id string) {
	e := t.getOrCreate(id)
	e.mu.Lock()
	now := t.now()
	e.snp = model.ProgressSnapshot{
		RepositoryID: id,
		Status:       model.StatusStarting,
		StartedAt:    now,
		UpdatedAt:    now,
	}
	snp := copySnapshot(e.snp)
	e.mu.Unlock()
	t.notify(snp)
}

// UpdateStatus moves id's snapshot to a new non-terminal status. A
// terminal status must go through Complete/Fail/Cancel so that
// CompletedAt is stamped exactly once. Calling it with a terminal
// status is a no-op; operations on an unknown id are no-ops.
func (t *Tracker) UpdateStatus(id string, status model.ProgressStatus) {
	if status.IsTerminal() {
		return
	}
	e, ok := t.get(id)
	if !ok {
		return
	}
	e.mu.Lock()
	e.snp.Status = status
	e.snp.UpdatedAt = t.now()
	snp := copySnapshot(e.snp)
	e.mu.Unlock()
	t.notify(snp)
}

// UpdateCounters sets files-processed/indexed counters and optionally
// the total. total=nil leaves the existing total untouched. A total of
// 0 yields a 0% derived percentage, never NaN; processed > total
// clamps percentage to 100 (see model.ProgressSnapshot.Percentage).
func (t *Tracker) UpdateCounters(id string, processed int, total *int, indexed int) {
	e, ok := t.get(id)
	if !ok {
		return
	}
	e.mu.Lock()
	e.snp.FilesProcessed = processed
	e.snp.FilesIndexed = indexed
	if total != nil {
		t2 := *total
		e.snp.TotalFiles = &t2
	}
	e.snp.UpdatedAt = t.now()
	snp := copySnapshot(e.snp)
	e.mu.Unlock()
	t.notify(snp)
}

// SetCurrentFile records the path currently being processed.
func (t *Tracker) SetCurrentFile(id, path string) {
	e, ok := t.get(id)
	if !ok {
		return
	}
	e.mu.Lock()
	e.snp.CurrentFile = path
	e.snp.UpdatedAt = t.now()
	snp := copySnapshot(e.snp)
	e.mu.Unlock()
	t.notify(snp)
}

// RecordError appends msg to the snapshot's error summary without
// changing the status: per-file, per-branch and per-sub-project
// failures accumulate here while the crawl continues, so a partial
// success still ends COMPLETED with a joined summary. No-op once the
// snapshot is terminal.
func (t *Tracker) RecordError(id, msg string) {
	e, ok := t.get(id)
	if !ok {
		return
	}
	e.mu.Lock()
	if e.snp.Status.IsTerminal() {
		e.mu.Unlock()
		return
	}
	if e.snp.Error == "" {
		e.snp.Error = msg
	} else {
		e.snp.Error += "; " + msg
	}
	e.snp.UpdatedAt = t.now()
	snp := copySnapshot(e.snp)
	e.mu.Unlock()
	t.notify(snp)
}

// SetSubProjectTotal initializes or updates the GIT_MULTI hierarchical
// sub-snapshot's total sub-project count.
func (t *Tracker) SetSubProjectTotal(id string, total int) {
	e, ok := t.get(id)
	if !ok {
		return
	}
	e.mu.Lock()
	if e.snp.SubProject == nil {
		e.snp.SubProject = &model.SubProjectSnapshot{}
	}
	e.snp.SubProject.TotalSubProjects = total
	e.snp.UpdatedAt = t.now()
	snp := copySnapshot(e.snp)
	e.mu.Unlock()
	t.notify(snp)
}

// SetCurrentSubProject records which sub-project is active and its
// file counters, for the GIT_MULTI hierarchical snapshot.
func (t *Tracker) SetCurrentSubProject(id, name string, totalFiles, filesDone int) {
	e, ok := t.get(id)
	if !ok {
		return
	}
	e.mu.Lock()
	if e.snp.SubProject == nil {
		e.snp.SubProject = &model.SubProjectSnapshot{}
	}
	e.snp.SubProject.CurrentSubProject = name
	e.snp.SubProject.CurrentTotalFiles = totalFiles
	e.snp.SubProject.CurrentFilesDone = filesDone
	e.snp.UpdatedAt = t.now()
	snp := copySnapshot(e.snp)
	e.mu.Unlock()
	t.notify(snp)
}

// Complete transitions id to COMPLETED, stamping CompletedAt once and
// forcing the percentage to 100 (by setting processed=total when a
// total is known).
func (t *Tracker) Complete(id string) {
	e, ok := t.get(id)
	if !ok {
		return
	}
	e.mu.Lock()
	t.finishLocked(e, model.StatusCompleted, "")
	if e.snp.TotalFiles != nil {
		e.snp.FilesProcessed = *e.snp.TotalFiles
	}
	snp := copySnapshot(e.snp)
	e.mu.Unlock()
	t.notify(snp)
}

// Fail transitions id to FAILED with the given error message.
func (t *Tracker) Fail(id, message string) {
	e, ok := t.get(id)
	if !ok {
		return
	}
	e.mu.Lock()
	t.finishLocked(e, model.StatusFailed, message)
	snp := copySnapshot(e.snp)
	e.mu.Unlock()
	t.notify(snp)
}

// Cancel transitions id to CANCELLED.
func (t *Tracker) Cancel(id string) {
	e, ok := t.get(id)
	if !ok {
		return
	}
	e.mu.Lock()
	t.finishLocked(e, model.StatusCancelled, "")
	snp := copySnapshot(e.snp)
	e.mu.Unlock()
	t.notify(snp)
}

// finishLocked must be called with e.mu held. It stamps CompletedAt
// exactly once: a snapshot that is already terminal is left alone.
func (t *Tracker) finishLocked(e *entry, status model.ProgressStatus, message string) {
	if e.snp.Status.IsTerminal() {
		return
	}
	now := t.now()
	e.snp.Status = status
	if message != "" {
		if e.snp.Error == "" {
			e.snp.Error = message
		} else {
			e.snp.Error += "; " + message
		}
	}
	e.snp.UpdatedAt = now
	e.snp.CompletedAt = &now
}

// Remove evicts id's snapshot unconditionally.
func (t *Tracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

// Get returns a value-copy snapshot for id.
func (t *Tracker) Get(id string) (model.ProgressSnapshot, bool) {
	e, ok := t.get(id)
	if !ok {
		return model.ProgressSnapshot{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return copySnapshot(e.snp), true
}

// IsCrawling reports whether id's snapshot is in one of the active
// statuses (STARTING, CLONING, PROCESSING, INDEXING).
func (t *Tracker) IsCrawling(id string) bool {
	snp, ok := t.Get(id)
	return ok && snp.Status.IsActive()
}

// Active returns a value-copy snapshot for every repository currently
// in an active status.
func (t *Tracker) Active() []model.ProgressSnapshot {
	t.mu.Lock()
	ids := make([]string, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	var out []model.ProgressSnapshot
	for _, id := range ids {
		if snp, ok := t.Get(id); ok && snp.Status.IsActive() {
			out = append(out, snp)
		}
	}
	return out
}

// CleanupOlderThan evicts every terminal snapshot whose CompletedAt is
// earlier than (now - window). Active snapshots are never evicted.
// Returns the number of snapshots removed.
func (t *Tracker) CleanupOlderThan(window time.Duration) int {
	cutoff := t.now().Add(-window)

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, e := range t.entries {
		e.mu.Lock()
		stale := e.snp.Status.IsTerminal() && e.snp.CompletedAt != nil && e.snp.CompletedAt.Before(cutoff)
		e.mu.Unlock()
		if stale {
			delete(t.entries, id)
			removed++
		}
	}
	return removed
}

func copySnapshot(snp model.ProgressSnapshot) model.ProgressSnapshot {
	cp := snp
	if snp.TotalFiles != nil {
		total := *snp.TotalFiles
		cp.TotalFiles = &total
	}
	if snp.CompletedAt != nil {
		completed := *snp.CompletedAt
		cp.CompletedAt = &completed
	}
	if snp.SubProject != nil {
		sub := *snp.SubProject
		cp.SubProject = &sub
	}
	return cp
}
