// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package model holds the data types shared across the crawl core:
// the persistent Repository Descriptor, its Schedule Sub-record, and
// the ephemeral Progress Snapshot.
package model

import (
	"strconv"
	"time"
)

// RepositoryKind identifies the shape of a crawl target.
type RepositoryKind string

const (
	// KindFilesystem crawls a local directory tree.
	KindFilesystem RepositoryKind = "FILESYSTEM"

	// KindGit crawls a single remote Git repository.
	KindGit RepositoryKind = "GIT"

	// KindGitMulti crawls every sub-project in a remote Git hosting
	// namespace (a GitHub org, a GitLab group).
	KindGitMulti RepositoryKind = "GIT_MULTI"
)

// CrawlState is the persisted, resumable state of a repository's crawl.
type CrawlState string

const (
	CrawlStateIdle       CrawlState = "IDLE"
	CrawlStateInProgress CrawlState = "IN_PROGRESS"
	CrawlStateFailed     CrawlState = "FAILED"
)

// RepositoryDescriptor is the persistent record of one repository the
// crawl core knows about. Name is unique across all descriptors; if
// Kind is KindGitMulti, Credential must be present before a crawl is
// attempted; CrawlStartedAt is non-nil iff State is
// CrawlStateInProgress.
type RepositoryDescriptor struct {
	ID   string
	Name string
	Kind RepositoryKind

	// Origin is a URL for GIT/GIT_MULTI or a filesystem path for
	// FILESYSTEM.
	Origin string

	// DefaultBranchHint is used when branch enumeration is empty.
	DefaultBranchHint string

	Enabled bool

	// Credential is an opaque, already-encrypted access token. The
	// encryption/decryption algorithm itself is an external
	// collaborator (see CredentialCipher); the descriptor only stores
	// and passes along the opaque bytes.
	Credential string

	// NamespaceSelector names the GitHub org / GitLab group / etc. to
	// discover sub-projects from. Only meaningful for KindGitMulti.
	NamespaceSelector string

	Schedule ScheduleSubRecord

	// ExcludeExact and ExcludeWildcard are comma-joined pattern lists
	// applied to GIT_MULTI sub-project names (see ExclusionSet).
	ExcludeExact    string
	ExcludeWildcard string

	State             CrawlState
	LastSubProject    string
	CrawlStartedAt    *time.Time
	LastCrawledAt     *time.Time
	LastCrawlDuration time.Duration
}

// ScheduleSubRecord controls when a descriptor's crawl fires
// automatically. Cron takes precedence over FrequencyHours; if
// AutoEnabled is false, NextFire is always nil.
type ScheduleSubRecord struct {
	AutoEnabled bool

	// CronExpression is 5-field or 6-field. A 5-field expression is
	// normalized by prefixing "0 " for the seconds column before it is
	// handed to the scheduler's parser.
	CronExpression string

	// FrequencyHours is a convenience lowered to the cron expression
	// "0 0 */N * * *" when CronExpression is empty.
	FrequencyHours int

	// TimeoutMinutes bounds a single crawl. Zero means the default of
	// 60 minutes.
	TimeoutMinutes int

	NextFire *time.Time

	// WatchEnabled additionally triggers a crawl on filesystem change
	// for KindFilesystem descriptors, alongside (not instead of) cron.
	// It has no effect for GIT/GIT_MULTI descriptors.
	WatchEnabled bool
}

// EffectiveCron returns the 6-field cron expression that the scheduler
// should evaluate for this schedule: CronExpression normalized to
// 6 fields if present, else FrequencyHours lowered to its canonical
// form, else the empty string if neither is set.
func (s ScheduleSubRecord) EffectiveCron() string {
	if s.CronExpression != "" {
		return NormalizeCron(s.CronExpression)
	}
	if s.FrequencyHours > 0 {
		return FrequencyToCron(s.FrequencyHours)
	}
	return ""
}

// NormalizeCron promotes a 5-field cron expression to 6-field form by
// prepending a "0 " seconds column. A 6-field (or otherwise shaped)
// expression is returned unchanged.
func NormalizeCron(expr string) string {
	if countFields(expr) == 5 {
		return "0 " + expr
	}
	return expr
}

// FrequencyToCron lowers a crawl-every-N-hours convenience value to
// its canonical 6-field cron expression.
func FrequencyToCron(hours int) string {
	return fmtFrequency(hours)
}

func countFields(expr string) int {
	n := 0
	inField := false
	for _, r := range expr {
		if r == ' ' || r == '\t' {
			inField = false
			continue
		}
		if !inField {
			n++
			inField = true
		}
	}
	return n
}

func fmtFrequency(hours int) string {
	return "0 0 */" + strconv.Itoa(hours) + " * * *"
}
