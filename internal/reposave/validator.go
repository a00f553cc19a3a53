// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package reposave

import (
	"fmt"
	"strings"

	"github.com/gizzahub/gzh-crawl-core/internal/model"
)

var validKinds = map[model.RepositoryKind]bool{
	model.KindFilesystem: true,
	model.KindGit:        true,
	model.KindGitMulti:   true,
}

// Validator checks a Repository Descriptor's invariants before it is
// persisted.
type Validator struct{}

// NewValidator returns a descriptor validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateDescriptor validates d, returning the first violation found.
func (v *Validator) ValidateDescriptor(d *model.RepositoryDescriptor) error {
	if d == nil {
		return fmt.Errorf("descriptor is nil")
	}
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("descriptor id is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("descriptor name is required")
	}
	if !validKinds[d.Kind] {
		return fmt.Errorf("invalid repository kind %q: must be FILESYSTEM, GIT, or GIT_MULTI", d.Kind)
	}
	if d.Kind != model.KindFilesystem && strings.TrimSpace(d.Origin) == "" {
		return fmt.Errorf("origin is required for kind %q", d.Kind)
	}
	if d.Kind == model.KindFilesystem && strings.TrimSpace(d.Origin) == "" {
		return fmt.Errorf("filesystem path is required")
	}
	if d.Schedule.CronExpression != "" {
		if err := validateCronExpression(d.Schedule.CronExpression); err != nil {
			return fmt.Errorf("invalid schedule: %w", err)
		}
	}
	if d.Schedule.FrequencyHours < 0 {
		return fmt.Errorf("frequency hours must be non-negative")
	}
	return nil
}

// validateCronExpression performs the schedule-time field-count
// check; either 5 or 6 whitespace-delimited fields is acceptable
// (5-field expressions are promoted elsewhere).
func validateCronExpression(expr string) error {
	fields := strings.Fields(expr)
	if len(fields) != 5 && len(fields) != 6 {
		return fmt.Errorf("cron expression %q must have 5 or 6 fields, got %d", expr, len(fields))
	}
	return nil
}
