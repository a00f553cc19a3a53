// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gizzahub/gzh-crawl-core/internal/model"
)

// repositoriesFile is the on-disk YAML shape: a flat list of
// repository descriptors, the declarative counterpart to POST
// /repositories for deployments that prefer config-as-code.
type repositoriesFile struct {
	Repositories []repositoryEntry `yaml:"repositories"`
}

type repositoryEntry struct {
	ID                string         `yaml:"id"`
	Name              string         `yaml:"name"`
	Kind              string         `yaml:"kind"`
	Origin            string         `yaml:"origin"`
	DefaultBranchHint string         `yaml:"default_branch,omitempty"`
	Enabled           bool           `yaml:"enabled"`
	Credential        string         `yaml:"credential,omitempty"`
	NamespaceSelector string         `yaml:"namespace,omitempty"`
	ExcludeExact      string         `yaml:"exclude_exact,omitempty"`
	ExcludeWildcard   string         `yaml:"exclude_wildcard,omitempty"`
	Schedule          scheduleEntry  `yaml:"schedule,omitempty"`
}

type scheduleEntry struct {
	AutoEnabled    bool   `yaml:"auto_enabled"`
	Cron           string `yaml:"cron,omitempty"`
	FrequencyHours int    `yaml:"frequency_hours,omitempty"`
	TimeoutMinutes int    `yaml:"timeout_minutes,omitempty"`
	WatchEnabled   bool   `yaml:"watch_enabled,omitempty"`
}

// LoadRepositories reads path as YAML and returns the descriptors it
// declares. A missing file yields an empty, non-error result: the
// repositories file is an optional bulk-import convenience, not the
// system of record (that is reposave.Store).
func LoadRepositories(path string) ([]model.RepositoryDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read repositories file %s: %w", path, err)
	}

	var doc repositoriesFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse repositories file %s: %w", path, err)
	}

	out := make([]model.RepositoryDescriptor, 0, len(doc.Repositories))
	for _, e := range doc.Repositories {
		d, err := e.toDescriptor()
		if err != nil {
			return nil, fmt.Errorf("repository %q: %w", e.Name, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func (e repositoryEntry) toDescriptor() (model.RepositoryDescriptor, error) {
	kind := model.RepositoryKind(e.Kind)
	switch kind {
	case model.KindFilesystem, model.KindGit, model.KindGitMulti:
	default:
		return model.RepositoryDescriptor{}, fmt.Errorf("unknown kind %q", e.Kind)
	}

	return model.RepositoryDescriptor{
		ID:                e.ID,
		Name:              e.Name,
		Kind:              kind,
		Origin:            e.Origin,
		DefaultBranchHint: e.DefaultBranchHint,
		Enabled:           e.Enabled,
		Credential:        e.Credential,
		NamespaceSelector: e.NamespaceSelector,
		ExcludeExact:      e.ExcludeExact,
		ExcludeWildcard:   e.ExcludeWildcard,
		State:             model.CrawlStateIdle,
		Schedule: model.ScheduleSubRecord{
			AutoEnabled:    e.Schedule.AutoEnabled,
			CronExpression: e.Schedule.Cron,
			FrequencyHours: e.Schedule.FrequencyHours,
			TimeoutMinutes: e.Schedule.TimeoutMinutes,
			WatchEnabled:   e.Schedule.WatchEnabled,
		},
	}, nil
}

// SaveRepositories writes descriptors to path as YAML, the inverse of
// LoadRepositories, so the declarative file can be regenerated from
// the live state store (e.g. after HTTP-driven mutations).
func SaveRepositories(path string, descriptors []model.RepositoryDescriptor) error {
	doc := repositoriesFile{Repositories: make([]repositoryEntry, 0, len(descriptors))}
	for _, d := range descriptors {
		doc.Repositories = append(doc.Repositories, fromDescriptor(d))
	}

	raw, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal repositories file: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write repositories file %s: %w", path, err)
	}
	return nil
}

func fromDescriptor(d model.RepositoryDescriptor) repositoryEntry {
	return repositoryEntry{
		ID:                d.ID,
		Name:              d.Name,
		Kind:              string(d.Kind),
		Origin:            d.Origin,
		DefaultBranchHint: d.DefaultBranchHint,
		Enabled:           d.Enabled,
		Credential:        d.Credential,
		NamespaceSelector: d.NamespaceSelector,
		ExcludeExact:      d.ExcludeExact,
		ExcludeWildcard:   d.ExcludeWildcard,
		Schedule: scheduleEntry{
			AutoEnabled:    d.Schedule.AutoEnabled,
			Cron:           d.Schedule.CronExpression,
			FrequencyHours: d.Schedule.FrequencyHours,
			TimeoutMinutes: d.Schedule.TimeoutMinutes,
			WatchEnabled:   d.Schedule.WatchEnabled,
		},
	}
}
