// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package config resolves the crawl core's environment knobs and
// loads the declarative repository list. Two layers only: built-in
// defaults rooted under the user cache directory, then per-knob
// environment overrides.
package config

import (
	"os"
	"path/filepath"
)

// Env names for the crawl core's knobs.
const (
	EnvTempRoot           = "GZCRAWL_TEMP_ROOT"
	EnvIndexRoot          = "GZCRAWL_INDEX_ROOT"
	EnvDiscoveryHost      = "GZCRAWL_DISCOVERY_HOST"
	EnvInsecureSkipVerify = "GZCRAWL_TLS_INSECURE_SKIP_VERIFY"
	EnvExcludeNamespaces  = "GZCRAWL_EXCLUDE_NAMESPACES_DEFAULT"
	EnvRepositoriesFile   = "GZCRAWL_REPOSITORIES_FILE"
	EnvStateFile          = "GZCRAWL_STATE_FILE"
)

// Defaults holds every path and flag the process reads from its
// environment, resolved once at startup.
type Defaults struct {
	// TempRoot is the parent directory GIT and GIT_MULTI clone targets
	// are created under.
	TempRoot string

	// IndexRoot is the on-disk root of the search index artifact.
	IndexRoot string

	// DiscoveryHost is the base URL the GitLab discoverer is built
	// with; empty leaves the client library's default host. A
	// descriptor's origin only selects the provider; its host is not
	// used for discovery.
	DiscoveryHost string

	// InsecureSkipVerify disables TLS certificate validation for the
	// Git clone and fetch transport. Off by default; only ever
	// intended for self-signed internal hosts. The GitHub and GitLab
	// discovery clients keep their default certificate validation.
	InsecureSkipVerify bool

	// ExcludeNamespaceDefaults is a comma-joined wildcard pattern list
	// applied to every GIT_MULTI descriptor in addition to its own
	// exclusions (e.g. forks, archived mirrors).
	ExcludeNamespaceDefaults string

	// RepositoriesFile is the YAML file path LoadRepositories reads.
	RepositoriesFile string

	// StateFile is the path reposave.Store persists descriptors to.
	StateFile string
}

// LoadDefaults resolves every knob from its environment variable,
// falling back to a value rooted under the user's cache directory
// when unset.
func LoadDefaults() (Defaults, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	root := filepath.Join(cacheDir, "gzcrawl")

	d := Defaults{
		TempRoot:                 envOr(EnvTempRoot, filepath.Join(root, "clones")),
		IndexRoot:                envOr(EnvIndexRoot, filepath.Join(root, "index")),
		DiscoveryHost:            envOr(EnvDiscoveryHost, ""),
		InsecureSkipVerify:       envBool(EnvInsecureSkipVerify, false),
		ExcludeNamespaceDefaults: envOr(EnvExcludeNamespaces, ""),
		RepositoriesFile:         envOr(EnvRepositoriesFile, filepath.Join(root, "repositories.yaml")),
		StateFile:                envOr(EnvStateFile, filepath.Join(root, "state.json")),
	}
	return d, nil
}

// EnsureDirectories creates TempRoot, IndexRoot and the parent
// directory of every file path in d.
func (d Defaults) EnsureDirectories() error {
	dirs := []string{d.TempRoot, d.IndexRoot, filepath.Dir(d.RepositoriesFile), filepath.Dir(d.StateFile)}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envBool reads a boolean knob as a lowercase "true"/"false" string;
// any other value (including unset) yields fallback.
func envBool(key string, fallback bool) bool {
	switch os.Getenv(key) {
	case "true":
		return true
	case "false":
		return false
	default:
		return fallback
	}
}
