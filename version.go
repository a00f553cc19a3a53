// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package gzhcrawlcore

import (
	"fmt"
	"runtime"
)

// Version information.
// These values can be overridden at build time using -ldflags.
//
// Example:
//
//	go build -ldflags "-X github.com/gizzahub/gzh-crawl-core.GitCommit=$(git rev-parse HEAD)"
var (
	// Version is the current library version following semantic versioning.
	Version = "0.1.0"

	// GitCommit is the git commit SHA of the build.
	GitCommit = "unknown"

	// BuildDate is the date when the binary was built.
	BuildDate = "unknown"
)

// VersionInfo returns detailed version information as a map: version,
// gitCommit, buildDate, and the Go version used for building.
func VersionInfo() map[string]string {
	return map[string]string{
		"version":   Version,
		"gitCommit": GitCommit,
		"buildDate": BuildDate,
		"goVersion": runtime.Version(),
	}
}

// VersionString returns a formatted version string, e.g.
// "gzh-crawl-core version v0.1.0 (commit: a1b2c3d, built: 2026-01-15)".
func VersionString() string {
	return fmt.Sprintf("gzh-crawl-core version v%s (commit: %s, built: %s)",
		Version, GitCommit, BuildDate)
}

// FullVersion returns the version with 'v' prefix.
func FullVersion() string {
	return "v" + Version
}
