// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package main is the entry point for the gzcrawl CLI application.
// gzcrawl drives the crawl orchestration and indexing core directly,
// without the HTTP surface the core treats as an external
// collaborator.
package main

import (
	gzhcrawlcore "github.com/gizzahub/gzh-crawl-core"
	"github.com/gizzahub/gzh-crawl-core/cmd/gzcrawl/cmd"
)

func main() {
	cmd.Execute(gzhcrawlcore.FullVersion())
}
