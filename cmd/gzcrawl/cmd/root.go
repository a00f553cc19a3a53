// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package cmd implements the CLI commands for gzcrawl.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gizzahub/gzh-crawl-core/internal/cancel"
	"github.com/gizzahub/gzh-crawl-core/internal/config"
	"github.com/gizzahub/gzh-crawl-core/internal/crawlapi"
	"github.com/gizzahub/gzh-crawl-core/internal/crawler"
	"github.com/gizzahub/gzh-crawl-core/internal/gitfetch"
	"github.com/gizzahub/gzh-crawl-core/internal/progress"
	"github.com/gizzahub/gzh-crawl-core/internal/reposave"
	"github.com/gizzahub/gzh-crawl-core/internal/scheduler"
	"github.com/gizzahub/gzh-crawl-core/internal/searchindex"
	"github.com/gizzahub/gzh-crawl-core/pkg/github"
	"github.com/gizzahub/gzh-crawl-core/pkg/gitlab"
	"github.com/gizzahub/gzh-crawl-core/pkg/provider"
)

// appVersion is set by main.go.
var appVersion string

var verbose bool

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gzcrawl",
	Short: "Crawl orchestration and indexing core for source repositories",
	Long: `gzcrawl drives the crawl orchestration and indexing pipeline
directly from the command line: fetching FILESYSTEM, GIT and GIT_MULTI
repositories across every branch, enumerating indexable files and
upserting them into a search index.

Quick Start:
  # Register a local directory and crawl it once
  gzcrawl repo add docs --kind FILESYSTEM --origin ./docs
  gzcrawl crawl docs

  # Resume every crawl left IN_PROGRESS by a prior process
  gzcrawl resume

  # Sweep crawls abandoned for more than an hour
  gzcrawl cleanup-abandoned --timeout 60m`,
	Version: appVersion,
}

func init() {
	rootCmd.PersistentFlags().SetNormalizeFunc(normalizeFlagName)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// normalizeFlagName accepts underscore spellings of flag names, the
// way the repositories YAML spells its keys (exclude_exact), as well
// as the dashed form.
func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It is called by main.main().
func Execute(version string) {
	appVersion = version
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles every long-lived collaborator a command needs. It is
// built once per invocation from the process environment knobs.
type app struct {
	Defaults config.Defaults
	Store    *reposave.Store
	Writer   searchindex.Writer
	Tracker  *progress.Tracker
	Cancels  *cancel.Registry
	Crawler  *crawler.Crawler
	Service  *crawlapi.Service
	Logger   *crawlLogger
}

// crawlLogger writes leveled log lines to stderr. Debug and Info are
// emitted only in verbose mode; Warn and Error always print. It
// satisfies the crawler, scheduler, and fswatch Logger interfaces.
type crawlLogger struct {
	verbose bool
}

func newCrawlLogger(verbose bool) *crawlLogger {
	return &crawlLogger{verbose: verbose}
}

func (l *crawlLogger) Debug(format string, args ...interface{}) {
	if l.verbose {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

func (l *crawlLogger) Info(format string, args ...interface{}) {
	if l.verbose {
		fmt.Fprintf(os.Stderr, "[INFO] "+format+"\n", args...)
	}
}

func (l *crawlLogger) Warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[WARN] "+format+"\n", args...)
}

func (l *crawlLogger) Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[ERROR] "+format+"\n", args...)
}

// newApp wires every collaborator. Repeated CLI invocations within a
// single process (as in tests) share no state beyond the state file:
// the state store is reloaded from disk on each call, and the search
// index is a fresh, empty in-memory writer each time.
func newApp() (*app, error) {
	defaults, err := config.LoadDefaults()
	if err != nil {
		return nil, err
	}
	if err := defaults.EnsureDirectories(); err != nil {
		return nil, err
	}

	store := reposave.NewStore(defaults.StateFile)
	if err := store.Load(); err != nil {
		return nil, err
	}

	if defaults.InsecureSkipVerify {
		gitfetch.AllowInsecureTLS()
	}

	logger := newCrawlLogger(verbose)

	writer := searchindex.NewMemoryWriter()
	tracker := progress.NewTracker()
	cancels := cancel.NewRegistry()
	fetcher := gitfetch.New()
	crwl := crawler.New(store, writer, tracker, cancels, fetcher, defaults.TempRoot)
	crwl.Logger = logger
	crwl.Discoverers = discoverers(defaults)
	crwl.DefaultExcludeWildcard = defaults.ExcludeNamespaceDefaults

	svc := crawlapi.New(store, writer, tracker, cancels, crwl, nil)
	svc.Scheduler = scheduler.New(store, crawlapi.NewSchedulerCrawler(svc), logger)

	return &app{
		Defaults: defaults,
		Store:    store,
		Writer:   writer,
		Tracker:  tracker,
		Cancels:  cancels,
		Crawler:  crwl,
		Service:  svc,
		Logger:   logger,
	}, nil
}

// resolveID maps a CLI argument to a descriptor ID: tried first as an
// ID, then as a display name, so commands accept either.
func (a *app) resolveID(arg string) (string, error) {
	if _, ok := a.Store.Get(arg); ok {
		return arg, nil
	}
	for _, d := range a.Store.List() {
		if d.Name == arg {
			return d.ID, nil
		}
	}
	return "", fmt.Errorf("no repository with id or name %q", arg)
}

// discoverers wires every GIT_MULTI discovery collaborator this build
// knows how to authenticate. Tokens are supplied per-descriptor at
// crawl time via CredentialCipher, not read from the environment here;
// the discovery-host knob points the GitLab client at a self-hosted
// instance.
func discoverers(defaults config.Defaults) []provider.AuthenticatedDiscoverer {
	gl, err := gitlab.NewDiscoverer("", defaults.DiscoveryHost)
	if err != nil {
		return []provider.AuthenticatedDiscoverer{github.NewDiscoverer("")}
	}
	return []provider.AuthenticatedDiscoverer{github.NewDiscoverer(""), gl}
}
