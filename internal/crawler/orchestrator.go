// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package crawler implements the Crawler Orchestrator (C8): the
// top-level crawl(descriptor) state machine that ties the state store,
// cancellation registry, progress tracker, fetcher, branch processor
// and search writer together, plus resumption and abandonment sweep.
package crawler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gizzahub/gzh-crawl-core/internal/branchproc"
	"github.com/gizzahub/gzh-crawl-core/internal/cancel"
	"github.com/gizzahub/gzh-crawl-core/internal/errors"
	"github.com/gizzahub/gzh-crawl-core/internal/gitfetch"
	"github.com/gizzahub/gzh-crawl-core/internal/model"
	"github.com/gizzahub/gzh-crawl-core/internal/progress"
	"github.com/gizzahub/gzh-crawl-core/internal/reposave"
	"github.com/gizzahub/gzh-crawl-core/internal/searchindex"
	"github.com/gizzahub/gzh-crawl-core/pkg/provider"
)

// OrchestratorCommitTimeout bounds the writer commit that ends a
// crawl's top-level work.
const OrchestratorCommitTimeout = 2 * time.Minute

// DefaultCrawlTimeout bounds a single crawl when the descriptor's
// schedule sub-record does not set its own timeout-minutes.
const DefaultCrawlTimeout = 60 * time.Minute

// Logger is the minimal leveled-logging surface the orchestrator
// needs.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

// Crawler wires together every collaborator the orchestrator needs.
type Crawler struct {
	Store       *reposave.Store
	Writer      searchindex.Writer
	Progress    *progress.Tracker
	Cancels     *cancel.Registry
	Processor   *branchproc.Processor
	Fetcher     *gitfetch.Fetcher
	Cipher      CredentialCipher
	Logger      Logger
	Discoverers []provider.AuthenticatedDiscoverer

	// TempRoot is the parent directory under which GIT and GIT_MULTI
	// clone targets are created.
	TempRoot string

	// DefaultExcludeWildcard is a comma-joined wildcard pattern list
	// applied to every GIT_MULTI crawl in addition to the
	// descriptor's own exclusions.
	DefaultExcludeWildcard string
}

// New returns a Crawler with a PassthroughCipher and a silent logger;
// callers that encrypt credentials at rest or want log output
// overwrite the Cipher and Logger fields.
func New(store *reposave.Store, writer searchindex.Writer, tracker *progress.Tracker, cancels *cancel.Registry, fetcher *gitfetch.Fetcher, tempRoot string) *Crawler {
	return &Crawler{
		Store:     store,
		Writer:    writer,
		Progress:  tracker,
		Cancels:   cancels,
		Processor: branchproc.New(writer, tracker),
		Fetcher:   fetcher,
		Cipher:    PassthroughCipher{},
		Logger:    noopLogger{},
		TempRoot:  tempRoot,
	}
}

// Crawl runs the full crawl algorithm for the descriptor identified
// by id, blocking until it finishes.
func (c *Crawler) Crawl(ctx context.Context, id string) error {
	descriptor, token, err := c.Begin(id)
	if err != nil {
		return err
	}
	return c.Run(ctx, descriptor, token, "")
}

// Begin performs every step of a crawl that must happen synchronously
// with the caller's request: existence and enabled checks, registering
// the cancellation token (the sole point of "at most one active crawl
// per descriptor" enforcement), and stamping IN_PROGRESS. Callers that
// want to return to their own caller before the crawl finishes (e.g. an
// HTTP handler) call Begin inline and dispatch Run in a goroutine.
func (c *Crawler) Begin(id string) (model.RepositoryDescriptor, *cancel.Token, error) {
	descriptor, ok := c.Store.Get(id)
	if !ok {
		return model.RepositoryDescriptor{}, nil, errors.ErrNotFound
	}
	if !descriptor.Enabled {
		return model.RepositoryDescriptor{}, nil, errors.ErrBadRequest
	}

	token, ok := c.Cancels.Register(id)
	if !ok {
		return model.RepositoryDescriptor{}, nil, errors.ErrConflict
	}

	if err := c.Store.BeginCrawl(id, "", time.Now()); err != nil {
		c.Cancels.Deregister(id)
		return model.RepositoryDescriptor{}, nil, err
	}

	// Purging stale documents is best-effort: upserts will correct the
	// index even if this fails.
	if _, err := c.Writer.DeleteByRepositoryName(descriptor.Name); err != nil {
		c.Logger.Warn("crawl %s: purge stale documents: %v", descriptor.Name, err)
	}

	c.Progress.Start(id)
	return descriptor, token, nil
}

// Run dispatches and finishes a crawl already started by Begin (or by
// Resume, which tracks its own resume marker). The whole run is
// bounded by the descriptor's per-crawl timeout.
func (c *Crawler) Run(ctx context.Context, descriptor model.RepositoryDescriptor, token *cancel.Token, resumeAfter string) error {
	timeout := DefaultCrawlTimeout
	if descriptor.Schedule.TimeoutMinutes > 0 {
		timeout = time.Duration(descriptor.Schedule.TimeoutMinutes) * time.Minute
	}
	ctx, cancelFn := context.WithTimeout(ctx, timeout)
	defer cancelFn()

	if err := c.dispatch(ctx, &descriptor, token, resumeAfter); err != nil {
		if ctx.Err() != nil {
			err = errors.Wrap(err, errors.ErrTimeout)
		}
		return c.fail(descriptor.ID, err)
	}
	if token.IsCancelled() {
		return c.cancelled(descriptor.ID)
	}
	return c.finish(ctx, descriptor.ID)
}

// cancelled finishes a crawl that observed its token cancelled at a
// pre-emption point. Unlike finish it does not commit the writer;
// staged upserts stay pending for the next successful run.
func (c *Crawler) cancelled(id string) error {
	_ = c.Store.FinishCrawl(id, false, time.Now())
	c.Progress.Cancel(id)
	c.Cancels.Deregister(id)
	return nil
}

// CancelCrawl signals cancellation for an active crawl. It reports
// whether a crawl for id was actually running.
func (c *Crawler) CancelCrawl(id string) bool {
	return c.Cancels.Cancel(id)
}

// Resume restarts every descriptor left IN_PROGRESS by a prior
// process. GIT_MULTI descriptors continue from the sub-project after
// their persisted marker; single-unit kinds restart from the top.
func (c *Crawler) Resume(ctx context.Context) error {
	var firstErr error
	for _, descriptor := range c.Store.FindInProgress() {
		if err := c.resumeOne(ctx, descriptor); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Crawler) resumeOne(ctx context.Context, descriptor model.RepositoryDescriptor) error {
	token, ok := c.Cancels.Register(descriptor.ID)
	if !ok {
		return errors.ErrConflict
	}

	c.Progress.Start(descriptor.ID)

	resumeAfter := ""
	if descriptor.Kind == model.KindGitMulti {
		resumeAfter = descriptor.LastSubProject
	}

	return c.Run(ctx, descriptor, token, resumeAfter)
}

// CleanupAbandoned transitions every IN_PROGRESS descriptor whose
// crawl_started_at predates now-timeout to FAILED. It returns the
// number of descriptors swept. Intended to be called at startup and
// periodically.
func (c *Crawler) CleanupAbandoned(timeout time.Duration) (int, error) {
	abandoned := c.Store.FindAbandoned(timeout, time.Now())
	swept := 0
	for _, descriptor := range abandoned {
		if err := c.Store.FinishCrawl(descriptor.ID, false, time.Now()); err != nil {
			return swept, err
		}
		c.Progress.Fail(descriptor.ID, "abandoned: exceeded crawl timeout")
		c.Cancels.Deregister(descriptor.ID)
		swept++
	}
	return swept, nil
}

func (c *Crawler) dispatch(ctx context.Context, d *model.RepositoryDescriptor, token *cancel.Token, resumeAfter string) error {
	switch d.Kind {
	case model.KindFilesystem:
		return c.runFilesystem(ctx, d, token)
	case model.KindGit:
		return c.runGit(ctx, d, token)
	case model.KindGitMulti:
		return c.runGitMulti(ctx, d, token, resumeAfter)
	default:
		return errors.WrapWithMessage(errors.ErrBadRequest, "unknown repository kind "+string(d.Kind))
	}
}

func (c *Crawler) runFilesystem(ctx context.Context, d *model.RepositoryDescriptor, token *cancel.Token) error {
	info, err := os.Stat(d.Origin)
	if err != nil || !info.IsDir() {
		return errors.WrapWithMessage(errors.ErrBadRequest, "filesystem path does not exist or is not a directory: "+d.Origin)
	}
	c.Progress.UpdateStatus(d.ID, model.StatusProcessing)
	return c.Processor.ProcessFilesystem(ctx, d.Origin, token, d.ID, d.Name, d.DefaultBranchHint)
}

func (c *Crawler) runGit(ctx context.Context, d *model.RepositoryDescriptor, token *cancel.Token) error {
	cred, err := c.credentialFor(d.Credential)
	if err != nil {
		return err
	}

	c.Progress.UpdateStatus(d.ID, model.StatusCloning)
	targetPath := filepath.Join(c.TempRoot, d.Name+"-"+d.ID)
	repo, err := c.Fetcher.CloneOrUpdate(ctx, d.Origin, cred, targetPath)
	if err != nil {
		return err
	}
	c.Progress.UpdateStatus(d.ID, model.StatusProcessing)
	return c.Processor.ProcessGit(ctx, repo, token, d.ID, d.Name, d.Origin, d.DefaultBranchHint)
}

// runGitMulti discovers sub-projects, applies exclusions, then runs
// a clone+index pass per sub-project in discovery order, persisting
// the resumption marker before each one. A single sub-project's clone
// or index failure is transient: recorded on the snapshot, skipped,
// siblings continue. Only discovery/credential failures abort the
// whole crawl.
func (c *Crawler) runGitMulti(ctx context.Context, d *model.RepositoryDescriptor, token *cancel.Token, resumeAfter string) error {
	if d.Credential == "" {
		return errors.WrapWithMessage(errors.ErrBadRequest, "GIT_MULTI descriptor requires a credential")
	}

	discoverer := c.discovererFor(d.Origin)
	if discoverer == nil {
		return errors.WrapWithMessage(errors.ErrBadRequest, "no discovery collaborator for origin "+d.Origin)
	}

	plaintext, err := c.Cipher.Decrypt(d.Credential)
	if err != nil {
		return errors.Wrap(err, errors.ErrAuthFailure)
	}
	if err := discoverer.SetToken(plaintext); err != nil {
		return errors.Wrap(err, errors.ErrAuthFailure)
	}
	if valid, err := discoverer.ValidateToken(ctx); err != nil || !valid {
		return errors.ErrAuthFailure
	}

	projects, err := discoverer.ListNamespaceProjects(ctx, d.NamespaceSelector)
	if err != nil {
		return errors.WrapWithMessage(err, "list namespace projects")
	}

	wildcard := d.ExcludeWildcard
	if c.DefaultExcludeWildcard != "" {
		if wildcard != "" {
			wildcard += ","
		}
		wildcard += c.DefaultExcludeWildcard
	}
	exclusions := model.NewExclusionSet(d.ExcludeExact, wildcard)
	var filtered []*provider.SubProject
	for _, sp := range projects {
		if !exclusions.Matches(sp.Name) {
			filtered = append(filtered, sp)
		}
	}

	c.Progress.SetSubProjectTotal(d.ID, len(filtered))

	startIdx := resumeIndex(filtered, resumeAfter)
	cred := &gitfetch.Credential{Token: plaintext}

	for i := startIdx; i < len(filtered); i++ {
		if token.IsCancelled() {
			return nil
		}
		sp := filtered[i]

		if err := c.Store.AdvanceCrawl(d.ID, sp.Name); err != nil {
			return err
		}

		c.Progress.UpdateStatus(d.ID, model.StatusCloning)
		targetPath := filepath.Join(c.TempRoot, d.Name, sp.Name)
		repo, err := c.Fetcher.CloneOrUpdate(ctx, sp.CloneURL, cred, targetPath)
		if err != nil {
			c.Progress.RecordError(d.ID, sp.Name+": "+err.Error())
			continue
		}
		c.Progress.UpdateStatus(d.ID, model.StatusProcessing)
		if err := c.Processor.ProcessGit(ctx, repo, token, d.ID, sp.Name, sp.CloneURL, sp.DefaultBranch); err != nil {
			c.Progress.RecordError(d.ID, sp.Name+": "+err.Error())
		}
	}
	return nil
}

// resumeIndex finds marker in filtered and returns the index of the
// entry just after it, or 0 if marker is empty or no longer present.
func resumeIndex(filtered []*provider.SubProject, marker string) int {
	if marker == "" {
		return 0
	}
	for i, sp := range filtered {
		if sp.Name == marker {
			return i + 1
		}
	}
	return 0
}

func (c *Crawler) discovererFor(origin string) provider.AuthenticatedDiscoverer {
	lower := strings.ToLower(origin)
	for _, disc := range c.Discoverers {
		if strings.Contains(lower, disc.Name()) {
			return disc
		}
	}
	if len(c.Discoverers) == 1 {
		return c.Discoverers[0]
	}
	return nil
}

func (c *Crawler) credentialFor(ciphertext string) (*gitfetch.Credential, error) {
	if ciphertext == "" {
		return nil, nil
	}
	plaintext, err := c.Cipher.Decrypt(ciphertext)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrAuthFailure)
	}
	return &gitfetch.Credential{Token: plaintext}, nil
}

func (c *Crawler) finish(ctx context.Context, id string) error {
	c.Progress.UpdateStatus(id, model.StatusIndexing)
	commitCtx, cancelFn := context.WithTimeout(ctx, OrchestratorCommitTimeout)
	defer cancelFn()
	if err := c.Writer.Commit(commitCtx); err != nil {
		return c.fail(id, err)
	}

	if err := c.Store.FinishCrawl(id, true, time.Now()); err != nil {
		return c.fail(id, err)
	}
	c.Progress.Complete(id)
	c.Cancels.Deregister(id)
	return nil
}

func (c *Crawler) fail(id string, cause error) error {
	_ = c.Store.FinishCrawl(id, false, time.Now())
	c.Progress.Fail(id, cause.Error())
	c.Cancels.Deregister(id)
	return cause
}
