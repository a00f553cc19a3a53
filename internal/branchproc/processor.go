// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package branchproc implements the Branch Processor (C7): for one
// open repository, it walks every branch (or, for a filesystem
// descriptor, the directory tree once under the literal branch
// "HEAD") and drives eligible files through identity assignment and
// the search writer.
package branchproc

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"

	"github.com/gizzahub/gzh-crawl-core/internal/cancel"
	"github.com/gizzahub/gzh-crawl-core/internal/errors"
	"github.com/gizzahub/gzh-crawl-core/internal/gittree"
	"github.com/gizzahub/gzh-crawl-core/internal/identity"
	"github.com/gizzahub/gzh-crawl-core/internal/model"
	"github.com/gizzahub/gzh-crawl-core/internal/progress"
	"github.com/gizzahub/gzh-crawl-core/internal/searchindex"
)

// CommitTimeout bounds the per-branch writer commit.
const CommitTimeout = 60 * time.Second

var skippedDirs = map[string]struct{}{
	"node_modules": {}, "target": {}, "__pycache__": {},
}

// Processor drives C4/C5 for one repository.
type Processor struct {
	Writer   searchindex.Writer
	Progress *progress.Tracker
}

// New returns a Processor wired to the given writer and tracker.
func New(writer searchindex.Writer, tracker *progress.Tracker) *Processor {
	return &Processor{Writer: writer, Progress: tracker}
}

// counters carries files-processed/indexed totals across branches so
// the tracker's counters stay non-decreasing for the whole run; a
// GIT_MULTI sub-project run continues the parent's totals.
type counters struct {
	processed int
	indexed   int
}

// ProcessGit drives indexing for an open Git repository across every
// branch. progressID is the identity reported against the tracker
// (the repository's own identity for GIT, or the parent's for a
// GIT_MULTI sub-project). repoName/repoURL feed the content-identity
// formula and the document's repository facet.
//
// A branch that fails to resolve or commit is recorded against the
// snapshot and skipped; the remaining branches continue.
func (p *Processor) ProcessGit(ctx context.Context, repo *git.Repository, tok *cancel.Token, progressID, repoName, repoURL, defaultBranchHint string) error {
	walker := gittree.New(repo)
	branches, err := walker.ListBranches()
	if err != nil {
		return errors.WrapWithMessage(err, "list branches")
	}
	if len(branches) == 0 {
		hint := defaultBranchHint
		if hint == "" {
			hint = "main"
		}
		branches = []string{hint}
	}

	var n counters
	if snp, ok := p.Progress.Get(progressID); ok {
		n = counters{processed: snp.FilesProcessed, indexed: snp.FilesIndexed}
	}

	for _, branch := range branches {
		if tok.IsCancelled() {
			return nil
		}
		if err := p.processOneGitBranch(ctx, walker, tok, &n, progressID, repoName, repoURL, branch); err != nil {
			// Fatal to this branch only; siblings continue.
			p.Progress.RecordError(progressID, repoName+" ("+branch+"): "+err.Error())
			continue
		}
	}
	return nil
}

func (p *Processor) processOneGitBranch(ctx context.Context, walker *gittree.Walker, tok *cancel.Token, n *counters, progressID, repoName, repoURL, branch string) error {
	entries, err := walker.Entries(branch)
	if err != nil {
		return errors.WrapWithMessage(err, "resolve tree")
	}

	var eligible []gittree.Entry
	for _, e := range entries {
		if model.IsEligibleFile(e.Path) {
			eligible = append(eligible, e)
		}
	}

	label := repoName + " (" + branch + ")"
	p.Progress.SetCurrentSubProject(progressID, label, len(eligible), 0)

	done := 0
	for _, e := range eligible {
		if tok.IsCancelled() {
			return nil
		}
		p.Progress.SetCurrentFile(progressID, e.Path)

		content, ok, err := walker.ReadBlob(e.ObjectID)
		if err != nil {
			p.Progress.RecordError(progressID, e.Path+": "+err.Error())
			n.processed++
			p.Progress.UpdateCounters(progressID, n.processed, nil, n.indexed)
			continue
		}
		if !ok {
			// Oversized or binary; skipped, not an error.
			n.processed++
			p.Progress.UpdateCounters(progressID, n.processed, nil, n.indexed)
			continue
		}

		id := identity.ForGit(repoURL, branch, e.Path)
		doc := model.Document{
			FileName:       filepath.Base(e.Path),
			Path:           e.Path,
			Content:        string(content),
			RepositoryName: repoName,
			BranchTag:      branch,
			Extension:      strings.TrimPrefix(filepath.Ext(e.Path), "."),
		}
		n.processed++
		if err := p.Writer.Upsert(id, doc); err != nil {
			p.Progress.RecordError(progressID, e.Path+": "+err.Error())
			p.Progress.UpdateCounters(progressID, n.processed, nil, n.indexed)
			continue
		}

		done++
		n.indexed++
		p.Progress.SetCurrentSubProject(progressID, label, len(eligible), done)
		p.Progress.UpdateCounters(progressID, n.processed, nil, n.indexed)
	}

	commitCtx, cancelFn := context.WithTimeout(ctx, CommitTimeout)
	defer cancelFn()
	return p.Writer.Commit(commitCtx)
}

// ProcessFilesystem walks rootPath once under the literal branch
// "HEAD" (or the descriptor's hint), skipping hidden entries and
// common build-output directories.
func (p *Processor) ProcessFilesystem(ctx context.Context, rootPath string, tok *cancel.Token, progressID, repoName, branchHint string) error {
	branch := branchHint
	if branch == "" {
		branch = "HEAD"
	}

	var eligible []string
	err := filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(rootPath, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		base := filepath.Base(rel)
		if strings.HasPrefix(base, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if _, skip := skippedDirs[base]; skip {
				return filepath.SkipDir
			}
			return nil
		}
		info, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		if info.Size() > model.MaxIndexableFileBytes {
			return nil
		}
		if model.IsEligibleFile(rel) {
			eligible = append(eligible, rel)
		}
		return nil
	})
	if err != nil {
		return errors.WrapWithMessage(err, "walk filesystem tree")
	}

	label := repoName + " (" + branch + ")"
	total := len(eligible)
	p.Progress.SetCurrentSubProject(progressID, label, total, 0)
	p.Progress.UpdateCounters(progressID, 0, &total, 0)

	processed, indexed := 0, 0
	for _, rel := range eligible {
		if tok.IsCancelled() {
			return nil
		}
		p.Progress.SetCurrentFile(progressID, rel)

		data, err := os.ReadFile(filepath.Join(rootPath, rel))
		if err != nil {
			p.Progress.RecordError(progressID, rel+": "+err.Error())
			processed++
			p.Progress.UpdateCounters(progressID, processed, nil, indexed)
			continue
		}
		if bytes.IndexByte(data, 0) >= 0 {
			processed++
			p.Progress.UpdateCounters(progressID, processed, nil, indexed)
			continue
		}

		id := identity.ForFilesystem(rootPath, rel)
		doc := model.Document{
			FileName:       filepath.Base(rel),
			Path:           rel,
			Content:        string(data),
			RepositoryName: repoName,
			BranchTag:      branch,
			Extension:      strings.TrimPrefix(filepath.Ext(rel), "."),
		}
		processed++
		if err := p.Writer.Upsert(id, doc); err != nil {
			p.Progress.RecordError(progressID, rel+": "+err.Error())
			p.Progress.UpdateCounters(progressID, processed, nil, indexed)
			continue
		}

		indexed++
		p.Progress.SetCurrentSubProject(progressID, label, total, processed)
		p.Progress.UpdateCounters(progressID, processed, nil, indexed)
	}

	commitCtx, cancelFn := context.WithTimeout(ctx, CommitTimeout)
	defer cancelFn()
	return p.Writer.Commit(commitCtx)
}
