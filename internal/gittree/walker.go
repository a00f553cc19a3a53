// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package gittree implements the Git Tree Walker (C5): reading file
// blobs directly out of a repository's object database for a given
// branch, without touching the working tree. This keeps all branches
// of one clone processable from the same path in turn, since no
// checkout ever mutates the filesystem.
package gittree

import (
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/gizzahub/gzh-crawl-core/internal/errors"
	"github.com/gizzahub/gzh-crawl-core/internal/model"
)

// Entry is one blob reachable from a branch's tree.
type Entry struct {
	Path     string
	ObjectID string
}

// Walker resolves branch trees and reads blobs for one open
// repository handle.
type Walker struct {
	repo *git.Repository
}

// New wraps an already-open repository handle.
func New(repo *git.Repository) *Walker {
	return &Walker{repo: repo}
}

// ListBranches returns the enumeration required by the Branch
// Processor: local and remote branches, origin/-stripped and
// deduplicated, excluding the symbolic HEAD alias.
func (w *Walker) ListBranches() ([]string, error) {
	seen := make(map[string]struct{})

	refs, err := w.repo.References()
	if err != nil {
		return nil, errors.WrapWithMessage(err, "list references")
	}
	defer refs.Close()

	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name()
		var branch string
		switch {
		case name.IsBranch():
			branch = name.Short()
		case name.IsRemote():
			short := name.Short()
			if short == "origin/HEAD" || strings.HasSuffix(short, "/HEAD") {
				return nil
			}
			branch = strings.TrimPrefix(short, "origin/")
		default:
			return nil
		}
		if branch == "" || branch == "HEAD" {
			return nil
		}
		seen[branch] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, errors.WrapWithMessage(err, "enumerate branches")
	}

	branches := make([]string, 0, len(seen))
	for b := range seen {
		branches = append(branches, b)
	}
	sort.Strings(branches)
	return branches, nil
}

// Entries resolves branch's tree and recursively lists every blob
// entry, in a deterministic path-sorted order.
func (w *Walker) Entries(branch string) ([]Entry, error) {
	tree, err := w.resolveTree(branch)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()

	for {
		name, te, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapWithMessage(err, "walk tree")
		}
		if !te.Mode.IsFile() {
			continue
		}
		entries = append(entries, Entry{Path: name, ObjectID: te.Hash.String()})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// ReadBlob reads a blob's content given its object id, skipping
// anything over MaxIndexableFileBytes or containing a NUL byte (a
// binary heuristic). ok is false when the blob was skipped for either
// reason; err is non-nil only on a genuine read failure.
func (w *Walker) ReadBlob(objectID string) (content []byte, ok bool, err error) {
	hash := plumbing.NewHash(objectID)
	blob, err := w.repo.BlobObject(hash)
	if err != nil {
		return nil, false, errors.WrapWithMessage(err, "open blob")
	}
	if blob.Size > model.MaxIndexableFileBytes {
		return nil, false, nil
	}

	reader, err := blob.Reader()
	if err != nil {
		return nil, false, errors.WrapWithMessage(err, "open blob reader")
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, errors.WrapWithMessage(err, "read blob")
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, false, nil
	}
	return data, true, nil
}

func (w *Walker) resolveTree(branch string) (*object.Tree, error) {
	ref, err := w.resolveBranchRef(branch)
	if err != nil {
		return nil, err
	}
	commit, err := w.repo.CommitObject(ref)
	if err != nil {
		return nil, errors.WrapWithMessage(err, "resolve commit")
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, errors.WrapWithMessage(err, "resolve tree")
	}
	return tree, nil
}

func (w *Walker) resolveBranchRef(branch string) (plumbing.Hash, error) {
	candidates := []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(branch),
		plumbing.NewRemoteReferenceName("origin", branch),
	}
	for _, name := range candidates {
		ref, err := w.repo.Reference(name, true)
		if err == nil {
			return ref.Hash(), nil
		}
	}
	return plumbing.ZeroHash, errors.Wrap(errors.WrapWithMessage(plumbing.ErrReferenceNotFound, "resolve branch "+branch), errors.ErrNotFound)
}
