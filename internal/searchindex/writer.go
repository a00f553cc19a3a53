// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package searchindex defines the upsert/delete/commit contract the
// crawl core uses against a full-text index. The index's own
// tokenization and storage engine are an external collaborator; this
// package defines the contract plus an in-memory reference
// implementation that exercises it for tests.
package searchindex

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/gizzahub/gzh-crawl-core/internal/errors"
	"github.com/gizzahub/gzh-crawl-core/internal/model"
)

// Writer is the single-writer contract over the search index. Upsert
// mutations are staged and only become visible to Search/DocumentCount
// after a successful Commit; DeleteByIdentity, DeleteByRepositoryName
// and RenameRepository take effect immediately, since they are used to
// purge or rename state ahead of a crawl's upserts rather than as part
// of the upsert batch itself.
type Writer interface {
	// Upsert stages an atomic delete-then-add by identity. Multiple
	// upserts of the same identity before the next Commit collapse to
	// one document; the last call wins.
	Upsert(id model.Identity, doc model.Document) error

	DeleteByIdentity(id model.Identity) error

	// DeleteByRepositoryName removes every document filed under name
	// and reports how many were removed.
	DeleteByRepositoryName(name string) (int, error)

	// RenameRepository relabels every document's repository facet
	// from oldName to newName and reports how many were touched.
	RenameRepository(oldName, newName string) (int, error)

	// Commit flushes all staged Upsert calls durably. It must be
	// called with a context carrying the caller's timeout: branch
	// commits are bounded to 60s, orchestrator commits to 120s.
	Commit(ctx context.Context) error

	DocumentCount() int
	IndexSizeOnDiskMB() float64

	Search(query model.SearchQuery) (model.SearchResult, error)
}

type pendingOp struct {
	deleted bool
	doc     model.Document
}

// MemoryWriter is an in-memory Writer used as the default/test
// implementation of the facade.
type MemoryWriter struct {
	mu        sync.Mutex
	committed map[model.Identity]model.Document
	pending   map[model.Identity]pendingOp
}

// NewMemoryWriter returns an empty writer.
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{
		committed: make(map[model.Identity]model.Document),
		pending:   make(map[model.Identity]pendingOp),
	}
}

// Upsert implements Writer.
func (w *MemoryWriter) Upsert(id model.Identity, doc model.Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc.Identity = id
	w.pending[id] = pendingOp{doc: doc}
	return nil
}

// DeleteByIdentity implements Writer.
func (w *MemoryWriter) DeleteByIdentity(id model.Identity) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.committed, id)
	delete(w.pending, id)
	return nil
}

// DeleteByRepositoryName implements Writer.
func (w *MemoryWriter) DeleteByRepositoryName(name string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	count := 0
	for id, doc := range w.committed {
		if doc.RepositoryName == name {
			delete(w.committed, id)
			count++
		}
	}
	for id, op := range w.pending {
		if !op.deleted && op.doc.RepositoryName == name {
			delete(w.pending, id)
		}
	}
	return count, nil
}

// RenameRepository implements Writer.
func (w *MemoryWriter) RenameRepository(oldName, newName string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	count := 0
	for id, doc := range w.committed {
		if doc.RepositoryName == oldName {
			doc.RepositoryName = newName
			w.committed[id] = doc
			count++
		}
	}
	return count, nil
}

// Commit implements Writer.
func (w *MemoryWriter) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrTimeout)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for id, op := range w.pending {
		if op.deleted {
			delete(w.committed, id)
			continue
		}
		w.committed[id] = op.doc
	}
	w.pending = make(map[model.Identity]pendingOp)
	return nil
}

// DocumentCount implements Writer.
func (w *MemoryWriter) DocumentCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.committed)
}

// IndexSizeOnDiskMB implements Writer. The in-memory reference
// implementation approximates storage footprint from content length;
// a real index reports its actual on-disk size.
func (w *MemoryWriter) IndexSizeOnDiskMB() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	var bytes int
	for _, doc := range w.committed {
		bytes += len(doc.Content)
	}
	return float64(bytes) / (1024 * 1024)
}

// Search implements Writer.
func (w *MemoryWriter) Search(query model.SearchQuery) (model.SearchResult, error) {
	w.mu.Lock()
	docs := make([]model.Document, 0, len(w.committed))
	for _, doc := range w.committed {
		docs = append(docs, doc)
	}
	w.mu.Unlock()

	repoFilter := splitCSV(query.RepositoryFilter)
	branchFilter := splitCSV(query.BranchFilter)
	extFilter := splitCSV(query.ExtensionFilter)

	var matched []model.Document
	for _, doc := range docs {
		if query.Text != "" && !strings.Contains(strings.ToLower(doc.Content), strings.ToLower(query.Text)) {
			continue
		}
		if len(repoFilter) > 0 && !contains(repoFilter, doc.RepositoryName) {
			continue
		}
		if len(branchFilter) > 0 && !contains(branchFilter, doc.BranchTag) {
			continue
		}
		if len(extFilter) > 0 && !contains(extFilter, doc.Extension) {
			continue
		}
		matched = append(matched, doc)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Path < matched[j].Path
	})

	result := model.SearchResult{Total: len(matched)}

	start := query.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if query.Limit > 0 && start+query.Limit < end {
		end = start + query.Limit
	}
	for _, doc := range matched[start:end] {
		result.Hits = append(result.Hits, model.SearchHit{Document: doc, Score: 1})
	}

	if query.WithFacets {
		facets := &model.FacetCounts{
			ByRepository: make(map[string]int),
			ByExtension:  make(map[string]int),
		}
		for _, doc := range matched {
			facets.ByRepository[doc.RepositoryName]++
			facets.ByExtension[doc.Extension]++
		}
		result.Facets = facets
	}

	return result, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
