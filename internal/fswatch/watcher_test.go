// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package fswatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type countingCrawler struct {
	mu    sync.Mutex
	calls []string
}

func (c *countingCrawler) Crawl(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, id)
	return nil
}

func (c *countingCrawler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func TestWatchFiresDebouncedCrawlOnChange(t *testing.T) {
	root := t.TempDir()

	crawler := &countingCrawler{}
	w, err := New(crawler, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Watch("repo-1", root, 50*time.Millisecond); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for crawler.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if crawler.count() == 0 {
		t.Fatal("expected at least one crawl to fire after a filesystem change")
	}
}

func TestUnwatchStopsFurtherCrawls(t *testing.T) {
	root := t.TempDir()

	crawler := &countingCrawler{}
	w, err := New(crawler, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Watch("repo-1", root, 30*time.Millisecond); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	w.Unwatch("repo-1")

	if err := os.WriteFile(filepath.Join(root, "b.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if crawler.count() != 0 {
		t.Fatalf("expected no crawls after Unwatch, got %d", crawler.count())
	}
}

func TestCollectDirsSkipsHiddenAndBuildOutputDirs(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{".git", "node_modules", "src"} {
		if err := os.MkdirAll(filepath.Join(root, rel), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
	}

	dirs, err := collectDirs(root)
	if err != nil {
		t.Fatalf("collectDirs: %v", err)
	}

	want := map[string]bool{root: true, filepath.Join(root, "src"): true}
	got := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		got[d] = true
	}
	for d := range want {
		if !got[d] {
			t.Fatalf("expected %s to be watched", d)
		}
	}
	if got[filepath.Join(root, ".git")] || got[filepath.Join(root, "node_modules")] {
		t.Fatal(".git and node_modules must not be watched")
	}
}
