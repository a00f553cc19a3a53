package gittree

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

func newTestRepo(t *testing.T) (*git.Repository, *git.Worktree) {
	t.Helper()
	fs := memfs.New()
	storer := memory.NewStorage()

	repo, err := git.Init(storer, fs)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	return repo, wt
}

func writeAndCommit(t *testing.T, repo *git.Repository, wt *git.Worktree, path, content string) {
	t.Helper()
	f, err := wt.Filesystem.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	if _, err := f.Write([]byte(content)); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	f.Close()

	if _, err := wt.Add(path); err != nil {
		t.Fatalf("add %s: %v", path, err)
	}
	_, err = wt.Commit("add "+path, &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func currentBranch(t *testing.T, repo *git.Repository) string {
	t.Helper()
	head, err := repo.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	return head.Name().Short()
}

func TestEntriesListsBlobsInSortedOrder(t *testing.T) {
	repo, wt := newTestRepo(t)
	writeAndCommit(t, repo, wt, "b.go", "package main")
	writeAndCommit(t, repo, wt, "a.go", "package main")

	w := New(repo)
	entries, err := w.Entries(currentBranch(t, repo))
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Path != "a.go" || entries[1].Path != "b.go" {
		t.Fatalf("entries not sorted by path: %+v", entries)
	}
}

func TestReadBlobSkipsBinary(t *testing.T) {
	repo, wt := newTestRepo(t)
	writeAndCommit(t, repo, wt, "bin.dat", "hello\x00world")

	w := New(repo)
	entries, err := w.Entries(currentBranch(t, repo))
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	_, ok, err := w.ReadBlob(entries[0].ObjectID)
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if ok {
		t.Fatal("expected a NUL-containing blob to be skipped as binary")
	}
}

func TestReadBlobReturnsContent(t *testing.T) {
	repo, wt := newTestRepo(t)
	writeAndCommit(t, repo, wt, "main.go", "package main\n")

	w := New(repo)
	entries, err := w.Entries(currentBranch(t, repo))
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}

	data, ok, err := w.ReadBlob(entries[0].ObjectID)
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if !ok {
		t.Fatal("expected blob to be readable")
	}
	if string(data) != "package main\n" {
		t.Fatalf("content = %q", data)
	}
}

func TestListBranchesExcludesHeadAliasAndDedupes(t *testing.T) {
	repo, wt := newTestRepo(t)
	writeAndCommit(t, repo, wt, "a.go", "package main")

	w := New(repo)
	branches, err := w.ListBranches()
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	if len(branches) != 1 {
		t.Fatalf("got %d branches, want 1: %v", len(branches), branches)
	}
	for _, b := range branches {
		if b == "HEAD" {
			t.Fatal("HEAD alias must be excluded from branch enumeration")
		}
	}
}
