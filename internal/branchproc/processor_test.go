package branchproc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/gizzahub/gzh-crawl-core/internal/cancel"
	"github.com/gizzahub/gzh-crawl-core/internal/progress"
	"github.com/gizzahub/gzh-crawl-core/internal/searchindex"
)

func newGitRepo(t *testing.T) *git.Repository {
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

	for _, name := range []string{"main.go", "README", "ignored.bin"} {
		f, err := wt.Filesystem.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		content := "package main"
		if name == "ignored.bin" {
			content = "\x00\x01\x02"
		}
		f.Write([]byte(content))
		f.Close()
		if _, err := wt.Add(name); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	_, err = wt.Commit("init", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return repo
}

func TestProcessGitUpsertsEligibleFilesOnly(t *testing.T) {
	repo := newGitRepo(t)
	w := searchindex.NewMemoryWriter()
	tr := progress.NewTracker()
	tr.Start("repo-1")

	p := New(w, tr)
	tok := cancel.NewToken()

	if err := p.ProcessGit(context.Background(), repo, tok, "repo-1", "demo", "https://example.com/demo.git", ""); err != nil {
		t.Fatalf("ProcessGit: %v", err)
	}

	if got := w.DocumentCount(); got != 2 {
		t.Fatalf("DocumentCount() = %d, want 2 (main.go + README, binary excluded)", got)
	}
}

func TestProcessFilesystemSkipsHiddenAndBuildDirs(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "main.go"), "package main")
	mustWrite(t, filepath.Join(root, ".hidden", "secret.go"), "package secret")
	mustWrite(t, filepath.Join(root, "node_modules", "x.go"), "package x")

	w := searchindex.NewMemoryWriter()
	tr := progress.NewTracker()
	tr.Start("repo-1")
	p := New(w, tr)
	tok := cancel.NewToken()

	if err := p.ProcessFilesystem(context.Background(), root, tok, "repo-1", "demo", ""); err != nil {
		t.Fatalf("ProcessFilesystem: %v", err)
	}

	if got := w.DocumentCount(); got != 1 {
		t.Fatalf("DocumentCount() = %d, want 1", got)
	}
}

func TestProcessFilesystemRespectsCancellation(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "a.go"), "package a")
	mustWrite(t, filepath.Join(root, "b.go"), "package b")

	w := searchindex.NewMemoryWriter()
	tr := progress.NewTracker()
	tr.Start("repo-1")
	p := New(w, tr)
	tok := cancel.NewToken()
	tok.Cancel()

	if err := p.ProcessFilesystem(context.Background(), root, tok, "repo-1", "demo", ""); err != nil {
		t.Fatalf("ProcessFilesystem: %v", err)
	}
	if got := w.DocumentCount(); got != 0 {
		t.Fatalf("DocumentCount() = %d, want 0 for a cancelled run", got)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestProcessGitCountersAccumulateAcrossBranches(t *testing.T) {
	repo := newGitRepo(t)
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName("feature"),
		Create: true,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	f, err := wt.Filesystem.Create("extra.go")
	if err != nil {
		t.Fatalf("create extra.go: %v", err)
	}
	f.Write([]byte("package extra"))
	f.Close()
	if _, err := wt.Add("extra.go"); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err = wt.Commit("extra", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	w := searchindex.NewMemoryWriter()
	tr := progress.NewTracker()
	tr.Start("repo-1")
	p := New(w, tr)

	err = p.ProcessGit(context.Background(), repo, cancel.NewToken(), "repo-1", "demo", "https://example.com/demo.git", "")
	if err != nil {
		t.Fatalf("ProcessGit: %v", err)
	}

	// Two eligible files on master, three on feature:
	// the counters must accumulate, never reset between branches.
	snp, _ := tr.Get("repo-1")
	if snp.FilesProcessed != 5 {
		t.Fatalf("FilesProcessed = %d, want 5 accumulated across both branches", snp.FilesProcessed)
	}
	if snp.FilesIndexed != 5 {
		t.Fatalf("FilesIndexed = %d, want 5", snp.FilesIndexed)
	}
}
