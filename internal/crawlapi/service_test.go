package crawlapi

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gizzahub/gzh-crawl-core/internal/cancel"
	"github.com/gizzahub/gzh-crawl-core/internal/crawler"
	"github.com/gizzahub/gzh-crawl-core/internal/errors"
	"github.com/gizzahub/gzh-crawl-core/internal/gitfetch"
	"github.com/gizzahub/gzh-crawl-core/internal/model"
	"github.com/gizzahub/gzh-crawl-core/internal/progress"
	"github.com/gizzahub/gzh-crawl-core/internal/reposave"
	"github.com/gizzahub/gzh-crawl-core/internal/scheduler"
	"github.com/gizzahub/gzh-crawl-core/internal/searchindex"
)

func newService(t *testing.T) *Service {
	t.Helper()
	store := reposave.NewStore(filepath.Join(t.TempDir(), "state.json"))
	writer := searchindex.NewMemoryWriter()
	tracker := progress.NewTracker()
	cancels := cancel.NewRegistry()
	crwl := crawler.New(store, writer, tracker, cancels, gitfetch.New(), t.TempDir())
	svc := New(store, writer, tracker, cancels, crwl, nil)
	sched := scheduler.New(store, NewSchedulerCrawler(svc), nil)
	svc.Scheduler = sched
	return svc
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	svc := newService(t)
	d := model.RepositoryDescriptor{Name: "repo-a", Kind: model.KindFilesystem, Origin: t.TempDir(), Enabled: true}

	if _, err := svc.Create(d); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := svc.Create(d); !errors.Is(err, errors.ErrBadRequest) {
		t.Fatalf("duplicate Create: got %v, want ErrBadRequest", err)
	}
}

func TestCreateRejectsGitMultiWithoutCredential(t *testing.T) {
	svc := newService(t)
	d := model.RepositoryDescriptor{Name: "org", Kind: model.KindGitMulti, Origin: "https://example.com", Enabled: true}

	if _, err := svc.Create(d); !errors.Is(err, errors.ErrBadRequest) {
		t.Fatalf("got %v, want ErrBadRequest", err)
	}
}

func TestUpdatePreservesCredentialWhenOmitted(t *testing.T) {
	svc := newService(t)
	created, err := svc.Create(model.RepositoryDescriptor{
		Name: "org", Kind: model.KindGitMulti, Origin: "https://example.com",
		Credential: "secret", Enabled: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(created.ID, model.RepositoryDescriptor{
		Name: "org", Kind: model.KindGitMulti, Origin: "https://example.com", Enabled: false,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Credential != "secret" {
		t.Fatalf("Credential = %q, want preserved %q", updated.Credential, "secret")
	}
}

func TestDeleteUnknownIsNotFound(t *testing.T) {
	svc := newService(t)
	if err := svc.Delete("missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestCrawlRejectsConcurrentCrawl(t *testing.T) {
	svc := newService(t)
	dir := t.TempDir()
	d, err := svc.Create(model.RepositoryDescriptor{Name: "fs", Kind: model.KindFilesystem, Origin: dir, Enabled: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, ok := svc.Cancels.Register(d.ID); !ok {
		t.Fatal("setup: expected Register to succeed")
	}

	if err := svc.Crawl(context.Background(), d.ID); !errors.Is(err, errors.ErrConflict) {
		t.Fatalf("Crawl: got %v, want ErrConflict", err)
	}
}

func TestCrawlDisabledDescriptorIsBadRequest(t *testing.T) {
	svc := newService(t)
	d, err := svc.Create(model.RepositoryDescriptor{Name: "fs", Kind: model.KindFilesystem, Origin: t.TempDir(), Enabled: false})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Crawl(context.Background(), d.ID); !errors.Is(err, errors.ErrBadRequest) {
		t.Fatalf("got %v, want ErrBadRequest", err)
	}
}

func TestResetIndexReportsBeforeAfter(t *testing.T) {
	svc := newService(t)
	id := model.Identity{}
	_ = svc.Writer.Upsert(id, model.Document{RepositoryName: "r", Path: "a.go"})
	_ = svc.Writer.Commit(context.Background())

	before, after, err := svc.ResetIndex(context.Background())
	if err != nil {
		t.Fatalf("ResetIndex: %v", err)
	}
	if before != 1 {
		t.Fatalf("before = %d, want 1", before)
	}
	if after != 0 {
		t.Fatalf("after = %d, want 0", after)
	}
}

func TestSetScheduleUnknownIsNotFound(t *testing.T) {
	svc := newService(t)
	if _, err := svc.SetSchedule("missing", model.ScheduleSubRecord{}); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestUpdateRenameRelabelsIndexedDocuments(t *testing.T) {
	svc := newService(t)
	created, err := svc.Create(model.RepositoryDescriptor{Name: "old-name", Kind: model.KindFilesystem, Origin: t.TempDir(), Enabled: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	id := model.Identity{1}
	_ = svc.Writer.Upsert(id, model.Document{RepositoryName: "old-name", Path: "a.go"})
	_ = svc.Writer.Commit(context.Background())

	patch := created
	patch.Name = "new-name"
	if _, err := svc.Update(created.ID, patch); err != nil {
		t.Fatalf("Update: %v", err)
	}

	res, err := svc.Writer.Search(model.SearchQuery{RepositoryFilter: "new-name"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("Total = %d, want the document filed under the new name", res.Total)
	}
}
