package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gizzahub/gzh-crawl-core/internal/model"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string]model.RepositoryDescriptor
}

func newFakeStore(descriptors ...model.RepositoryDescriptor) *fakeStore {
	s := &fakeStore{data: make(map[string]model.RepositoryDescriptor)}
	for _, d := range descriptors {
		s.data[d.ID] = d
	}
	return s
}

func (s *fakeStore) Get(id string) (model.RepositoryDescriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[id]
	return d, ok
}

func (s *fakeStore) Update(d model.RepositoryDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[d.ID] = d
	return nil
}

type fakeCrawler struct {
	mu    sync.Mutex
	calls int
	done  chan struct{}
}

func newFakeCrawler() *fakeCrawler {
	return &fakeCrawler{done: make(chan struct{}, 16)}
}

func (c *fakeCrawler) Crawl(ctx context.Context, d model.RepositoryDescriptor) error {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	select {
	case c.done <- struct{}{}:
	default:
	}
	return nil
}

func (c *fakeCrawler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func everySecondDescriptor(id string) model.RepositoryDescriptor {
	d := model.RepositoryDescriptor{ID: id, Name: id, Kind: model.KindFilesystem}
	d.Schedule.AutoEnabled = true
	d.Schedule.CronExpression = "* * * * * *"
	return d
}

func TestScheduleFiresCrawlAndSetsNextFire(t *testing.T) {
	d := everySecondDescriptor("repo-1")
	store := newFakeStore(d)
	crawler := newFakeCrawler()
	s := New(store, crawler, nil)

	if err := s.Schedule(d); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	defer s.Unschedule("repo-1")

	select {
	case <-crawler.done:
	case <-time.After(3 * time.Second):
		t.Fatal("expected at least one crawl to fire within 3s")
	}

	reloaded, _ := store.Get("repo-1")
	if reloaded.Schedule.NextFire == nil {
		t.Fatal("expected next_fire to be set")
	}
}

func TestScheduleRejectsInvalidCron(t *testing.T) {
	d := model.RepositoryDescriptor{ID: "repo-1", Name: "repo-1", Kind: model.KindFilesystem}
	d.Schedule.CronExpression = "not a cron expression"
	store := newFakeStore(d)
	s := New(store, newFakeCrawler(), nil)

	if err := s.Schedule(d); err == nil {
		t.Fatal("expected an error for a malformed cron expression")
	}
}

func TestUnscheduleStopsFurtherCrawlsAndClearsNextFire(t *testing.T) {
	d := everySecondDescriptor("repo-1")
	store := newFakeStore(d)
	crawler := newFakeCrawler()
	s := New(store, crawler, nil)

	if err := s.Schedule(d); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	<-crawler.done

	s.Unschedule("repo-1")
	reloaded, _ := store.Get("repo-1")
	if reloaded.Schedule.NextFire != nil {
		t.Fatal("expected next_fire to be nulled after Unschedule")
	}

	countAfterStop := crawler.count()
	time.Sleep(1500 * time.Millisecond)
	if crawler.count() != countAfterStop {
		t.Fatal("expected no further crawls after Unschedule")
	}
}

func TestReloadAllSkipsDisabledDescriptors(t *testing.T) {
	enabled := everySecondDescriptor("enabled")
	disabled := everySecondDescriptor("disabled")
	disabled.Schedule.AutoEnabled = false

	store := newFakeStore(enabled, disabled)
	s := New(store, newFakeCrawler(), nil)

	if err := s.ReloadAll([]model.RepositoryDescriptor{enabled, disabled}); err != nil {
		t.Fatalf("ReloadAll: %v", err)
	}
	defer s.Unschedule("enabled")

	s.mu.Lock()
	_, enabledScheduled := s.jobs["enabled"]
	_, disabledScheduled := s.jobs["disabled"]
	s.mu.Unlock()

	if !enabledScheduled {
		t.Fatal("expected the enabled descriptor to be scheduled")
	}
	if disabledScheduled {
		t.Fatal("expected the disabled descriptor to be skipped")
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Error(string, ...interface{}) {}
func (l *recordingLogger) Warn(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func TestWorkerLogsCronParseFailureAndRetries(t *testing.T) {
	d := everySecondDescriptor("repo-1")
	store := newFakeStore(d)
	crawler := newFakeCrawler()
	logger := &recordingLogger{}
	s := New(store, crawler, logger)

	if err := s.Schedule(d); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	defer s.Unschedule("repo-1")

	// Wait for the first fire, then corrupt the stored expression so
	// the worker's next reload hits the parse-error branch.
	<-crawler.done
	broken := d
	broken.Schedule.CronExpression = "sixty * * * * *"
	if err := store.Update(broken); err != nil {
		t.Fatalf("Update: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for logger.warnCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if logger.warnCount() == 0 {
		t.Fatal("expected the worker to log the cron parse failure before retrying")
	}
}
