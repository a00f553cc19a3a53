// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package scheduler implements the Scheduler (C10): an in-memory map
// from repository identity to a cron-driven background worker that
// fires crawls. Each worker is a goroutine torn down through its own
// cancel context and waited on before replacement.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gizzahub/gzh-crawl-core/internal/model"
)

// RetryDelay is how long a worker waits after a cron parse failure
// before trying again.
const RetryDelay = 60 * time.Second

// Store is the subset of the Repository State Store the scheduler
// needs: reloading a descriptor by id before each fire, and recording
// the computed next_fire time.
type Store interface {
	Get(id string) (model.RepositoryDescriptor, bool)
	Update(model.RepositoryDescriptor) error
}

// Crawler fires a crawl for a reloaded descriptor.
type Crawler interface {
	Crawl(ctx context.Context, descriptor model.RepositoryDescriptor) error
}

// Logger is the minimal leveled-logging surface the scheduler needs.
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

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

type job struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Scheduler owns one worker goroutine per scheduled repository.
type Scheduler struct {
	store   Store
	crawler Crawler
	logger  Logger

	mu   sync.Mutex
	jobs map[string]*job
}

// New returns a scheduler backed by store and crawler. A nil logger
// disables logging.
func New(store Store, crawler Crawler, logger Logger) *Scheduler {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Scheduler{store: store, crawler: crawler, logger: logger, jobs: make(map[string]*job)}
}

// Schedule validates d's effective cron expression, replaces any
// prior worker for d.ID, and spawns a new one.
func (s *Scheduler) Schedule(d model.RepositoryDescriptor) error {
	expr := d.Schedule.EffectiveCron()
	if expr == "" {
		return fmt.Errorf("descriptor %s has no effective schedule", d.ID)
	}
	if _, err := cronParser.Parse(promote(expr)); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	s.Unschedule(d.ID)

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{cancel: cancel}

	s.mu.Lock()
	s.jobs[d.ID] = j
	s.mu.Unlock()

	j.wg.Add(1)
	go s.runWorker(ctx, j, d.ID)
	return nil
}

// Unschedule aborts the worker for id, if any, and nulls its
// next_fire field.
func (s *Scheduler) Unschedule(id string) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if ok {
		delete(s.jobs, id)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	j.cancel()
	j.wg.Wait()
	s.clearNextFire(id)
}

// ReloadAll schedules every descriptor with auto_enabled = true,
// replacing prior workers.
func (s *Scheduler) ReloadAll(descriptors []model.RepositoryDescriptor) error {
	var firstErr error
	for _, d := range descriptors {
		if !d.Schedule.AutoEnabled {
			continue
		}
		if err := s.Schedule(d); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Scheduler) runWorker(ctx context.Context, j *job, id string) {
	defer j.wg.Done()

	for {
		d, ok := s.store.Get(id)
		if !ok || !d.Schedule.AutoEnabled {
			s.clearNextFire(id)
			return
		}

		expr := promote(d.Schedule.EffectiveCron())
		schedule, err := cronParser.Parse(expr)
		if err != nil {
			s.logger.Warn("scheduler: invalid cron expression %q for repository %s: %v; retrying in %s", expr, id, err, RetryDelay)
			if !sleepOrDone(ctx, RetryDelay) {
				return
			}
			continue
		}

		next := schedule.Next(time.Now())
		d.Schedule.NextFire = &next
		_ = s.store.Update(d)

		if !sleepOrDone(ctx, time.Until(next)) {
			return
		}

		d, ok = s.store.Get(id)
		if !ok || !d.Schedule.AutoEnabled {
			s.clearNextFire(id)
			return
		}

		s.logger.Debug("scheduler: firing crawl for repository %s", id)
		if err := s.crawler.Crawl(ctx, d); err != nil {
			s.logger.Warn("scheduler: crawl for repository %s: %v", id, err)
		}
	}
}

// clearNextFire nulls a descriptor's next_fire: it must be nil
// whenever auto-scheduling is off.
func (s *Scheduler) clearNextFire(id string) {
	if d, ok := s.store.Get(id); ok && d.Schedule.NextFire != nil {
		d.Schedule.NextFire = nil
		_ = s.store.Update(d)
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// promote prepends "0 " to a 5-field cron expression so robfig/cron's
// seconds-aware parser can evaluate it; model.NormalizeCron performs
// the same promotion for persistence, this is the parse-time mirror.
func promote(expr string) string {
	if len(strings.Fields(expr)) == 5 {
		return "0 " + expr
	}
	return expr
}
