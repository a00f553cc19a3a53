// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package fswatch is an optional, descriptor-scoped trigger for
// FILESYSTEM crawls: a debounced fsnotify watch that calls the
// orchestrator the same way the scheduler does, instead of purely on
// a cron tick.
package fswatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last event
// for a path before firing a crawl, to coalesce a burst of writes
// (e.g. a `git checkout`) into one crawl.
const DefaultDebounce = 2 * time.Second

var skippedDirs = map[string]struct{}{
	"node_modules": {}, "target": {}, "__pycache__": {}, ".git": {},
}

// Crawler fires a crawl for a registered descriptor id. It is
// satisfied by *crawler.Crawler.
type Crawler interface {
	Crawl(ctx context.Context, id string) error
}

// Logger is the minimal leveled-logging surface the watcher needs.
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

type watch struct {
	root      string
	debounce  time.Duration
	timer     *time.Timer
	cancelCtx context.CancelFunc
}

// Watcher fans fsnotify events for one or more FILESYSTEM repository
// roots into debounced C8.crawl calls.
type Watcher struct {
	fsw     *fsnotify.Watcher
	crawler Crawler
	logger  Logger

	mu      sync.Mutex
	watches map[string]*watch // descriptor id -> watch state
	byPath  map[string]string // watched directory -> descriptor id
}

// New creates a Watcher. Call Close when done to release the
// underlying fsnotify handle.
func New(crawler Crawler, logger Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if logger == nil {
		logger = noopLogger{}
	}

	w := &Watcher{
		fsw:     fsw,
		crawler: crawler,
		logger:  logger,
		watches: make(map[string]*watch),
		byPath:  make(map[string]string),
	}
	go w.eventLoop()
	return w, nil
}

// Watch registers root for descriptor id: every subdirectory (minus
// .git and common build-output directories) is added to the fsnotify
// watch, and a debounced crawl fires on any subsequent change.
func (w *Watcher) Watch(id, root string, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w.Unwatch(id)

	dirs, err := collectDirs(root)
	if err != nil {
		return fmt.Errorf("walk %s: %w", root, err)
	}
	for _, dir := range dirs {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	w.mu.Lock()
	w.watches[id] = &watch{root: root, debounce: debounce}
	for _, dir := range dirs {
		w.byPath[dir] = id
	}
	w.mu.Unlock()

	w.logger.Info("fswatch: watching %s for repository %s (%d directories)", root, id, len(dirs))
	return nil
}

// Unwatch removes id's watch, if any, and stops its pending debounce
// timer.
func (w *Watcher) Unwatch(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	wt, ok := w.watches[id]
	if !ok {
		return
	}
	if wt.timer != nil {
		wt.timer.Stop()
	}
	delete(w.watches, id)
	for path, watchedID := range w.byPath {
		if watchedID == id {
			_ = w.fsw.Remove(path)
			delete(w.byPath, path)
		}
	}
}

// Close stops every watch and releases the fsnotify handle.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for id := range w.watches {
		if wt := w.watches[id]; wt.timer != nil {
			wt.timer.Stop()
		}
	}
	w.watches = make(map[string]*watch)
	w.byPath = make(map[string]string)
	w.mu.Unlock()

	return w.fsw.Close()
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fswatch: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	dir := filepath.Dir(event.Name)

	w.mu.Lock()
	id, ok := w.byPath[dir]
	if !ok {
		id, ok = w.byPath[event.Name]
	}
	if !ok {
		w.mu.Unlock()
		return
	}
	wt := w.watches[id]
	if wt == nil {
		w.mu.Unlock()
		return
	}
	if wt.timer != nil {
		wt.timer.Stop()
	}
	wt.timer = time.AfterFunc(wt.debounce, func() { w.fire(id) })
	w.mu.Unlock()
}

func (w *Watcher) fire(id string) {
	w.logger.Debug("fswatch: debounce elapsed for repository %s, triggering crawl", id)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	if err := w.crawler.Crawl(ctx, id); err != nil {
		w.logger.Warn("fswatch: crawl for repository %s: %v", id, err)
	}
}

// collectDirs walks root and returns every directory worth watching,
// skipping hidden entries and common build-output directories the way
// branchproc's filesystem walk does.
func collectDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if path != root && strings.HasPrefix(base, ".") {
			return filepath.SkipDir
		}
		if _, skip := skippedDirs[base]; skip {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}
