// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Limiter paces namespace-discovery API calls against a remote host's
// rate limit. Discoverers call Wait before each page request and feed
// every response back through UpdateFromHeaders so the local budget
// tracks what the host actually granted.
type Limiter struct {
	mu         sync.Mutex
	limit      int
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

// NewLimiter returns a limiter assuming a budget of limit requests
// per hour until the first response headers correct it.
func NewLimiter(limit int) *Limiter {
	if limit <= 0 {
		limit = 5000
	}
	return &Limiter{
		limit:     limit,
		remaining: limit,
		reset:     time.Now().Add(time.Hour),
	}
}

// Wait blocks until the budget allows one more request, honoring a
// pending Retry-After before the budget itself. It returns early with
// the context's error if ctx is cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()

	if l.retryAfter > 0 {
		d := l.retryAfter
		l.retryAfter = 0
		l.mu.Unlock()
		if err := sleep(ctx, d); err != nil {
			return err
		}
		l.mu.Lock()
	}

	if l.remaining <= 0 && time.Now().Before(l.reset) {
		d := time.Until(l.reset)
		l.mu.Unlock()
		if err := sleep(ctx, d); err != nil {
			return err
		}
		l.mu.Lock()
	}

	l.remaining--
	l.mu.Unlock()
	return nil
}

// Header name prefixes for the hosts the discoverers talk to: GitHub
// uses X-RateLimit-, GitLab bare RateLimit-.
var headerPrefixes = []string{"X-RateLimit-", "RateLimit-"}

// UpdateFromHeaders replaces the locally tracked budget with whatever
// the response headers declare. Absent headers leave the current
// estimate untouched.
func (l *Limiter) UpdateFromHeaders(resp *http.Response) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, prefix := range headerPrefixes {
		if v := resp.Header.Get(prefix + "Remaining"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				l.remaining = n
			}
		}
		if v := resp.Header.Get(prefix + "Limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				l.limit = n
			}
		}
		if v := resp.Header.Get(prefix + "Reset"); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				l.reset = time.Unix(n, 0)
			}
		}
	}

	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			l.retryAfter = time.Duration(seconds) * time.Second
		}
	}
}

// Status returns the tracked budget, for hosts (GitLab) that expose
// no dedicated rate-limit endpoint to query.
func (l *Limiter) Status() (remaining, limit int, reset time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remaining, l.limit, l.reset
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
