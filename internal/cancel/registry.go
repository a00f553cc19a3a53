// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package cancel implements the Cancellation Registry (C2): a
// process-wide map from repository identity to a cooperative
// cancellation token, shared by every piece of work spawned for that
// repository's crawl.
package cancel

import "sync"

// Token is a cooperative cancellation signal. Cancel is idempotent;
// IsCancelled is safe to call from any holder of the token.
type Token struct {
	mu        sync.Mutex
	cancelled bool
	done      chan struct{}
}

// NewToken returns an un-cancelled token.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Cancel signals the token. Calling it more than once has no
// additional effect.
func (t *Token) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return
	}
	t.cancelled = true
	close(t.done)
}

// IsCancelled reports whether Cancel has been called.
func (t *Token) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Done returns a channel that is closed when the token is cancelled,
// for use in select statements alongside context deadlines.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Registry is the process-wide map from repository identity to its
// active cancellation token. A second Register call for an identity
// that is already present fails with ok=false, which the orchestrator
// maps to a Conflict error; this is how "at most one active crawl
// per descriptor" is enforced.
type Registry struct {
	mu     sync.Mutex
	tokens map[string]*Token
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tokens: make(map[string]*Token)}
}

// Register creates and stores a fresh token for id. ok is false if a
// token for id is already registered (a crawl is already running).
func (r *Registry) Register(id string) (token *Token, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tokens[id]; exists {
		return nil, false
	}
	token = NewToken()
	r.tokens[id] = token
	return token, true
}

// Lookup returns the token registered for id, if any.
func (r *Registry) Lookup(id string) (*Token, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	return token, ok
}

// Cancel cancels the token registered for id, if any. It reports
// whether a token was found.
func (r *Registry) Cancel(id string) bool {
	token, ok := r.Lookup(id)
	if !ok {
		return false
	}
	token.Cancel()
	return true
}

// Deregister removes id's token from the registry. It is the
// orchestrator's responsibility to call this exactly once per crawl,
// on every exit path (success, failure, or cancellation).
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, id)
}

// IsActive reports whether id currently has a registered token, i.e.
// whether a crawl for it is running.
func (r *Registry) IsActive(id string) bool {
	_, ok := r.Lookup(id)
	return ok
}
