// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package errors defines the error kinds the crawl core returns to its
// callers and small helpers for wrapping and classifying them.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per kind in the crawl core's propagation policy.
// Callers classify a returned error with errors.Is against these.
var (
	// ErrNotFound is returned when a repository descriptor, snapshot,
	// or cancellation token does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a crawl is requested for a
	// descriptor that is already registered in the cancellation
	// registry.
	ErrConflict = errors.New("conflict: crawl already in progress")

	// ErrBadRequest is returned for a disabled descriptor, a malformed
	// cron expression, or an invalid access credential shape.
	ErrBadRequest = errors.New("bad request")

	// ErrAuthFailure is returned when an upstream discovery host
	// rejects the access credential.
	ErrAuthFailure = errors.New("authentication failed")

	// ErrTimeout is returned when a clone, fetch, or commit exceeds
	// its declared upper bound.
	ErrTimeout = errors.New("operation timed out")

	// ErrTransient marks an error that was aggregated from a failed
	// sub-project but did not terminate the parent crawl.
	ErrTransient = errors.New("transient sub-operation failure")

	// ErrFatal marks an unrecoverable error: the state store is
	// unreachable or the search index cannot accept writes.
	ErrFatal = errors.New("fatal")
)

// Wrap returns an error that is both err and target under errors.Is,
// preserving err's message. If err is nil, target is returned
// unwrapped (possibly nil). If target is nil, err is returned as-is.
func Wrap(err, target error) error {
	if err == nil {
		return target
	}
	if target == nil {
		return err
	}
	return &wrapped{msg: err.Error(), cause: err, target: target}
}

// WrapWithMessage annotates err with a message while keeping it
// matchable via errors.Is/errors.As. Returns nil if err is nil.
func WrapWithMessage(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether err matches target, delegating to errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// wrapped carries a cause for display and a target kind for
// classification, so a single error value answers errors.Is for both.
type wrapped struct {
	msg    string
	cause  error
	target error
}

func (w *wrapped) Error() string { return w.msg }

func (w *wrapped) Unwrap() []error { return []error{w.cause, w.target} }
