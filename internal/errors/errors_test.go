package errors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		wantIs error
	}{
		{
			name:   "wrap with target",
			err:    errors.New("clone failed"),
			target: ErrTimeout,
			wantIs: ErrTimeout,
		},
		{
			name:   "nil err returns target",
			err:    nil,
			target: ErrConflict,
			wantIs: ErrConflict,
		},
		{
			name:   "nil target returns err",
			err:    errors.New("original"),
			target: nil,
			wantIs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.err, tt.target)
			if tt.wantIs != nil && !Is(got, tt.wantIs) {
				t.Errorf("Wrap() error should match %v", tt.wantIs)
			}
		})
	}
}

func TestWrapWithMessage(t *testing.T) {
	original := errors.New("original error")
	wrapped := WrapWithMessage(original, "context")

	if wrapped == nil {
		t.Error("WrapWithMessage should return non-nil error")
	}

	if !Is(wrapped, original) {
		t.Error("wrapped error should match original")
	}

	if WrapWithMessage(nil, "context") != nil {
		t.Error("WrapWithMessage(nil) should return nil")
	}
}

func TestCrawlErrorKinds(t *testing.T) {
	kinds := []error{
		ErrNotFound,
		ErrConflict,
		ErrBadRequest,
		ErrAuthFailure,
		ErrTimeout,
		ErrTransient,
		ErrFatal,
	}

	for _, err := range kinds {
		if err == nil {
			t.Error("crawl error kind should not be nil")
		}
	}
}

func TestWrapPreservesBothTargets(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	wrapped := Wrap(cause, ErrTimeout)

	if !Is(wrapped, ErrTimeout) {
		t.Error("wrapped error should match ErrTimeout")
	}
	if !Is(wrapped, cause) {
		t.Error("wrapped error should still match its cause")
	}
	if wrapped.Error() != cause.Error() {
		t.Errorf("wrapped error message = %q, want %q", wrapped.Error(), cause.Error())
	}
}
