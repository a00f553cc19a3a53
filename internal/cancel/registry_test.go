package cancel

import (
	"sync"
	"testing"
)

func TestRegisterRejectsConflict(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Register("repo-1"); !ok {
		t.Fatal("first Register should succeed")
	}
	if _, ok := r.Register("repo-1"); ok {
		t.Fatal("second concurrent Register for the same id should fail")
	}
}

func TestDeregisterAllowsReRegister(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Register("repo-1"); !ok {
		t.Fatal("first Register should succeed")
	}
	r.Deregister("repo-1")

	if _, ok := r.Register("repo-1"); !ok {
		t.Fatal("Register after Deregister should succeed")
	}
}

func TestCancelIsIdempotentAndObservable(t *testing.T) {
	tok := NewToken()
	if tok.IsCancelled() {
		t.Fatal("fresh token should not be cancelled")
	}

	tok.Cancel()
	tok.Cancel() // must not panic on double-close

	if !tok.IsCancelled() {
		t.Fatal("token should be cancelled after Cancel")
	}

	select {
	case <-tok.Done():
	default:
		t.Fatal("Done channel should be closed after Cancel")
	}
}

func TestRegistryCancelByID(t *testing.T) {
	r := NewRegistry()
	tok, _ := r.Register("repo-1")

	if r.Cancel("missing") {
		t.Fatal("Cancel on an unknown id should return false")
	}
	if !r.Cancel("repo-1") {
		t.Fatal("Cancel on a registered id should return true")
	}
	if !tok.IsCancelled() {
		t.Fatal("the underlying token should be cancelled")
	}
}

func TestOnlyOneOfNConcurrentRegistersSucceeds(t *testing.T) {
	r := NewRegistry()
	const n = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := r.Register("shared"); ok {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly 1 of %d concurrent Registers to succeed, got %d", n, successes)
	}
}
