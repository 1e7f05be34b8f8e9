package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a session, message, user, or chart is absent,
// or when the caller does not own it. Owner mismatches are indistinguishable
// from absence so non-owners cannot test for existence.
var ErrNotFound = errors.New("not found")

// ErrStoreUnavailable indicates a transient failure of the cache or
// permanent-store backend. Always retryable.
var ErrStoreUnavailable = errors.New("store unavailable")

// PersistError reports a partially failed persist batch. It carries the
// per-call counts so callers can decide whether eviction is safe.
type PersistError struct {
	SessionID string
	Inserted  int
	Failed    int
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist for session %s incomplete: %d inserted, %d failed",
		e.SessionID, e.Inserted, e.Failed)
}
