package ledger

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. All of them leave the ledger
// unchanged except PersistenceError, whose guarantees depend on the
// failed operation (see IngestEvent).
var (
	// ErrInvalidArgument: a required string is empty or a parent id is
	// malformed. Caller-correctable.
	ErrInvalidArgument = errors.New("ledger: invalid argument")

	// ErrUnknownParent: an explicit parent id does not exist.
	ErrUnknownParent = errors.New("ledger: unknown parent event")

	// ErrCausalLoop: the proposed parent set would close a cycle.
	ErrCausalLoop = errors.New("ledger: causal loop")

	// ErrNotFound: a lookup referenced an unknown event id.
	ErrNotFound = errors.New("ledger: event not found")

	// ErrClosed: the ledger has been shut down.
	ErrClosed = errors.New("ledger: closed")
)

// PersistenceError wraps a log-append, event-store, or index-snapshot
// failure. The failed ingestion must be treated as failed by the caller;
// the ledger itself stays usable when the log append succeeded, because
// the log remains the source of truth.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger: persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
