// Package eventstore provides the durable event-body map keyed by event
// id. Bodies are canonical event serializations; lookups avoid scanning
// the log. Writes happen after the log append so the log stays
// authoritative on a mid-write crash.
package eventstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no body exists for the event id.
var ErrNotFound = errors.New("eventstore: event not found")

// Store is the embedded key-value contract: durable, safe open/close,
// put/get by event id, and iteration.
type Store interface {
	Put(ctx context.Context, eventID string, body []byte) error
	Get(ctx context.Context, eventID string) ([]byte, error)
	Has(ctx context.Context, eventID string) (bool, error)
	Iterate(ctx context.Context, fn func(eventID string, body []byte) error) error
	Len(ctx context.Context) (int, error)
	Close() error
}
