// Package entitystore defines the entity store port (interface).
package entitystore

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("entity store closed")

// Record is one stored entity: a caller-supplied identifier and an opaque payload.
type Record struct {
	ID      int64           `json:"id"`
	Content json.RawMessage `json:"content"`
}

// Store is the port interface for durable, uniqueness-enforcing entity persistence.
type Store interface {
	// Init loads the backing storage. Missing or unreadable state becomes an
	// empty, persisted collection. Calling Init again must not lose or
	// duplicate records.
	Init(ctx context.Context) error

	// Add appends a new record. A duplicate id fails with a server-class
	// domain.Fault wrapping domain.ErrDuplicateID; a write failure fails with
	// a server-class fault wrapping domain.ErrPersistence.
	Add(ctx context.Context, id int64, content json.RawMessage) error

	// Get looks up a record by id. A missing record is reported as
	// (nil, false, nil), never as an error.
	Get(ctx context.Context, id int64) (*Record, bool, error)

	// DeleteAll clears the collection and persists the empty state.
	DeleteAll(ctx context.Context) error

	// Len returns the number of stored records.
	Len(ctx context.Context) (int, error)

	// Close releases the store.
	Close() error
}
