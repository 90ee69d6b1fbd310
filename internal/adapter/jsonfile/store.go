// Package jsonfile implements the entity store port on top of a single JSON
// document on local disk.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	cfotel "github.com/Strob0t/customerapi/internal/adapter/otel"
	"github.com/Strob0t/customerapi/internal/domain"
	"github.com/Strob0t/customerapi/internal/domain/customer"
	"github.com/Strob0t/customerapi/internal/port/entitystore"
)

// DefaultCollection is the top-level key holding the records array.
const DefaultCollection = "customers"

// errUnusable marks file states that Init replaces with an empty collection:
// missing, empty, unparsable or of the wrong shape.
var errUnusable = errors.New("store file unusable")

// Store keeps the whole collection in memory and rewrites the backing file
// after every mutation. A single RWMutex serializes writers, so the duplicate
// check, append and flush of Add form one step.
type Store struct {
	path       string
	collection string

	mu      sync.RWMutex
	records []entitystore.Record
	// extra preserves unrelated top-level keys found in the file.
	extra  map[string]json.RawMessage
	loaded bool
	closed bool
}

// Ensure Store implements entitystore.Store at compile time.
var _ entitystore.Store = (*Store)(nil)

// New creates a store backed by path. The file is not touched until Init.
func New(path, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{path: path, collection: collection}
}

// Open creates a store and initializes it.
func Open(ctx context.Context, path, collection string) (*Store, error) {
	s := New(path, collection)
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Init loads the backing file. A missing, empty or unparsable file resets the
// collection to empty and persists that state immediately. Any other failure,
// such as a permission error or duplicate ids in the file, is returned and the
// file is left untouched.
func (s *Store) Init(ctx context.Context) error {
	ctx, span := cfotel.StartStoreSpan(ctx, "init", 0)
	defer span.End()
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return entitystore.ErrClosed
	}

	records, extra, err := s.read()
	if err == nil {
		s.records = records
		s.extra = extra
		s.loaded = true
		return nil
	}
	if !errors.Is(err, errUnusable) {
		slog.Error("entity store unreadable", "path", s.path, "error", err)
		return fmt.Errorf("load %s: %w", s.path, err)
	}

	slog.Warn("entity store unreadable, starting empty", "path", s.path, "error", err)
	s.records = []entitystore.Record{}
	s.extra = nil
	if err := s.flush(); err != nil {
		return fmt.Errorf("initialise %s: %w", s.path, err)
	}
	s.loaded = true
	slog.Info("entity store initialised", "path", s.path, "collection", s.collection)
	return nil
}

// Add appends a record unless id is already present.
func (s *Store) Add(ctx context.Context, id int64, content json.RawMessage) error {
	ctx, span := cfotel.StartStoreSpan(ctx, "add", id)
	defer span.End()
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}

	if s.indexOf(id) >= 0 {
		slog.Debug("duplicate id rejected", "id", id)
		return domain.WrapServerFault(customer.MsgDuplicateID,
			fmt.Errorf("id %d: %w", id, domain.ErrDuplicateID))
	}

	compacted, err := compactRaw(content)
	if err != nil {
		return fmt.Errorf("content for id %d: %w", id, err)
	}

	s.records = append(s.records, entitystore.Record{ID: id, Content: compacted})
	if err := s.flush(); err != nil {
		s.records = s.records[:len(s.records)-1]
		slog.Error("entity store write failed", "path", s.path, "id", id, "error", err)
		return domain.WrapServerFault(customer.MsgFailedToCreate,
			fmt.Errorf("%w: %w", domain.ErrPersistence, err))
	}
	return nil
}

// Get scans the collection for id.
func (s *Store) Get(ctx context.Context, id int64) (*entitystore.Record, bool, error) {
	_, span := cfotel.StartStoreSpan(ctx, "get", id)
	defer span.End()
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.usable(); err != nil {
		return nil, false, err
	}

	i := s.indexOf(id)
	if i < 0 {
		return nil, false, nil
	}
	rec := entitystore.Record{ID: s.records[i].ID, Content: cloneRaw(s.records[i].Content)}
	return &rec, true, nil
}

// DeleteAll empties the collection and persists the empty state.
func (s *Store) DeleteAll(ctx context.Context) error {
	_, span := cfotel.StartStoreSpan(ctx, "delete_all", 0)
	defer span.End()
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}

	prev := s.records
	s.records = []entitystore.Record{}
	if err := s.flush(); err != nil {
		s.records = prev
		return domain.WrapServerFault(customer.MsgInternal,
			fmt.Errorf("%w: %w", domain.ErrPersistence, err))
	}
	return nil
}

// Len returns the number of records.
func (s *Store) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.usable(); err != nil {
		return 0, err
	}
	return len(s.records), nil
}

// Close marks the store closed. The file is always complete on disk, so
// there is nothing to flush.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// usable must be called with s.mu held.
func (s *Store) usable() error {
	if s.closed {
		return entitystore.ErrClosed
	}
	if !s.loaded {
		return errors.New("entity store not initialised")
	}
	return nil
}

// indexOf must be called with s.mu held.
func (s *Store) indexOf(id int64) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

// read parses the backing file. States Init may heal (missing, empty,
// corrupt, collection absent) wrap errUnusable; every other error must stop
// Init from overwriting the file.
func (s *Store) read() ([]entitystore.Record, map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %w", errUnusable, err)
		}
		return nil, nil, err
	}
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: file is empty", errUnusable)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: parse: %w", errUnusable, err)
	}
	raw, ok := doc[s.collection]
	if !ok || string(raw) == "null" {
		return nil, nil, fmt.Errorf("%w: collection %q missing", errUnusable, s.collection)
	}

	var records []entitystore.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, nil, fmt.Errorf("%w: parse %s: %w", errUnusable, s.collection, err)
	}
	if records == nil {
		records = []entitystore.Record{}
	}
	seen := make(map[int64]struct{}, len(records))
	for i := range records {
		if _, dup := seen[records[i].ID]; dup {
			return nil, nil, fmt.Errorf("collection %q holds id %d more than once: %w",
				s.collection, records[i].ID, domain.ErrDuplicateID)
		}
		seen[records[i].ID] = struct{}{}
		// The file is indented; keep payloads byte-identical to what Add stored.
		if records[i].Content, err = compactRaw(records[i].Content); err != nil {
			return nil, nil, fmt.Errorf("%w: record %d: %w", errUnusable, records[i].ID, err)
		}
	}
	delete(doc, s.collection)
	return records, doc, nil
}

// flush writes the full document atomically: temp file, fsync, rename.
// Must be called with s.mu held for writing.
func (s *Store) flush() error {
	doc := make(map[string]any, len(s.extra)+1)
	for k, v := range s.extra {
		doc[k] = v
	}
	doc[s.collection] = s.records

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func compactRaw(b json.RawMessage) (json.RawMessage, error) {
	if len(b) == 0 {
		return json.RawMessage("null"), nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}
