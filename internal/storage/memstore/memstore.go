// Package memstore implements the collection store contract in process
// memory. It is the simple key-value analog of the file store and the
// default backend in tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/storage"
)

// Store keeps one data set per owner in memory, guarded by a RW mutex.
type Store struct {
	mu    sync.RWMutex
	data  map[string]*document.DataSet
	flags map[string]map[string]string
}

var _ storage.Collections = (*Store)(nil)
var _ storage.Flags = (*Store)(nil)

// New creates an empty memory store.
func New() *Store {
	return &Store{
		data:  make(map[string]*document.DataSet),
		flags: make(map[string]map[string]string),
	}
}

// dataSet returns the owner's set, shaping a default one on first touch.
// Caller must hold the write lock.
func (s *Store) dataSet(owner string) *document.DataSet {
	ds, ok := s.data[owner]
	if !ok {
		ds = document.NewDataSet()
		s.data[owner] = ds
	}
	return ds
}

func (s *Store) List(ctx context.Context, owner, collection string, includeDeleted bool) ([]document.Item, storage.Revision, error) {
	if !document.IsCollection(collection) {
		return nil, 0, apperror.NewValidation("unknown collection").WithDetail("collection", collection)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.data[owner]
	if !ok {
		return []document.Item{}, 0, nil
	}

	items := ds.Items(collection)
	out := make([]document.Item, 0, len(items))
	for _, it := range items {
		if includeDeleted || !it.IsDeleted() {
			out = append(out, it)
		}
	}
	return out, ds.Revisions[collection], nil
}

func (s *Store) Get(ctx context.Context, owner, collection string, id int64) (document.Item, error) {
	items, _, err := s.List(ctx, owner, collection, true)
	if err != nil {
		return document.Item{}, err
	}
	if i := document.FindByID(items, id); i >= 0 {
		return items[i], nil
	}
	return document.Item{}, apperror.NewNotFound(collection, id)
}

func (s *Store) Put(ctx context.Context, owner, collection string, item document.Item) error {
	return s.PutBatch(ctx, owner, collection, []document.Item{item})
}

func (s *Store) PutBatch(ctx context.Context, owner, collection string, items []document.Item) error {
	if !document.IsCollection(collection) {
		return apperror.NewValidation("unknown collection").WithDetail("collection", collection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ds := s.dataSet(owner)
	existing := ds.Items(collection)
	for _, item := range items {
		if i := document.FindByID(existing, item.ID); i >= 0 {
			existing[i] = item
		} else {
			existing = append(existing, item)
		}
	}
	ds.SetItems(collection, existing)
	ds.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) ReplaceAll(ctx context.Context, owner, collection string, items []document.Item, expected storage.Revision) error {
	if !document.IsCollection(collection) {
		return apperror.NewValidation("unknown collection").WithDetail("collection", collection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ds := s.dataSet(owner)
	if ds.Revisions[collection] != expected {
		return apperror.NewConcurrentModification(collection, owner).
			WithDetail("expected", expected).
			WithDetail("actual", ds.Revisions[collection])
	}
	ds.SetItems(collection, items)
	ds.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) ReadAll(ctx context.Context, owner string) (*document.DataSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.data[owner]
	if !ok {
		return document.NewDataSet(), nil
	}

	// Copy so callers cannot mutate store state behind the lock.
	out := document.NewDataSet()
	for name, items := range ds.Collections {
		cp := make([]document.Item, len(items))
		copy(cp, items)
		out.Collections[name] = cp
	}
	for name, rev := range ds.Revisions {
		out.Revisions[name] = rev
	}
	out.UpdatedAt = ds.UpdatedAt
	return out, nil
}

func (s *Store) WriteAll(ctx context.Context, owner string, ds *document.DataSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds.UpdatedAt = time.Now().UTC()
	s.data[owner] = ds
	return nil
}

func (s *Store) Counts(ctx context.Context, owner string) (map[string]int, error) {
	ds, err := s.ReadAll(ctx, owner)
	if err != nil {
		return nil, err
	}
	return ds.Counts(), nil
}

func (s *Store) Wipe(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, owner)
	return nil
}

func (s *Store) GetFlag(ctx context.Context, owner, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[owner][name], nil
}

func (s *Store) SetFlag(ctx context.Context, owner, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flags[owner] == nil {
		s.flags[owner] = make(map[string]string)
	}
	s.flags[owner][name] = value
	return nil
}
