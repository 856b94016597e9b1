package storage

import (
	"context"

	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/internal/core/document"
	"whiskeyballet/pkg/logger"
)

// Selector routes calls to the configured primary backend and serves
// reads from the fallback when the primary fails. Writes never fall back:
// a half-written primary plus a diverged fallback is worse than a
// surfaced error.
type Selector struct {
	primary  Collections
	fallback Collections
	flags    Flags
}

var _ Collections = (*Selector)(nil)

// NewSelector wires the primary and fallback stores. fallback may be nil,
// in which case primary errors surface directly.
func NewSelector(primary, fallback Collections) *Selector {
	return &Selector{primary: primary, fallback: fallback}
}

// RouteByFlag makes routing consult the per-owner useIndexedStore
// flag: an owner whose flag reads "false" has been rolled back and is
// served entirely from the fallback until the flag flips again.
func (s *Selector) RouteByFlag(flags Flags) *Selector {
	s.flags = flags
	return s
}

// stores resolves the primary and fallback for one owner. A rolled
// back owner gets the fallback as its only store so nothing touches
// the indexed copy until a commit re-enables it.
func (s *Selector) stores(ctx context.Context, owner string) (Collections, Collections) {
	if s.flags == nil || s.fallback == nil {
		return s.primary, s.fallback
	}
	val, err := s.flags.GetFlag(ctx, owner, FlagUseIndexedStore)
	if err == nil && val == "false" {
		return s.fallback, nil
	}
	return s.primary, s.fallback
}

func (s *Selector) List(ctx context.Context, owner, collection string, includeDeleted bool) ([]document.Item, Revision, error) {
	primary, fallback := s.stores(ctx, owner)
	items, rev, err := primary.List(ctx, owner, collection, includeDeleted)
	if err != nil && fallback != nil {
		logger.Warn(ctx, "primary store read failed, serving fallback",
			"collection", collection, "error", err)
		return fallback.List(ctx, owner, collection, includeDeleted)
	}
	return items, rev, err
}

func (s *Selector) Get(ctx context.Context, owner, collection string, id int64) (document.Item, error) {
	primary, fallback := s.stores(ctx, owner)
	item, err := primary.Get(ctx, owner, collection, id)
	if err != nil && fallback != nil && !apperror.IsNotFound(err) {
		logger.Warn(ctx, "primary store read failed, serving fallback",
			"collection", collection, "id", id, "error", err)
		return fallback.Get(ctx, owner, collection, id)
	}
	return item, err
}

func (s *Selector) Put(ctx context.Context, owner, collection string, item document.Item) error {
	primary, _ := s.stores(ctx, owner)
	return primary.Put(ctx, owner, collection, item)
}

func (s *Selector) PutBatch(ctx context.Context, owner, collection string, items []document.Item) error {
	primary, _ := s.stores(ctx, owner)
	return primary.PutBatch(ctx, owner, collection, items)
}

func (s *Selector) ReplaceAll(ctx context.Context, owner, collection string, items []document.Item, expected Revision) error {
	primary, _ := s.stores(ctx, owner)
	return primary.ReplaceAll(ctx, owner, collection, items, expected)
}

func (s *Selector) ReadAll(ctx context.Context, owner string) (*document.DataSet, error) {
	primary, fallback := s.stores(ctx, owner)
	ds, err := primary.ReadAll(ctx, owner)
	if err != nil && fallback != nil {
		logger.Warn(ctx, "primary store read failed, serving fallback", "error", err)
		return fallback.ReadAll(ctx, owner)
	}
	return ds, err
}

func (s *Selector) WriteAll(ctx context.Context, owner string, ds *document.DataSet) error {
	primary, _ := s.stores(ctx, owner)
	return primary.WriteAll(ctx, owner, ds)
}

func (s *Selector) Counts(ctx context.Context, owner string) (map[string]int, error) {
	primary, fallback := s.stores(ctx, owner)
	counts, err := primary.Counts(ctx, owner)
	if err != nil && fallback != nil {
		logger.Warn(ctx, "primary store read failed, serving fallback", "error", err)
		return fallback.Counts(ctx, owner)
	}
	return counts, err
}

func (s *Selector) Wipe(ctx context.Context, owner string) error {
	primary, _ := s.stores(ctx, owner)
	return primary.Wipe(ctx, owner)
}
