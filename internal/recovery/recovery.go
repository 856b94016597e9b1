// Package recovery restores soft-deleted documents, singly or in
// bulk by deletion time window.
package recovery

import (
	"context"
	"time"

	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/storage"
	"whiskeyballet/pkg/logger"
)

// Manager reads tombstoned documents and clears their tombstones.
type Manager struct {
	store storage.Collections
}

func NewManager(store storage.Collections) *Manager {
	return &Manager{store: store}
}

// DeletedItems returns only the tombstoned documents of a collection.
func (m *Manager) DeletedItems(ctx context.Context, owner, collection string) ([]document.Item, error) {
	items, _, err := m.store.List(ctx, owner, collection, true)
	if err != nil {
		return nil, err
	}
	deleted := make([]document.Item, 0)
	for _, it := range items {
		if it.IsDeleted() {
			deleted = append(deleted, it)
		}
	}
	return deleted, nil
}

// DeletedSessions groups a collection's tombstoned documents into
// deletion sessions for display.
func (m *Manager) DeletedSessions(ctx context.Context, owner, collection string) ([]Session, error) {
	deleted, err := m.DeletedItems(ctx, owner, collection)
	if err != nil {
		return nil, err
	}
	return GroupSessions(collection, deleted), nil
}

// RestoreItem clears the tombstone of one document and persists it.
// Returns false, nil when the document does not exist or is not
// tombstoned; that is a no-op, not an error.
func (m *Manager) RestoreItem(ctx context.Context, owner, collection string, id int64) (bool, error) {
	items, _, err := m.store.List(ctx, owner, collection, true)
	if err != nil {
		return false, err
	}
	idx := document.FindByID(items, id)
	if idx < 0 || !items[idx].IsDeleted() {
		return false, nil
	}

	item := items[idx]
	if err := item.Restore(); err != nil {
		return false, err
	}
	if err := m.store.Put(ctx, owner, collection, item); err != nil {
		return false, err
	}
	logger.Info(ctx, "restored document", "collection", collection, "id", id)
	return true, nil
}

// CollectionResult is the per-collection outcome of a bulk restore.
type CollectionResult struct {
	Restored int    `json:"restored"`
	Failed   int    `json:"failed"`
	Error    string `json:"error,omitempty"`
}

// Report summarizes a bulk restore across all collections.
type Report struct {
	Results       map[string]CollectionResult `json:"results"`
	TotalRestored int                         `json:"totalRestored"`
	TotalFailed   int                         `json:"totalFailed"`
}

// RestoreAllByTimeRange restores every tombstoned document whose
// deletedAt falls inside [start, end], bounds inclusive. Counts are
// provisional per collection: when the persist fails, that
// collection reports zero restored and the full batch as failed.
func (m *Manager) RestoreAllByTimeRange(ctx context.Context, owner string, start, end time.Time) (Report, error) {
	report := Report{Results: make(map[string]CollectionResult)}

	for _, collection := range document.All() {
		items, _, err := m.store.List(ctx, owner, collection, true)
		if err != nil {
			report.Results[collection] = CollectionResult{Error: err.Error()}
			continue
		}

		var batch []document.Item
		failed := 0
		for _, it := range items {
			if !inRange(it.DeletedAt, start, end) {
				continue
			}
			if err := it.Restore(); err != nil {
				failed++
				continue
			}
			batch = append(batch, it)
		}
		if len(batch) == 0 {
			if failed > 0 {
				report.Results[collection] = CollectionResult{Failed: failed}
				report.TotalFailed += failed
			}
			continue
		}

		if err := m.store.PutBatch(ctx, owner, collection, batch); err != nil {
			logger.Error(ctx, "bulk restore persist failed",
				"collection", collection, "candidates", len(batch), "error", err)
			result := CollectionResult{Failed: failed + len(batch), Error: err.Error()}
			report.Results[collection] = result
			report.TotalFailed += result.Failed
			continue
		}

		result := CollectionResult{Restored: len(batch), Failed: failed}
		report.Results[collection] = result
		report.TotalRestored += result.Restored
		report.TotalFailed += result.Failed
	}
	return report, nil
}

func inRange(at *time.Time, start, end time.Time) bool {
	if at == nil {
		return false
	}
	return !at.Before(start) && !at.After(end)
}
