package cloudsync

import (
	"context"

	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/storage"
	"whiskeyballet/pkg/logger"
)

// ObservedStore wraps a store and mirrors document writes for the
// synced tenant into the manager's queue. Live writes are queued as
// updates, which the remote side applies as upserts, so creates need
// no distinct action; tombstoned writes are queued as deletes.
// Whole-document operations (ReplaceAll, WriteAll, Wipe) are bulk
// maintenance paths and are not mirrored.
type ObservedStore struct {
	storage.Collections
	manager *Manager
}

func NewObservedStore(inner storage.Collections, m *Manager) *ObservedStore {
	return &ObservedStore{Collections: inner, manager: m}
}

func (s *ObservedStore) Put(ctx context.Context, owner, collection string, item document.Item) error {
	if err := s.Collections.Put(ctx, owner, collection, item); err != nil {
		return err
	}
	s.mirror(ctx, owner, collection, item)
	return nil
}

func (s *ObservedStore) PutBatch(ctx context.Context, owner, collection string, items []document.Item) error {
	if err := s.Collections.PutBatch(ctx, owner, collection, items); err != nil {
		return err
	}
	for _, it := range items {
		s.mirror(ctx, owner, collection, it)
	}
	return nil
}

// mirror enqueues the written document. A queue failure never fails
// the local write; the document is durable locally either way.
func (s *ObservedStore) mirror(ctx context.Context, owner, collection string, item document.Item) {
	if owner != s.manager.owner || !document.IsCollection(collection) {
		return
	}
	action := ActionUpdate
	if item.IsDeleted() {
		action = ActionDelete
	}
	if err := s.manager.Enqueue(ctx, action, collection, item.Payload); err != nil {
		logger.Warn(ctx, "failed to enqueue sync mutation",
			"owner", owner, "collection", collection, "id", item.ID, "error", err)
	}
}
