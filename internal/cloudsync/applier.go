package cloudsync

import (
	"context"
	"time"

	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/storage"
	"whiskeyballet/pkg/logger"
)

// Applier is the receiving side of a queue replay: it applies pushed
// entries against the authoritative store.
type Applier struct {
	store storage.Collections
}

func NewApplier(store storage.Collections) *Applier {
	return &Applier{store: store}
}

// Apply replays entries in order and reports a result per entry.
// Adds against an existing id report already_exists and succeed;
// updates upsert, creating the document when absent; deletes succeed
// even when the document was already gone.
func (a *Applier) Apply(ctx context.Context, owner string, entries []Entry) []ItemResult {
	results := make([]ItemResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, a.applyOne(ctx, owner, e))
	}
	return results
}

func (a *Applier) applyOne(ctx context.Context, owner string, e Entry) ItemResult {
	result := ItemResult{Action: e.Action, Collection: e.Collection}
	if !document.IsCollection(e.Collection) {
		return result
	}

	item, err := document.FromPayload(e.Data)
	if err != nil {
		logger.Warn(ctx, "sync entry payload malformed",
			"owner", owner, "collection", e.Collection, "error", err)
		return result
	}
	result.ID = item.ID
	if e.Action == ActionDelete && item.ID == 0 {
		logger.Warn(ctx, "sync delete entry carries no document id",
			"owner", owner, "collection", e.Collection)
		return result
	}

	switch e.Action {
	case ActionAdd:
		_, err := a.store.Get(ctx, owner, e.Collection, item.ID)
		if err == nil {
			result.Success = true
			result.Status = "already_exists"
			return result
		}
		if !apperror.IsNotFound(err) {
			return result
		}
		if err := a.store.Put(ctx, owner, e.Collection, item); err != nil {
			return result
		}
		result.Success = true
		result.Status = "synced"

	case ActionUpdate:
		if err := a.store.Put(ctx, owner, e.Collection, item); err != nil {
			return result
		}
		result.Success = true
		result.Status = "synced"

	case ActionDelete:
		items, _, err := a.store.List(ctx, owner, e.Collection, true)
		if err != nil {
			return result
		}
		idx := document.FindByID(items, item.ID)
		if idx < 0 {
			// Already absent; the delete is still reported as done.
			result.Success = true
			result.Status = "deleted"
			return result
		}
		target := items[idx]
		by := document.UserRef{}
		if target.UpdatedBy != nil {
			by = *target.UpdatedBy
		}
		if err := target.Tombstone(by, time.Now()); err != nil {
			return result
		}
		if err := a.store.Put(ctx, owner, e.Collection, target); err != nil {
			return result
		}
		result.Success = true
		result.Status = "deleted"
	}
	return result
}
