// Package cloudsync replays local mutations against a remote endpoint
// when connectivity allows, queueing them while offline.
package cloudsync

import (
	"context"
	"encoding/json"

	"whiskeyballet/internal/core/id"
	"whiskeyballet/internal/storage"
)

// Action is a queued mutation kind.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Entry is one pending mutation, in insertion order.
type Entry struct {
	ID         id.ID           `json:"id"`
	Action     Action          `json:"action"`
	Collection string          `json:"collectionName"`
	Data       json.RawMessage `json:"data"`
}

const queueFlag = "syncQueue"

// queueStore persists the pending queue through the flag surface so a
// restart picks up where the last run stopped.
type queueStore struct {
	flags storage.Flags
	owner string
}

func (q *queueStore) load(ctx context.Context) ([]Entry, error) {
	raw, err := q.flags.GetFlag(ctx, q.owner, queueFlag)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		// A corrupt queue is unrecoverable; start fresh rather than
		// wedging sync forever.
		return nil, nil
	}
	return entries, nil
}

func (q *queueStore) save(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return q.flags.SetFlag(ctx, q.owner, queueFlag, "")
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return q.flags.SetFlag(ctx, q.owner, queueFlag, string(raw))
}
