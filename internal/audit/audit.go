// Package audit records document-level change history.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	corectx "whiskeyballet/internal/core/context"
	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/core/id"
	"whiskeyballet/internal/storage/indexed"
)

var _ indexed.ChangeObserver = (*Recorder)(nil)

// Action is the type of audited operation.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionRestore Action = "restore"
)

// Compression identifies how an entry's change set is stored.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// Entry is a single audit record for one document.
type Entry struct {
	ID          id.ID           `db:"id" json:"id"`
	OwnerID     string          `db:"owner_id" json:"-"`
	Collection  string          `db:"collection" json:"collection"`
	DocID       int64           `db:"doc_id" json:"docId"`
	Action      Action          `db:"action" json:"action"`
	UserID      string          `db:"user_id" json:"userId,omitempty"`
	Changes     json.RawMessage `db:"changes" json:"changes,omitempty"`
	ChangesZstd []byte          `db:"changes_zstd" json:"-"`
	Compression Compression     `db:"compression" json:"-"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}

// Recorder writes audit entries to the indexed store. Change sets
// above the threshold are zstd-compressed.
type Recorder struct {
	txm       *indexed.TxManager
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	threshold int
}

// NewRecorder creates a recorder with a 10KB compression threshold.
func NewRecorder(txm *indexed.TxManager) (*Recorder, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Recorder{
		txm:       txm,
		encoder:   encoder,
		decoder:   decoder,
		threshold: 10 * 1024,
	}, nil
}

// Record writes an entry, filling id, user and timestamp when unset.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if entry.UserID == "" {
		entry.UserID = corectx.GetUserID(ctx)
	}
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	entry.Compression = CompressionNone
	if len(entry.Changes) > r.threshold {
		entry.ChangesZstd = r.encoder.EncodeAll(entry.Changes, nil)
		entry.Changes = nil
		entry.Compression = CompressionZstd
	}

	_, err := r.txm.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (
			id, owner_id, collection, doc_id, action, user_id,
			changes, changes_zstd, compression, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.OwnerID, entry.Collection, entry.DocID, entry.Action,
		entry.UserID, entry.Changes, entry.ChangesZstd, entry.Compression,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// DocumentWritten records a write observed by the indexed store,
// deriving the action from the tombstone transition. Runs inside the
// write's transaction.
func (r *Recorder) DocumentWritten(ctx context.Context, owner, collection string, before *document.Item, after document.Item) error {
	action := ActionCreate
	var oldState map[string]any
	if before != nil {
		action = ActionUpdate
		switch {
		case before.DeletedAt == nil && after.DeletedAt != nil:
			action = ActionDelete
		case before.DeletedAt != nil && after.DeletedAt == nil:
			action = ActionRestore
		}
		if err := json.Unmarshal(before.Payload, &oldState); err != nil {
			oldState = nil
		}
	}

	var newState map[string]any
	if err := json.Unmarshal(after.Payload, &newState); err != nil {
		return fmt.Errorf("decode written payload: %w", err)
	}

	return r.RecordChange(ctx, owner, collection, after.ID, action, Diff(oldState, newState))
}

// RecordChange marshals a change map and records it.
func (r *Recorder) RecordChange(ctx context.Context, owner, collection string, docID int64, action Action, changes map[string]any) error {
	raw, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}
	return r.Record(ctx, Entry{
		OwnerID:    owner,
		Collection: collection,
		DocID:      docID,
		Action:     action,
		Changes:    raw,
	})
}

// History returns the newest-first audit trail for one document,
// decompressing entries as needed.
func (r *Recorder) History(ctx context.Context, owner, collection string, docID int64, limit int) ([]Entry, error) {
	rows, err := r.txm.GetQuerier(ctx).Query(ctx, `
		SELECT id, owner_id, collection, doc_id, action, user_id,
		       changes, changes_zstd, compression, created_at
		FROM sys_audit
		WHERE owner_id = $1 AND collection = $2 AND doc_id = $3
		ORDER BY created_at DESC
		LIMIT $4`,
		owner, collection, docID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		err := rows.Scan(
			&e.ID, &e.OwnerID, &e.Collection, &e.DocID, &e.Action, &e.UserID,
			&e.Changes, &e.ChangesZstd, &e.Compression, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.Compression == CompressionZstd && len(e.ChangesZstd) > 0 {
			decompressed, err := r.decoder.DecodeAll(e.ChangesZstd, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress changes: %w", err)
			}
			e.Changes = decompressed
			e.ChangesZstd = nil
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Diff computes field-level old/new pairs between two document states.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)
	for key, newVal := range newState {
		oldVal, exists := oldState[key]
		if !exists {
			changes[key] = map[string]any{"old": nil, "new": newVal}
		} else if !equal(oldVal, newVal) {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}
	for key, oldVal := range oldState {
		if _, exists := newState[key]; !exists {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}
	return changes
}

func equal(a, b any) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
