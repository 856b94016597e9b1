// Package backup exports and restores full tenant snapshots.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/core/id"
	"whiskeyballet/internal/storage"
	"whiskeyballet/pkg/logger"
)

// Snapshot is a point-in-time export of one tenant's full document
// set.
type Snapshot struct {
	ID        id.ID             `json:"id"`
	Owner     string            `json:"owner"`
	CreatedAt time.Time         `json:"createdAt"`
	Data      *document.DataSet `json:"data"`
}

// Service produces and restores snapshots.
type Service struct {
	store   storage.Collections
	flags   storage.Flags
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewService(store storage.Collections, flags storage.Flags) (*Service, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Service{store: store, flags: flags, encoder: encoder, decoder: decoder}, nil
}

// Export reads the owner's full document set and returns it as a
// JSON snapshot, recording the backup date.
func (s *Service) Export(ctx context.Context, owner string) ([]byte, error) {
	ds, err := s.store.ReadAll(ctx, owner)
	if err != nil {
		return nil, err
	}
	snap := Snapshot{
		ID:        id.New(),
		Owner:     owner,
		CreatedAt: time.Now().UTC(),
		Data:      ds,
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := s.flags.SetFlag(ctx, owner, storage.FlagLastBackupDate,
		snap.CreatedAt.Format(time.RFC3339)); err != nil {
		logger.Warn(ctx, "record backup date failed", "owner", owner, "error", err)
	}
	logger.Info(ctx, "exported snapshot", "owner", owner, "bytes", len(raw))
	return raw, nil
}

// ExportCompressed is Export with zstd applied, for large tenants.
func (s *Service) ExportCompressed(ctx context.Context, owner string) ([]byte, error) {
	raw, err := s.Export(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.encoder.EncodeAll(raw, nil), nil
}

// Restore validates a snapshot and replaces the owner's data with it.
// Accepts both plain and zstd-compressed payloads.
func (s *Service) Restore(ctx context.Context, owner string, raw []byte) error {
	if isZstd(raw) {
		decompressed, err := s.decoder.DecodeAll(raw, nil)
		if err != nil {
			return apperror.NewMalformed("snapshot is not valid zstd").WithCause(err)
		}
		raw = decompressed
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return apperror.NewMalformed("snapshot is not valid JSON").WithCause(err)
	}
	if snap.Data == nil {
		return apperror.NewMalformed("snapshot has no data section")
	}
	if err := snap.Data.Validate(); err != nil {
		return err
	}

	if err := s.store.WriteAll(ctx, owner, snap.Data); err != nil {
		return err
	}
	logger.Info(ctx, "restored snapshot",
		"owner", owner, "snapshotId", snap.ID, "takenAt", snap.CreatedAt)
	return nil
}

// LastBackupDate returns the recorded date of the last export, zero
// when none was taken.
func (s *Service) LastBackupDate(ctx context.Context, owner string) (time.Time, error) {
	val, err := s.flags.GetFlag(ctx, owner, storage.FlagLastBackupDate)
	if err != nil || val == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, nil
	}
	return t, nil
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func isZstd(raw []byte) bool {
	if len(raw) < 4 {
		return false
	}
	for i := range zstdMagic {
		if raw[i] != zstdMagic[i] {
			return false
		}
	}
	return true
}
