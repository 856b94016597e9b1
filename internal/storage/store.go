// Package storage defines the collection store contract and the backend
// selector. Three backends implement it: an in-process memory store, a
// file-backed document store, and a Postgres-backed indexed store. Backend
// choice is a pure function of the Config passed at construction; nothing
// in this package sniffs the environment.
package storage

import (
	"context"

	"whiskeyballet/internal/core/document"
)

// Backend identifies a storage implementation.
type Backend string

const (
	BackendMemory  Backend = "memory"
	BackendFile    Backend = "file"
	BackendIndexed Backend = "indexed"
)

// Config selects the active backend. Fallback names the store that serves
// reads when the primary fails and that feeds the indexed store's one-time
// auto-migration.
type Config struct {
	Backend  Backend
	Fallback Backend

	// DataDir is the root directory for the file backend.
	DataDir string

	// KeyPrefix namespaces file names and flag keys, e.g. "wb".
	KeyPrefix string
}

// DefaultConfig returns the production default: indexed store with the
// file store as legacy fallback.
func DefaultConfig(dataDir string) Config {
	return Config{
		Backend:   BackendIndexed,
		Fallback:  BackendFile,
		DataDir:   dataDir,
		KeyPrefix: "wb",
	}
}

// Revision is a per-(owner, collection) monotonic counter. Whole-collection
// writes carry the revision the writer read; a mismatch means another
// writer got there first.
type Revision = int64

// Collections is the unified item-granularity store contract.
//
// Owners are tenant (admin) ids. Tombstoned documents are excluded from
// List unless includeDeleted is set; they are never physically removed
// except by Wipe.
type Collections interface {
	// List returns the collection items for an owner along with the
	// revision observed, for use as ReplaceAll's expected revision.
	List(ctx context.Context, owner, collection string, includeDeleted bool) ([]document.Item, Revision, error)

	// Get returns one document by id, tombstoned or not.
	Get(ctx context.Context, owner, collection string, id int64) (document.Item, error)

	// Put upserts one document by id and bumps the collection revision.
	Put(ctx context.Context, owner, collection string, item document.Item) error

	// PutBatch upserts several documents in one write.
	PutBatch(ctx context.Context, owner, collection string, items []document.Item) error

	// ReplaceAll swaps the whole collection, guarded by the expected
	// revision. Returns CONCURRENT_MODIFICATION on mismatch.
	ReplaceAll(ctx context.Context, owner, collection string, items []document.Item, expected Revision) error

	// ReadAll assembles the owner's whole data set. Absent owners get a
	// default-shaped set, never an error.
	ReadAll(ctx context.Context, owner string) (*document.DataSet, error)

	// WriteAll replaces the owner's whole data set (backup restore, bulk
	// migration).
	WriteAll(ctx context.Context, owner string, ds *document.DataSet) error

	// Counts returns per-collection document counts, tombstones included.
	Counts(ctx context.Context, owner string) (map[string]int, error)

	// Wipe physically removes all owner data. The only hard delete.
	Wipe(ctx context.Context, owner string) error
}

// Flags is the persisted key-value flag surface: the "use indexed store"
// switch, migration version markers, last-backup dates.
type Flags interface {
	// GetFlag returns the flag value or "" when unset.
	GetFlag(ctx context.Context, owner, name string) (string, error)

	// SetFlag persists a flag value.
	SetFlag(ctx context.Context, owner, name, value string) error
}

// Well-known flag names.
const (
	FlagUseIndexedStore      = "useIndexedStore"
	FlagNormalizationVersion = "paymentStatusNormalizationVersion"
	FlagBranchBackfillVer    = "branchBackfillVersion"
	FlagLastBackupDate       = "lastBackupDate"
)
