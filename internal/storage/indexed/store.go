package indexed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/storage"
	"whiskeyballet/pkg/logger"
)

// Store is the PostgreSQL collection store.
//
// When a legacy store is attached, the first read for an owner whose
// tables are empty transparently copies the legacy data forward. This
// is a one-time, read-triggered upgrade, not an explicit migration step.
type Store struct {
	txm      *TxManager
	legacy   storage.Collections
	observer ChangeObserver

	// migrated caches owners already checked this process.
	migrated sync.Map // map[string]struct{}
}

// ChangeObserver is notified of single-document writes inside the
// same transaction, so history recording commits or rolls back with
// the write itself. Bulk paths (ReplaceAll, WriteAll, migration) are
// not observed.
type ChangeObserver interface {
	DocumentWritten(ctx context.Context, owner, collection string, before *document.Item, after document.Item) error
}

var _ storage.Collections = (*Store)(nil)
var _ storage.Flags = (*Store)(nil)

// New creates an indexed store. legacy may be nil to disable
// auto-migration.
func New(txm *TxManager, legacy storage.Collections) *Store {
	return &Store{txm: txm, legacy: legacy}
}

// SetObserver attaches a change observer. Call before serving traffic.
func (s *Store) SetObserver(o ChangeObserver) {
	s.observer = o
}

// Builder returns a squirrel builder with PostgreSQL placeholders.
func (s *Store) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// row is the table shape; payload stays authoritative.
type row struct {
	OwnerID   string     `db:"owner_id"`
	ID        int64      `db:"id"`
	BranchID  string     `db:"branch_id"`
	DeletedAt *time.Time `db:"deleted_at"`
	DeletedBy string     `db:"deleted_by"`
	CreatedAt *time.Time `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
	Payload   []byte     `db:"payload"`
}

func (r row) item() document.Item {
	it := document.Item{
		ID:        r.ID,
		BranchID:  r.BranchID,
		DeletedAt: r.DeletedAt,
		DeletedBy: r.DeletedBy,
		Payload:   r.Payload,
	}
	if r.CreatedAt != nil {
		it.CreatedAt = *r.CreatedAt
	}
	if r.UpdatedAt != nil {
		it.UpdatedAt = *r.UpdatedAt
	}
	// The payload carries the user snapshots; re-extract them.
	if full, err := document.FromPayload(r.Payload); err == nil {
		it.CreatedBy = full.CreatedBy
		it.UpdatedBy = full.UpdatedBy
	}
	return it
}

func rowFrom(owner string, it document.Item) row {
	r := row{
		OwnerID:   owner,
		ID:        it.ID,
		BranchID:  it.BranchID,
		DeletedAt: it.DeletedAt,
		DeletedBy: it.DeletedBy,
		Payload:   it.Payload,
	}
	if !it.CreatedAt.IsZero() {
		t := it.CreatedAt
		r.CreatedAt = &t
	}
	if !it.UpdatedAt.IsZero() {
		t := it.UpdatedAt
		r.UpdatedAt = &t
	}
	return r
}

// --- storage.Collections ---

func (s *Store) List(ctx context.Context, owner, collection string, includeDeleted bool) ([]document.Item, storage.Revision, error) {
	if !document.IsCollection(collection) {
		return nil, 0, apperror.NewValidation("unknown collection").WithDetail("collection", collection)
	}
	if err := s.ensureMigrated(ctx, owner); err != nil {
		return nil, 0, err
	}

	q := s.Builder().
		Select("owner_id", "id", "branch_id", "deleted_at", "deleted_by", "created_at", "updated_at", "payload").
		From(tableFor(collection)).
		Where(squirrel.Eq{"owner_id": owner}).
		OrderBy("id")
	if !includeDeleted {
		q = q.Where(squirrel.Eq{"deleted_at": nil})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var rows []row
	querier := s.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", collection, err)
	}

	items := make([]document.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.item())
	}

	rev, err := s.revision(ctx, owner, collection)
	if err != nil {
		return nil, 0, err
	}
	return items, rev, nil
}

func (s *Store) Get(ctx context.Context, owner, collection string, id int64) (document.Item, error) {
	if !document.IsCollection(collection) {
		return document.Item{}, apperror.NewValidation("unknown collection").WithDetail("collection", collection)
	}
	if err := s.ensureMigrated(ctx, owner); err != nil {
		return document.Item{}, err
	}

	sql, args, err := s.Builder().
		Select("owner_id", "id", "branch_id", "deleted_at", "deleted_by", "created_at", "updated_at", "payload").
		From(tableFor(collection)).
		Where(squirrel.Eq{"owner_id": owner, "id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return document.Item{}, fmt.Errorf("build query: %w", err)
	}

	var r row
	querier := s.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &r, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return document.Item{}, apperror.NewNotFound(collection, id)
		}
		return document.Item{}, fmt.Errorf("get %s: %w", collection, err)
	}
	return r.item(), nil
}

func (s *Store) Put(ctx context.Context, owner, collection string, item document.Item) error {
	return s.PutBatch(ctx, owner, collection, []document.Item{item})
}

func (s *Store) PutBatch(ctx context.Context, owner, collection string, items []document.Item) error {
	if !document.IsCollection(collection) {
		return apperror.NewValidation("unknown collection").WithDetail("collection", collection)
	}
	if err := s.ensureMigrated(ctx, owner); err != nil {
		return err
	}

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var before map[int64]document.Item
		if s.observer != nil {
			var err error
			before, err = s.existingByID(ctx, owner, collection, items)
			if err != nil {
				return err
			}
		}

		if err := s.upsertRows(ctx, owner, collection, items); err != nil {
			return err
		}
		if err := s.bumpRevision(ctx, owner, collection); err != nil {
			return err
		}

		if s.observer != nil {
			for _, it := range items {
				var prev *document.Item
				if b, ok := before[it.ID]; ok {
					prev = &b
				}
				if err := s.observer.DocumentWritten(ctx, owner, collection, prev, it); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// existingByID loads the current state of the given ids for
// before/after change observation.
func (s *Store) existingByID(ctx context.Context, owner, collection string, items []document.Item) (map[int64]document.Item, error) {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}

	sql, args, err := s.Builder().
		Select("owner_id", "id", "branch_id", "deleted_at", "deleted_by", "created_at", "updated_at", "payload").
		From(tableFor(collection)).
		Where(squirrel.Eq{"owner_id": owner, "id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []row
	if err := pgxscan.Select(ctx, s.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("load existing %s: %w", collection, err)
	}

	out := make(map[int64]document.Item, len(rows))
	for _, r := range rows {
		out[r.ID] = r.item()
	}
	return out, nil
}

func (s *Store) upsertRows(ctx context.Context, owner, collection string, items []document.Item) error {
	table := tableFor(collection)
	querier := s.txm.GetQuerier(ctx)

	for _, it := range items {
		r := rowFrom(owner, it)
		sql, args, err := s.Builder().
			Insert(table).
			Columns("owner_id", "id", "branch_id", "deleted_at", "deleted_by", "created_at", "updated_at", "payload").
			Values(r.OwnerID, r.ID, r.BranchID, r.DeletedAt, r.DeletedBy, r.CreatedAt, r.UpdatedAt, r.Payload).
			Suffix(`ON CONFLICT (owner_id, id) DO UPDATE SET
				branch_id = EXCLUDED.branch_id,
				deleted_at = EXCLUDED.deleted_at,
				deleted_by = EXCLUDED.deleted_by,
				updated_at = EXCLUDED.updated_at,
				payload = EXCLUDED.payload`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build upsert: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("upsert %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) ReplaceAll(ctx context.Context, owner, collection string, items []document.Item, expected storage.Revision) error {
	if !document.IsCollection(collection) {
		return apperror.NewValidation("unknown collection").WithDetail("collection", collection)
	}
	if err := s.ensureMigrated(ctx, owner); err != nil {
		return err
	}

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		querier := s.txm.GetQuerier(ctx)

		// Lock the revision row so two replacers serialize.
		var current int64
		err := querier.QueryRow(ctx,
			`SELECT revision FROM doc_revisions WHERE owner_id = $1 AND collection = $2 FOR UPDATE`,
			owner, collection).Scan(&current)
		if err != nil && err != pgx.ErrNoRows {
			return fmt.Errorf("read revision: %w", err)
		}

		if current != expected {
			return apperror.NewConcurrentModification(collection, owner).
				WithDetail("expected", expected).
				WithDetail("actual", current)
		}

		delSQL, delArgs, err := s.Builder().
			Delete(tableFor(collection)).
			Where(squirrel.Eq{"owner_id": owner}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		if _, err := querier.Exec(ctx, delSQL, delArgs...); err != nil {
			return fmt.Errorf("clear %s: %w", collection, err)
		}

		if err := s.upsertRows(ctx, owner, collection, items); err != nil {
			return err
		}
		return s.bumpRevision(ctx, owner, collection)
	})
}

func (s *Store) ReadAll(ctx context.Context, owner string) (*document.DataSet, error) {
	if err := s.ensureMigrated(ctx, owner); err != nil {
		return nil, err
	}

	ds := document.NewDataSet()
	for _, c := range document.All() {
		items, rev, err := s.listRaw(ctx, owner, c)
		if err != nil {
			return nil, err
		}
		ds.Collections[c] = items
		ds.Revisions[c] = rev
	}
	return ds, nil
}

// listRaw lists a collection without triggering migration (used inside
// migration itself and ReadAll).
func (s *Store) listRaw(ctx context.Context, owner, collection string) ([]document.Item, int64, error) {
	sql, args, err := s.Builder().
		Select("owner_id", "id", "branch_id", "deleted_at", "deleted_by", "created_at", "updated_at", "payload").
		From(tableFor(collection)).
		Where(squirrel.Eq{"owner_id": owner}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var rows []row
	if err := pgxscan.Select(ctx, s.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", collection, err)
	}
	items := make([]document.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.item())
	}

	rev, err := s.revision(ctx, owner, collection)
	if err != nil {
		return nil, 0, err
	}
	return items, rev, nil
}

func (s *Store) WriteAll(ctx context.Context, owner string, ds *document.DataSet) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.wipeTx(ctx, owner); err != nil {
			return err
		}
		querier := s.txm.GetQuerier(ctx)
		for _, c := range document.All() {
			if err := s.upsertRows(ctx, owner, c, ds.Items(c)); err != nil {
				return err
			}
			_, err := querier.Exec(ctx, `
				INSERT INTO doc_revisions (owner_id, collection, revision)
				VALUES ($1, $2, $3)
				ON CONFLICT (owner_id, collection) DO UPDATE SET revision = EXCLUDED.revision`,
				owner, c, ds.Revisions[c])
			if err != nil {
				return fmt.Errorf("write revision: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) Counts(ctx context.Context, owner string) (map[string]int, error) {
	if err := s.ensureMigrated(ctx, owner); err != nil {
		return nil, err
	}
	return s.countsRaw(ctx, owner)
}

func (s *Store) countsRaw(ctx context.Context, owner string) (map[string]int, error) {
	counts := make(map[string]int, len(document.All()))
	querier := s.txm.GetQuerier(ctx)
	for _, c := range document.All() {
		var n int
		err := querier.QueryRow(ctx,
			fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE owner_id = $1`, tableFor(c)),
			owner).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", c, err)
		}
		counts[c] = n
	}
	return counts, nil
}

func (s *Store) Wipe(ctx context.Context, owner string) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.wipeTx(ctx, owner)
	})
}

func (s *Store) wipeTx(ctx context.Context, owner string) error {
	querier := s.txm.GetQuerier(ctx)
	for _, c := range document.All() {
		sql, args, err := s.Builder().Delete(tableFor(c)).Where(squirrel.Eq{"owner_id": owner}).ToSql()
		if err != nil {
			return fmt.Errorf("build wipe: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("wipe %s: %w", c, err)
		}
	}
	if _, err := querier.Exec(ctx, `DELETE FROM doc_revisions WHERE owner_id = $1`, owner); err != nil {
		return fmt.Errorf("wipe revisions: %w", err)
	}
	return nil
}

// --- revisions ---

func (s *Store) revision(ctx context.Context, owner, collection string) (int64, error) {
	var rev int64
	err := s.txm.GetQuerier(ctx).QueryRow(ctx,
		`SELECT revision FROM doc_revisions WHERE owner_id = $1 AND collection = $2`,
		owner, collection).Scan(&rev)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return rev, nil
}

func (s *Store) bumpRevision(ctx context.Context, owner, collection string) error {
	_, err := s.txm.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO doc_revisions (owner_id, collection, revision)
		VALUES ($1, $2, 1)
		ON CONFLICT (owner_id, collection) DO UPDATE SET revision = doc_revisions.revision + 1`,
		owner, collection)
	if err != nil {
		return fmt.Errorf("bump revision: %w", err)
	}
	return nil
}

// --- auto-migration ---

// ensureMigrated copies the owner's legacy data forward if the indexed
// tables are still empty. Runs at most once per owner per process; the
// empty-check makes re-runs harmless across processes.
func (s *Store) ensureMigrated(ctx context.Context, owner string) error {
	if s.legacy == nil {
		return nil
	}
	if _, done := s.migrated.Load(owner); done {
		return nil
	}

	counts, err := s.countsRaw(ctx, owner)
	if err != nil {
		return err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	if total > 0 {
		s.migrated.Store(owner, struct{}{})
		return nil
	}

	legacy, err := s.legacy.ReadAll(ctx, owner)
	if err != nil {
		return err
	}
	legacyTotal := 0
	for _, n := range legacy.Counts() {
		legacyTotal += n
	}
	if legacyTotal == 0 {
		s.migrated.Store(owner, struct{}{})
		return nil
	}

	logger.Info(ctx, "migrating legacy data into indexed store",
		"owner", owner, "documents", legacyTotal)
	if err := s.WriteAll(ctx, owner, legacy); err != nil {
		return err
	}
	s.migrated.Store(owner, struct{}{})
	return nil
}

// --- storage.Flags ---

func (s *Store) GetFlag(ctx context.Context, owner, name string) (string, error) {
	var value string
	err := s.txm.GetQuerier(ctx).QueryRow(ctx,
		`SELECT value FROM doc_flags WHERE owner_id = $1 AND name = $2`,
		owner, name).Scan(&value)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read flag: %w", err)
	}
	return value, nil
}

func (s *Store) SetFlag(ctx context.Context, owner, name, value string) error {
	_, err := s.txm.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO doc_flags (owner_id, name, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, name) DO UPDATE SET value = EXCLUDED.value`,
		owner, name, value)
	if err != nil {
		return fmt.Errorf("write flag: %w", err)
	}
	return nil
}
