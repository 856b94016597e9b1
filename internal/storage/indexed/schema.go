package indexed

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"whiskeyballet/internal/core/document"
)

// tableFor maps a collection name to its table: doc_ + snake_case.
func tableFor(collection string) string {
	var b strings.Builder
	b.WriteString("doc_")
	for i, r := range collection {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Schema returns the DDL for every collection table plus the revision and
// flag tables. Statements are idempotent.
func Schema() []string {
	var stmts []string
	for _, c := range document.All() {
		table := tableFor(c)
		stmts = append(stmts, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    owner_id   text        NOT NULL,
    id         bigint      NOT NULL,
    branch_id  text        NOT NULL DEFAULT '',
    deleted_at timestamptz,
    deleted_by text        NOT NULL DEFAULT '',
    created_at timestamptz,
    updated_at timestamptz,
    payload    jsonb       NOT NULL,
    PRIMARY KEY (owner_id, id)
)`, table))
		stmts = append(stmts, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_owner_idx ON %s (owner_id)`, table, table))
	}

	stmts = append(stmts, `
CREATE TABLE IF NOT EXISTS doc_revisions (
    owner_id   text   NOT NULL,
    collection text   NOT NULL,
    revision   bigint NOT NULL DEFAULT 0,
    PRIMARY KEY (owner_id, collection)
)`)
	stmts = append(stmts, `
CREATE TABLE IF NOT EXISTS doc_flags (
    owner_id text NOT NULL,
    name     text NOT NULL,
    value    text NOT NULL DEFAULT '',
    PRIMARY KEY (owner_id, name)
)`)
	stmts = append(stmts, `
CREATE TABLE IF NOT EXISTS sys_audit (
    id             uuid        PRIMARY KEY,
    owner_id       text        NOT NULL,
    collection     text        NOT NULL,
    doc_id         bigint      NOT NULL,
    action         text        NOT NULL,
    user_id        text        NOT NULL DEFAULT '',
    changes        jsonb,
    changes_zstd   bytea,
    compression    text        NOT NULL DEFAULT 'none',
    created_at     timestamptz NOT NULL
)`)
	return stmts
}

// EnsureSchema applies the schema statements.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range Schema() {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
