// Package main runs storage migrations from the command line: schema
// setup, payment-status normalization, branch-id backfill, bulk copy
// from the file store into the indexed store, parity verification, and
// rollback.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"whiskeyballet/internal/domain/auth"
	"whiskeyballet/internal/migrate"
	"whiskeyballet/internal/storage/docstore"
	"whiskeyballet/internal/storage/indexed"
	"whiskeyballet/pkg/logger"
)

func main() {
	var (
		owner   = flag.String("owner", "", "tenant (admin) id to migrate")
		dataDir = flag.String("data-dir", "./data", "file store directory")
		prefix  = flag.String("prefix", "wb", "file store key prefix")
		action  = flag.String("action", "migrate",
			"migrate | verify | commit | rollback | schema | normalize | backfill")
	)
	flag.Parse()

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	fileStore := docstore.New(*dataDir, *prefix)

	// Normalization and backfill rewrite legacy file-store documents in
	// place and need no database connection.
	switch *action {
	case "normalize":
		requireOwner(log, *owner)
		changed, err := migrate.NewNormalizer(fileStore, fileStore).Run(ctx, *owner)
		if err != nil {
			log.Fatalw("normalization failed", "error", err)
		}
		log.Infow("payment statuses normalized", "changed", changed)
		return

	case "backfill":
		requireOwner(log, *owner)
		users, err := auth.NewFlagRepository(fileStore).ListByAdmin(ctx, *owner)
		if err != nil {
			log.Fatalw("failed to load user roster", "error", err)
		}
		branchUsers := make([]migrate.BranchUser, 0, len(users))
		for _, u := range users {
			branchUsers = append(branchUsers, migrate.BranchUser{ID: u.ID, BranchID: u.BranchID})
		}
		changed, err := migrate.NewBackfiller(fileStore, fileStore).Run(ctx, *owner, branchUsers)
		if err != nil {
			log.Fatalw("backfill failed", "error", err)
		}
		log.Infow("branch ids backfilled", "changed", changed)
		return
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	pool, err := indexed.NewPool(ctx, indexed.DefaultPoolConfig(dsn))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	if *action == "schema" {
		if err := indexed.EnsureSchema(ctx, pool); err != nil {
			log.Fatalw("schema setup failed", "error", err)
		}
		log.Info("schema is up to date")
		return
	}

	requireOwner(log, *owner)

	txm := indexed.NewTxManager(pool)
	idx := indexed.New(txm, nil)
	bulk := migrate.NewBulk(fileStore, idx, idx)

	switch *action {
	case "migrate":
		if err := indexed.EnsureSchema(ctx, pool); err != nil {
			log.Fatalw("schema setup failed", "error", err)
		}
		result, err := bulk.MigrateOwner(ctx, *owner)
		if err != nil {
			log.Fatalw("migration failed", "error", err)
		}
		for collection, n := range result.Migrated {
			log.Infow("migrated", "collection", collection, "documents", n)
		}
		for collection, n := range result.Failed {
			log.Warnw("failed", "collection", collection, "documents", n)
		}

	case "verify":
		diffs, err := bulk.Verify(ctx, *owner)
		if err != nil {
			log.Fatalw("verification failed", "error", err)
		}
		if len(diffs) == 0 {
			log.Info("stores agree")
			return
		}
		for _, d := range diffs {
			log.Warnw("count mismatch", "collection", d.Collection, "source", d.Source, "target", d.Target)
		}
		os.Exit(1)

	case "commit":
		if err := bulk.Commit(ctx, *owner); err != nil {
			log.Fatalw("commit failed", "error", err)
		}
		log.Info("indexed store enabled")

	case "rollback":
		if err := bulk.Rollback(ctx, *owner); err != nil {
			log.Fatalw("rollback failed", "error", err)
		}
		log.Info("rolled back to file store")

	default:
		log.Fatalw("unknown action", "action", *action)
	}
}

func requireOwner(log *logger.Logger, owner string) {
	if owner == "" {
		log.Fatal("-owner is required")
	}
}
