// Package main is the entry point for the Whiskey Ballet API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"whiskeyballet/internal/audit"
	"whiskeyballet/internal/backup"
	"whiskeyballet/internal/cloudsync"
	"whiskeyballet/internal/domain/auth"
	"whiskeyballet/internal/domain/expenses"
	"whiskeyballet/internal/domain/inventory"
	"whiskeyballet/internal/domain/procurement"
	"whiskeyballet/internal/domain/reports"
	"whiskeyballet/internal/domain/sales"
	"whiskeyballet/internal/domain/settings"
	v1 "whiskeyballet/internal/http/v1"
	"whiskeyballet/internal/migrate"
	"whiskeyballet/internal/recovery"
	"whiskeyballet/internal/storage"
	"whiskeyballet/internal/storage/docstore"
	"whiskeyballet/internal/storage/indexed"
	"whiskeyballet/internal/storage/memstore"
	"whiskeyballet/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting whiskeyballet server")

	// --- Storage ---
	cfg := storage.Config{
		Backend:   storage.Backend(getEnv("STORAGE_BACKEND", string(storage.BackendFile))),
		Fallback:  storage.BackendFile,
		DataDir:   getEnv("DATA_DIR", "./data"),
		KeyPrefix: getEnv("KEY_PREFIX", "wb"),
	}

	fileStore := docstore.New(cfg.DataDir, cfg.KeyPrefix)

	var (
		store    storage.Collections
		flags    storage.Flags = fileStore
		pool     *pgxpool.Pool
		recorder *audit.Recorder
	)

	switch cfg.Backend {
	case storage.BackendIndexed:
		dsn := mustEnv("DATABASE_URL")
		pool, err = indexed.NewPool(ctx, indexed.DefaultPoolConfig(dsn))
		if err != nil {
			log.Fatalw("failed to connect to database", "error", err)
		}
		defer pool.Close()

		if err := indexed.EnsureSchema(ctx, pool); err != nil {
			log.Fatalw("failed to ensure schema", "error", err)
		}

		txm := indexed.NewTxManager(pool)
		idx := indexed.New(txm, fileStore)

		recorder, err = audit.NewRecorder(txm)
		if err != nil {
			log.Fatalw("failed to create audit recorder", "error", err)
		}
		idx.SetObserver(recorder)

		store = storage.NewSelector(idx, fileStore).RouteByFlag(idx)
		flags = idx
		log.Info("indexed store active, file store as fallback")

	case storage.BackendMemory:
		mem := memstore.New()
		store = mem
		flags = mem
		log.Info("memory store active")

	default:
		store = fileStore
		log.Infow("file store active", "dir", cfg.DataDir)
	}

	// --- Cloud sync (optional client mode) ---
	// The applier keeps the unobserved store so replayed remote
	// entries are never queued back toward the remote.
	baseStore := store
	var syncManager *cloudsync.Manager
	if remote := getEnv("SYNC_REMOTE_URL", ""); remote != "" {
		client := cloudsync.NewClient(remote, getEnv("SYNC_API_KEY", ""))
		syncOwner := mustEnv("SYNC_ADMIN_ID")
		syncManager = cloudsync.NewManager(client, flags, syncOwner)
		store = cloudsync.NewObservedStore(store, syncManager)
		log.Infow("cloud sync enabled", "remote", remote, "owner", syncOwner)
	}

	// --- Auth ---
	jwtSecret := getEnv("JWT_SECRET", "change-me-in-production")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))
	userRepo := auth.NewFlagRepository(flags)
	authService := auth.NewService(userRepo, jwtService)

	// --- Domain services ---
	normalizer := migrate.NewNormalizer(store, flags)
	backfiller := migrate.NewBackfiller(store, flags)
	inventoryService := inventory.NewService(store)
	salesService := sales.NewService(store, inventoryService, normalizer).
		WithBackfill(backfiller, func(ctx context.Context, owner string) ([]migrate.BranchUser, error) {
			users, err := userRepo.ListByAdmin(ctx, owner)
			if err != nil {
				return nil, err
			}
			branchUsers := make([]migrate.BranchUser, 0, len(users))
			for _, u := range users {
				branchUsers = append(branchUsers, migrate.BranchUser{ID: u.ID, BranchID: u.BranchID})
			}
			return branchUsers, nil
		})
	procurementService := procurement.NewService(store, inventoryService)
	settingsService := settings.NewService(store)
	expensesService := expenses.NewService(store, settingsService)
	reportsService := reports.NewService(salesService, inventoryService, settingsService)
	recoveryManager := recovery.NewManager(store)
	// Bulk migration is store maintenance, not user mutation; it
	// writes through the unobserved store so nothing lands in the
	// sync queue.
	bulkMigration := migrate.NewBulk(fileStore, baseStore, flags)

	backupService, err := backup.NewService(store, flags)
	if err != nil {
		log.Fatalw("failed to create backup service", "error", err)
	}

	if syncManager != nil {
		if err := syncManager.Load(ctx); err != nil {
			log.Warnw("failed to load sync queue", "error", err)
		}
		go syncManager.Run(ctx)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:             log,
		JWTValidator:       jwtService,
		SyncAPIKey:         getEnv("SYNC_API_KEY", ""),
		Store:              store,
		Pool:               pool,
		AuthService:        authService,
		InventoryService:   inventoryService,
		SalesService:       salesService,
		ProcurementService: procurementService,
		ExpensesService:    expensesService,
		SettingsService:    settingsService,
		ReportsService:     reportsService,
		RecoveryManager:    recoveryManager,
		BackupService:      backupService,
		SyncApplier:        cloudsync.NewApplier(baseStore),
		BulkMigration:      bulkMigration,
		AuditRecorder:      recorder,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port, "backend", cfg.Backend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}
