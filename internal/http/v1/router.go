// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
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
	"whiskeyballet/internal/http/v1/handlers"
	"whiskeyballet/internal/http/v1/middleware"
	"whiskeyballet/internal/migrate"
	"whiskeyballet/internal/recovery"
	"whiskeyballet/internal/storage"
	"whiskeyballet/pkg/logger"
)

// RouterConfig holds everything the router wires together.
type RouterConfig struct {
	Logger       *logger.Logger
	JWTValidator middleware.JWTValidator
	SyncAPIKey   string // pre-shared key peers use on the sync endpoints

	Store storage.Collections
	Pool  *pgxpool.Pool // nil without the indexed store

	AuthService        *auth.Service
	InventoryService   *inventory.Service
	SalesService       *sales.Service
	ProcurementService *procurement.Service
	ExpensesService    *expenses.Service
	SettingsService    *settings.Service
	ReportsService     *reports.Service
	RecoveryManager    *recovery.Manager
	BackupService      *backup.Service
	SyncApplier        *cloudsync.Applier
	BulkMigration      *migrate.Bulk
	AuditRecorder      *audit.Recorder // nil without the indexed store
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	base := handlers.NewBaseHandler()

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/v1")
	{
		// Public auth endpoint
		authHandler := handlers.NewAuthHandler(base, cfg.AuthService)
		v1.POST("/auth/login", authHandler.Login)

		// The sync probe target stays unauthenticated; the probe
		// only needs any response at all.
		syncHandler := handlers.NewSyncHandler(base, cfg.SyncApplier, cfg.Store)
		v1.HEAD("/sync", syncHandler.Head)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		protected.POST("/auth/register", middleware.RequireAdmin(), authHandler.Register)

		inventoryHandler := handlers.NewInventoryHandler(base, cfg.InventoryService)
		products := protected.Group("/products")
		{
			products.GET("", inventoryHandler.List)
			products.POST("", inventoryHandler.Add)
			products.GET("/:id", inventoryHandler.Get)
			products.PUT("/:id", inventoryHandler.Update)
			products.DELETE("/:id", inventoryHandler.Delete)
			products.POST("/:id/adjust", inventoryHandler.Adjust)
		}

		salesHandler := handlers.NewSalesHandler(base, cfg.SalesService)
		transactions := protected.Group("/transactions")
		{
			transactions.GET("", salesHandler.List)
			transactions.POST("", salesHandler.Record)
			transactions.POST("/settle", salesHandler.Settle)
		}

		procurementHandler := handlers.NewProcurementHandler(base, cfg.ProcurementService)
		protected.GET("/suppliers", procurementHandler.ListSuppliers)
		protected.POST("/suppliers", procurementHandler.AddSupplier)
		protected.POST("/purchase-orders", procurementHandler.CreateOrder)
		protected.POST("/goods-received", procurementHandler.ReceiveGoods)
		protected.POST("/supplier-payments", procurementHandler.RecordPayment)

		expensesHandler := handlers.NewExpensesHandler(base, cfg.ExpensesService)
		protected.GET("/expenses", expensesHandler.List)
		protected.POST("/expenses", expensesHandler.Create)

		settingsHandler := handlers.NewSettingsHandler(base, cfg.SettingsService)
		protected.GET("/settings", settingsHandler.Get)
		protected.PUT("/settings", middleware.RequireAdmin(), settingsHandler.Update)

		reportsHandler := handlers.NewReportsHandler(base, cfg.ReportsService)
		protected.GET("/reports/sales", reportsHandler.Sales)
		protected.GET("/reports/low-stock", reportsHandler.LowStock)

		recoveryHandler := handlers.NewRecoveryHandler(base, cfg.RecoveryManager)
		rec := protected.Group("/recovery")
		{
			rec.POST("/restore-range", recoveryHandler.RestoreRange)
			rec.GET("/:collection", recoveryHandler.Deleted)
			rec.GET("/:collection/sessions", recoveryHandler.Sessions)
			rec.POST("/:collection/:id", recoveryHandler.RestoreItem)
		}

		backupHandler := handlers.NewBackupHandler(base, cfg.BackupService)
		protected.GET("/backup", backupHandler.Export)
		protected.GET("/backup/last", backupHandler.LastBackup)
		protected.POST("/backup/restore", middleware.RequireAdmin(), backupHandler.Restore)

		// Sync accepts the pre-shared API key in addition to a bearer
		// token so a peer's sync client can drain its queue here.
		syncAuth := v1.Group("/sync")
		syncAuth.Use(middleware.AuthOrAPIKey(cfg.JWTValidator, cfg.SyncAPIKey))
		{
			syncAuth.POST("", syncHandler.Push)
			syncAuth.GET("", syncHandler.Get)
		}

		if cfg.AuditRecorder != nil {
			auditHandler := handlers.NewAuditHandler(base, cfg.AuditRecorder)
			protected.GET("/audit/:collection/:id", auditHandler.History)
		}

		adminHandler := handlers.NewAdminHandler(base, cfg.BulkMigration, cfg.Store)
		admin := protected.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("/migrate", adminHandler.Migrate)
			admin.GET("/migrate/verify", adminHandler.Verify)
			admin.POST("/migrate/commit", adminHandler.Commit)
			admin.POST("/migrate/rollback", adminHandler.Rollback)
			admin.POST("/clear-data", adminHandler.ClearData)
		}
	}

	return router
}
