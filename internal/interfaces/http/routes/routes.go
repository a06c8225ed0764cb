// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/interfaces/http/handlers"
	"github.com/your-org/erp-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SetupRoutes wires all API v1 routes
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	SetupAuthRoutes(rg, db, redisClient, cfg)
	SetupCatalogRoutes(rg, db, redisClient, cfg)
	SetupStockRoutes(rg, db, redisClient, cfg)
	SetupTransformationRoutes(rg, db, redisClient, cfg)
	SetupInvoiceRoutes(rg, db, redisClient, cfg)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(db, cfg)

	auth := rg.Group("/auth")
	{
		// Public auth endpoints
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		// Protected auth endpoints
		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.POST("/logout", authHandler.Logout)
			protected.GET("/profile", authHandler.GetProfile)
		}

		// Operator provisioning requires admin privileges
		admin := auth.Group("")
		admin.Use(middleware.AuthMiddleware(cfg))
		admin.Use(middleware.AdminMiddleware())
		{
			admin.POST("/users", authHandler.CreateUser)
		}
	}
}

// SetupCatalogRoutes sets up item and location catalog routes
func SetupCatalogRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	itemHandler := handlers.NewItemHandler(db, cfg)

	items := rg.Group("/items")
	items.Use(middleware.AuthMiddleware(cfg))
	{
		items.GET("", itemHandler.GetItems)
		items.GET("/:id", itemHandler.GetItem)
		items.POST("", itemHandler.CreateItem)
		items.PUT("/:id", itemHandler.UpdateItem)
	}

	locations := rg.Group("/locations")
	locations.Use(middleware.AuthMiddleware(cfg))
	{
		locations.GET("", itemHandler.GetLocations)
		locations.GET("/:id", itemHandler.GetLocation)
		locations.POST("", itemHandler.CreateLocation)
	}
}

// SetupStockRoutes sets up stock ledger routes
func SetupStockRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	stockHandler := handlers.NewStockHandler(db, redisClient, cfg)

	stock := rg.Group("/stock")
	stock.Use(middleware.AuthMiddleware(cfg))
	{
		stock.POST("/manual", stockHandler.RecordManualStock)
		stock.GET("/ledger", stockHandler.GetLedgerEntries)
		stock.GET("/items/:id/balances", stockHandler.GetLocationBalances)
		stock.GET("/items/:id/total", stockHandler.GetTotalBalance)
		stock.GET("/items/:id/manual-summary", stockHandler.GetManualStockSummary)
	}
}

// SetupTransformationRoutes sets up bundle, repack and rolls production routes
func SetupTransformationRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	transformationHandler := handlers.NewTransformationHandler(db, redisClient, cfg)

	bundles := rg.Group("/bundles")
	bundles.Use(middleware.AuthMiddleware(cfg))
	{
		bundles.GET("", transformationHandler.GetBundles)
		bundles.GET("/:id", transformationHandler.GetBundle)
		bundles.POST("", transformationHandler.CreateBundle)
		bundles.DELETE("/:id", transformationHandler.DeleteBundle)
	}

	repacks := rg.Group("/repacks")
	repacks.Use(middleware.AuthMiddleware(cfg))
	{
		repacks.GET("", transformationHandler.GetRepacks)
		repacks.GET("/:id", transformationHandler.GetRepack)
		repacks.POST("", transformationHandler.CreateRepack)
		repacks.DELETE("/:id", transformationHandler.DeleteRepack)
	}

	rolls := rg.Group("/rolls")
	rolls.Use(middleware.AuthMiddleware(cfg))
	{
		rolls.GET("", transformationHandler.GetRollsBatches)
		rolls.GET("/:id", transformationHandler.GetRollsBatch)
		rolls.POST("", transformationHandler.CreateRollsBatch)
		rolls.POST("/:id/start", transformationHandler.StartRollsBatch)
		rolls.POST("/:id/complete", transformationHandler.CompleteRollsBatch)
		rolls.DELETE("/:id", transformationHandler.DeleteRollsBatch)
	}
}

// SetupInvoiceRoutes sets up sales invoice routes
func SetupInvoiceRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	invoiceHandler := handlers.NewInvoiceHandler(db, redisClient, cfg)

	invoices := rg.Group("/invoices")
	invoices.Use(middleware.AuthMiddleware(cfg))
	{
		invoices.GET("", invoiceHandler.GetInvoices)
		invoices.GET("/:id", invoiceHandler.GetInvoice)
		invoices.POST("", invoiceHandler.CreateInvoice)
		invoices.DELETE("/:id", invoiceHandler.DeleteInvoice)
	}
}
