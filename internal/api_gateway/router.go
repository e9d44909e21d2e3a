package api_gateway

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/tenx-bank-ledger/internal/api_gateway/handler"
	"github.com/tenx-bank-ledger/internal/api_gateway/middleware"
	"github.com/tenx-bank-ledger/internal/config"
	"github.com/tenx-bank-ledger/internal/platform/metrics"
)

const apiPrefix = "/api/"

// handlers groups every HTTP handler the router mounts
type handlers struct {
	account  *handler.AccountHandler
	transfer *handler.TransferHandler
	admin    *handler.AdminHandler
	legacy   *handler.LegacyHandler
	health   *handler.HealthHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, cfg *config.Config, r *gin.Engine, h handlers) {
	r.Use(middleware.Recovery(logger, apiPrefix))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	if cfg.RateLimit.RPS > 0 {
		r.Use(middleware.NewRateLimiter(logger, cfg.RateLimit.RPS, cfg.RateLimit.Burst).Handler())
	}

	// Plain-text endpoints kept for existing clients
	r.GET("/", h.legacy.Greeting)
	r.GET("/getaccountstatus", h.legacy.GetAccountStatuses)
	r.GET("/getaccountstatus/:id", h.legacy.GetAccountStatus)
	r.POST("/createaccount", h.legacy.CreateAccount)
	r.POST("/transfer", h.legacy.Transfer)
	r.GET("/clearalldata/:tablename", h.legacy.ClearTable)

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", h.account.Create)
			accounts.GET("", h.account.List)
			accounts.GET("/:id", h.account.GetByID)
			accounts.GET("/:id/transactions", h.transfer.GetByAccountID)
		}

		transfers := v1.Group("/transfers")
		{
			transfers.POST("", h.transfer.Create)
			transfers.POST("/async", h.transfer.CreateAsync)
			transfers.GET("/:id", h.transfer.GetByID)
		}

		admin := v1.Group("/admin")
		{
			admin.DELETE("/tables/:table", h.admin.ClearTable)
		}
	}

	r.GET("/health", h.health.Health)

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}
}
