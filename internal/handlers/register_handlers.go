package handlers

import (
	"github.com/gin-gonic/gin"

	portssvc "github.com/m0nxef/gbank/internal/core/ports/services"
	"github.com/m0nxef/gbank/internal/middleware"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	ledger portssvc.LedgerSvc,
	registry portssvc.CurrencyRegistry,
) {
	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	// Prometheus scrape endpoint
	r.GET("/metrics", middleware.MetricsHandler())

	setupAPIV1Routes(r, ledger, registry)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	ledger portssvc.LedgerSvc,
	registry portssvc.CurrencyRegistry,
) {
	v1 := r.Group("/api/v1")

	registerLedgerRoutes(v1, ledger)
	registerCurrencyRoutes(v1, registry)
}
