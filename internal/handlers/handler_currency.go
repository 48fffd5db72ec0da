package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/m0nxef/gbank/internal/core/ports/services"
	"github.com/m0nxef/gbank/internal/dto"
)

// currencyHandler serves read-only currency registry lookups.
type currencyHandler struct {
	registry portssvc.CurrencyRegistry
}

func newCurrencyHandler(registry portssvc.CurrencyRegistry) *currencyHandler {
	return &currencyHandler{registry: registry}
}

// registerCurrencyRoutes registers the currency listing and lookup routes.
func registerCurrencyRoutes(rg *gin.RouterGroup, registry portssvc.CurrencyRegistry) {
	h := newCurrencyHandler(registry)

	currencies := rg.Group("/currencies")
	{
		currencies.GET("", h.listCurrencies)
		currencies.GET("/:code", h.getCurrency)
	}
}

// listCurrencies returns every registered currency.
func (h *currencyHandler) listCurrencies(c *gin.Context) {
	codes := h.registry.Codes()
	responses := make([]dto.CurrencyResponse, 0, len(codes))
	for _, code := range codes {
		if currency, ok := h.registry.Get(code); ok {
			responses = append(responses, dto.ToCurrencyResponse(currency))
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"defaultCurrency": h.registry.DefaultCurrency(),
		"taxRate":         h.registry.TaxRate(),
		"currencies":      responses,
	})
}

// getCurrency returns one registered currency by code.
func (h *currencyHandler) getCurrency(c *gin.Context) {
	code := c.Param("code")
	currency, ok := h.registry.Get(code)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Currency not registered: " + code})
		return
	}
	c.JSON(http.StatusOK, dto.ToCurrencyResponse(currency))
}
