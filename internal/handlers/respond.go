package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m0nxef/gbank/internal/apperrors"
	"github.com/m0nxef/gbank/internal/middleware"
)

// parseAccountID reads the :id route parameter. It writes a 400 response and
// returns false when the value is not a UUID.
func parseAccountID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account id format"})
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON binds the request body into req, writing a 400 response on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return false
	}
	return true
}

// parseAmount parses a decimal amount from its request string form, writing a
// 400 response on failure.
func parseAmount(c *gin.Context, raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount: " + raw})
		return decimal.Decimal{}, false
	}
	return amount, true
}

// respondError maps a service error onto an HTTP status and JSON body.
func respondError(c *gin.Context, err error, publicMsg string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var storageErr *apperrors.StorageError
	switch {
	case errors.Is(err, apperrors.ErrInvalidCurrency), errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrAccountNotFound), errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &storageErr):
		logger.Error(publicMsg,
			slog.String("backend", storageErr.Backend),
			slog.String("op", storageErr.Op),
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": publicMsg})
	default:
		logger.Error(publicMsg, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": publicMsg})
	}
}
