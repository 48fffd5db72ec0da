package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m0nxef/gbank/internal/apperrors"
	"github.com/m0nxef/gbank/internal/core/domain"
	portssvc "github.com/m0nxef/gbank/internal/core/ports/services"
	"github.com/m0nxef/gbank/internal/dto"
	"github.com/m0nxef/gbank/internal/middleware"
)

// ledgerHandler handles HTTP requests for balances, mutations, transfers and
// the audit trail.
type ledgerHandler struct {
	ledger portssvc.LedgerSvc
}

func newLedgerHandler(ledger portssvc.LedgerSvc) *ledgerHandler {
	return &ledgerHandler{ledger: ledger}
}

// registerLedgerRoutes registers balance, mutation, transfer and audit routes.
func registerLedgerRoutes(rg *gin.RouterGroup, ledger portssvc.LedgerSvc) {
	h := newLedgerHandler(ledger)

	accounts := rg.Group("/accounts")
	{
		accounts.GET("/:id/balances", h.getBalances)
		accounts.GET("/:id/balances/:currency", h.getBalance)
		accounts.PUT("/:id/balances/:currency", h.setBalance)
		accounts.POST("/:id/credit", h.credit)
		accounts.POST("/:id/debit", h.debit)
		accounts.GET("/:id/transactions", h.getTransactions)
	}
	rg.POST("/transfers", h.transfer)
}

// getBalances returns every balance an account holds.
func (h *ledgerHandler) getBalances(c *gin.Context) {
	id, ok := parseAccountID(c)
	if !ok {
		return
	}

	balances, err := h.ledger.Balances(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to read balances")
		return
	}
	c.JSON(http.StatusOK, dto.BalancesResponse{AccountID: id.String(), Balances: balances})
}

// getBalance returns one currency balance; a never-saved account reads zero.
func (h *ledgerHandler) getBalance(c *gin.Context) {
	id, ok := parseAccountID(c)
	if !ok {
		return
	}
	currency := c.Param("currency")

	balance, err := h.ledger.Balance(c.Request.Context(), id, currency)
	if err != nil {
		respondError(c, err, "Failed to read balance")
		return
	}
	c.JSON(http.StatusOK, dto.BalanceResponse{AccountID: id.String(), Currency: currency, Balance: balance})
}

// credit adds funds to an account, creating it when absent.
func (h *ledgerHandler) credit(c *gin.Context) {
	id, ok := parseAccountID(c)
	if !ok {
		return
	}
	var req dto.MutationRequest
	if !bindJSON(c, &req) {
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	detail := req.Detail
	if detail == "" {
		detail = "Credit via API"
	}
	err := h.ledger.Credit(c.Request.Context(), id, req.Currency, amount, domain.KindDeposit, detail)
	if err != nil {
		var logErr *apperrors.LogAppendError
		if errors.As(err, &logErr) {
			c.JSON(http.StatusOK, gin.H{"auditWarning": logErr.Error()})
			return
		}
		respondError(c, err, "Failed to credit account")
		return
	}
	c.Status(http.StatusNoContent)
}

// debit removes funds from an existing account.
func (h *ledgerHandler) debit(c *gin.Context) {
	id, ok := parseAccountID(c)
	if !ok {
		return
	}
	var req dto.MutationRequest
	if !bindJSON(c, &req) {
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	detail := req.Detail
	if detail == "" {
		detail = "Debit via API"
	}
	err := h.ledger.Debit(c.Request.Context(), id, req.Currency, amount, detail)
	if err != nil {
		var logErr *apperrors.LogAppendError
		if errors.As(err, &logErr) {
			c.JSON(http.StatusOK, gin.H{"auditWarning": logErr.Error()})
			return
		}
		respondError(c, err, "Failed to debit account")
		return
	}
	c.Status(http.StatusNoContent)
}

// setBalance replaces one currency balance, clamped at zero.
func (h *ledgerHandler) setBalance(c *gin.Context) {
	id, ok := parseAccountID(c)
	if !ok {
		return
	}
	currency := c.Param("currency")
	var req dto.SetBalanceRequest
	if !bindJSON(c, &req) {
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount: " + req.Amount})
		return
	}

	detail := req.Detail
	if detail == "" {
		detail = "Balance set via API"
	}
	if err := h.ledger.SetBalance(c.Request.Context(), id, currency, amount, detail); err != nil {
		var logErr *apperrors.LogAppendError
		if errors.As(err, &logErr) {
			c.JSON(http.StatusOK, gin.H{"auditWarning": logErr.Error()})
			return
		}
		respondError(c, err, "Failed to set balance")
		return
	}
	c.Status(http.StatusNoContent)
}

// transfer moves currency between two accounts, optionally applying tax.
func (h *ledgerHandler) transfer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.TransferRequest
	if !bindJSON(c, &req) {
		return
	}

	from, err := uuid.Parse(req.From)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid source account id"})
		return
	}
	to, err := uuid.Parse(req.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid destination account id"})
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	result, err := h.ledger.Transfer(c.Request.Context(), from, to, req.Currency, amount, req.ApplyTax)
	if err != nil {
		var logErr *apperrors.LogAppendError
		if errors.As(err, &logErr) {
			// Balance change committed; report success with an audit warning.
			c.JSON(http.StatusOK, dto.TransferResponse{Tax: result.Tax, AuditWarning: logErr.Error()})
			return
		}
		respondError(c, err, "Failed to transfer")
		return
	}

	logger.Info("Transfer committed",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.String("tax", result.Tax.String()))
	c.JSON(http.StatusOK, dto.TransferResponse{Tax: result.Tax})
}

// getTransactions returns the newest audit entries for (account, currency).
func (h *ledgerHandler) getTransactions(c *gin.Context) {
	id, ok := parseAccountID(c)
	if !ok {
		return
	}
	currency := c.Query("currency")
	if currency == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing currency query parameter"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit: " + raw})
			return
		}
		limit = parsed
	}

	txs, err := h.ledger.Transactions(c.Request.Context(), id, currency, limit)
	if err != nil {
		respondError(c, err, "Failed to query transactions")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponses(txs))
}
