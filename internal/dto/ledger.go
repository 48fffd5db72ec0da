package dto

import (
	"github.com/shopspring/decimal"

	"github.com/m0nxef/gbank/internal/core/domain"
)

// Amounts arrive as strings and are parsed into decimals in the handler so a
// malformed number is a validation error, not a JSON error.

// TransferRequest defines the data needed to move currency between accounts.
type TransferRequest struct {
	From     string `json:"from" binding:"required,uuid"`
	To       string `json:"to" binding:"required,uuid"`
	Currency string `json:"currency" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
	ApplyTax bool   `json:"applyTax"`
}

// MutationRequest defines the data for a single-account credit or debit.
type MutationRequest struct {
	Currency string `json:"currency" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
	Detail   string `json:"detail"`
}

// SetBalanceRequest defines the data for an admin balance replacement.
type SetBalanceRequest struct {
	Amount string `json:"amount" binding:"required"`
	Detail string `json:"detail"`
}

// TransferResponse reports a committed transfer.
type TransferResponse struct {
	Tax decimal.Decimal `json:"tax"`
	// AuditWarning is set when the balance change committed but one or both
	// audit entries could not be appended.
	AuditWarning string `json:"auditWarning,omitempty"`
}

// BalanceResponse reports one currency balance.
type BalanceResponse struct {
	AccountID string          `json:"accountID"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
}

// BalancesResponse reports every balance an account holds.
type BalancesResponse struct {
	AccountID string                     `json:"accountID"`
	Balances  map[string]decimal.Decimal `json:"balances"`
}

// TransactionResponse defines the data returned for one audit entry.
type TransactionResponse struct {
	Kind      string          `json:"kind"`
	Label     string          `json:"label"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp int64           `json:"timestamp"`
	Detail    string          `json:"detail"`
}

// CurrencyResponse defines the data returned for a registered currency.
type CurrencyResponse struct {
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
	Symbol      string `json:"symbol"`
}

// ToTransactionResponse converts a domain.Transaction to its DTO.
func ToTransactionResponse(tx domain.Transaction) TransactionResponse {
	return TransactionResponse{
		Kind:      string(tx.Kind),
		Label:     tx.Kind.Label(),
		Amount:    tx.Amount,
		Timestamp: tx.Timestamp,
		Detail:    tx.Detail,
	}
}

// ToTransactionResponses converts a slice of domain.Transaction to DTOs.
func ToTransactionResponses(txs []domain.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(txs))
	for i, tx := range txs {
		responses[i] = ToTransactionResponse(tx)
	}
	return responses
}

// ToCurrencyResponse converts a domain.Currency to its DTO.
func ToCurrencyResponse(c *domain.Currency) CurrencyResponse {
	return CurrencyResponse{
		Code:        c.Code,
		DisplayName: c.DisplayName,
		Symbol:      c.Symbol,
	}
}
