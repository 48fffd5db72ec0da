package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m0nxef/gbank/internal/core/domain"
)

// CurrencyRegistry supplies currency existence checks, display metadata and
// the global transfer tax rate. The ledger core consumes it and never owns it.
type CurrencyRegistry interface {
	// Exists reports whether code is a registered currency.
	Exists(code string) bool

	// Get returns the display metadata for code.
	Get(code string) (*domain.Currency, bool)

	// TaxRate is the transfer tax as a decimal fraction, expected in [0, 1).
	TaxRate() decimal.Decimal

	// DefaultCurrency returns the code credited by automatic payouts.
	DefaultCurrency() string

	// Codes lists all registered currency codes.
	Codes() []string
}

// LedgerSvc is the balance-mutation and transfer surface exposed to the HTTP
// layer and the payout task.
type LedgerSvc interface {
	Balance(ctx context.Context, id uuid.UUID, currency string) (decimal.Decimal, error)
	Balances(ctx context.Context, id uuid.UUID) (map[string]decimal.Decimal, error)
	Credit(ctx context.Context, id uuid.UUID, currency string, amount decimal.Decimal, kind domain.TransactionKind, detail string) error
	Debit(ctx context.Context, id uuid.UUID, currency string, amount decimal.Decimal, detail string) error
	SetBalance(ctx context.Context, id uuid.UUID, currency string, amount decimal.Decimal, detail string) error
	Transfer(ctx context.Context, from, to uuid.UUID, currency string, amount decimal.Decimal, applyTax bool) (*domain.TransferResult, error)
	Transactions(ctx context.Context, id uuid.UUID, currency string, limit int) ([]domain.Transaction, error)
}
