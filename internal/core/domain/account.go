package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account holds the per-currency balances for one identity. Balances are only
// reachable through methods so the non-negative invariant cannot be broken by
// direct map edits.
type Account struct {
	id       uuid.UUID
	balances map[string]decimal.Decimal
}

// NewAccount creates an account with no balances. It is not persisted until a
// store saves it.
func NewAccount(id uuid.UUID) *Account {
	return &Account{
		id:       id,
		balances: make(map[string]decimal.Decimal),
	}
}

// NewAccountWithBalances rebuilds an account from a persisted balance map.
// Negative persisted amounts are clamped to zero on the way in.
func NewAccountWithBalances(id uuid.UUID, balances map[string]decimal.Decimal) *Account {
	a := NewAccount(id)
	for currency, amount := range balances {
		a.SetBalance(currency, amount)
	}
	return a
}

// ID returns the account's identity.
func (a *Account) ID() uuid.UUID { return a.id }

// Balance returns the balance for currency, zero if the account never held it.
func (a *Account) Balance(currency string) decimal.Decimal {
	if amount, ok := a.balances[currency]; ok {
		return amount
	}
	return decimal.Zero
}

// SetBalance replaces the balance for currency, clamping negative amounts to
// zero.
func (a *Account) SetBalance(currency string, amount decimal.Decimal) {
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	a.balances[currency] = amount
}

// AddBalance credits amount to the currency's balance.
func (a *Account) AddBalance(currency string, amount decimal.Decimal) {
	a.SetBalance(currency, a.Balance(currency).Add(amount))
}

// RemoveBalance debits amount from the currency's balance. It returns false
// and leaves the account untouched when the balance is short.
func (a *Account) RemoveBalance(currency string, amount decimal.Decimal) bool {
	current := a.Balance(currency)
	if current.LessThan(amount) {
		return false
	}
	a.SetBalance(currency, current.Sub(amount))
	return true
}

// HasBalance reports whether the account holds at least amount of currency.
// Negative amounts are never "held".
func (a *Account) HasBalance(currency string, amount decimal.Decimal) bool {
	if amount.IsNegative() {
		return false
	}
	return a.Balance(currency).GreaterThanOrEqual(amount)
}

// Balances returns a copy of the balance map.
func (a *Account) Balances() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(a.balances))
	for currency, amount := range a.balances {
		out[currency] = amount
	}
	return out
}
