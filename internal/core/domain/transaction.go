package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind classifies a ledger audit entry.
type TransactionKind string

const (
	KindDeposit       TransactionKind = "deposit"
	KindWithdrawal    TransactionKind = "withdrawal"
	KindTransferIn    TransactionKind = "transfer_in"
	KindTransferOut   TransactionKind = "transfer_out"
	KindInterest      TransactionKind = "interest"
	KindAutomatic     TransactionKind = "automatic"
	KindAdminSet      TransactionKind = "admin_set"
	KindAdminReset    TransactionKind = "admin_reset"
	KindAdminTransfer TransactionKind = "admin_transfer"
	KindSystem        TransactionKind = "system"
)

// kindInfo carries the display policy for a kind so formatting never needs a
// switch over the enum.
type kindInfo struct {
	label  string
	credit bool
	debit  bool
}

var kindTable = map[TransactionKind]kindInfo{
	KindDeposit:       {label: "Deposit", credit: true},
	KindWithdrawal:    {label: "Withdrawal", debit: true},
	KindTransferIn:    {label: "Transfer In", credit: true},
	KindTransferOut:   {label: "Transfer Out", debit: true},
	KindInterest:      {label: "Interest", credit: true},
	KindAutomatic:     {label: "Automatic Payment", credit: true},
	KindAdminSet:      {label: "Admin Set"},
	KindAdminReset:    {label: "Admin Reset"},
	KindAdminTransfer: {label: "Admin Transfer"},
	KindSystem:        {label: "System"},
}

// Valid reports whether k is a known transaction kind.
func (k TransactionKind) Valid() bool {
	_, ok := kindTable[k]
	return ok
}

// Label returns the human-readable name for the kind, falling back to the raw
// code for unknown kinds loaded from older data.
func (k TransactionKind) Label() string {
	if info, ok := kindTable[k]; ok {
		return info.label
	}
	return string(k)
}

// IsCredit reports whether the kind adds money to the account.
func (k TransactionKind) IsCredit() bool { return kindTable[k].credit }

// IsDebit reports whether the kind removes money from the account.
func (k TransactionKind) IsDebit() bool { return kindTable[k].debit }

// Transaction is one immutable audit entry describing a balance-affecting
// event. Timestamp is wall-clock milliseconds.
type Transaction struct {
	Kind      TransactionKind `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp int64           `json:"timestamp"`
	Detail    string          `json:"detail"`
}

// NewTransaction creates an entry stamped with the current time.
func NewTransaction(kind TransactionKind, amount decimal.Decimal, detail string) Transaction {
	return Transaction{
		Kind:      kind,
		Amount:    amount,
		Timestamp: time.Now().UnixMilli(),
		Detail:    detail,
	}
}

// FormattedAmount renders the amount with an explicit sign and the currency
// symbol, e.g. "$+40.00".
func (t Transaction) FormattedAmount(symbol string) string {
	sign := "+"
	if t.Amount.IsNegative() {
		sign = ""
	}
	return fmt.Sprintf("%s%s%s", symbol, sign, t.Amount.StringFixed(2))
}

// Format renders a one-line human-readable description of the entry.
func (t Transaction) Format(symbol string) string {
	return fmt.Sprintf("[%s] %s - %s", t.Kind.Label(), t.FormattedAmount(symbol), t.Detail)
}

// Time returns the entry's timestamp as a time.Time.
func (t Transaction) Time() time.Time {
	return time.UnixMilli(t.Timestamp)
}
