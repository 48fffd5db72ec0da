package domain

import "github.com/shopspring/decimal"

// Currency is the registry-owned display metadata for a currency code. The
// ledger core treats it as read-only.
type Currency struct {
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
	Symbol      string `json:"symbol"`
}

// TransferResult is the outcome of a successful transfer. Tax is the amount
// withheld from the credited side; zero when tax was not applied.
type TransferResult struct {
	Tax decimal.Decimal `json:"tax"`
}
