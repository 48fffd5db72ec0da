package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/m0nxef/gbank/internal/core/domain"
)

// LedgerStore is the uniform contract every storage backend implements.
//
// Absence is a normal outcome, not an error: LoadAccount returns (nil, nil)
// for an account that was never saved, and QueryTransactions returns an empty
// slice when no history exists. I/O failures are always surfaced as
// *apperrors.StorageError so callers can tell "not there" from "could not
// read".
//
// The store provides no ordering across independent operations on the same
// account; SaveAccount is last-write-wins. Mutation sequences must be
// serialized by the caller (the ledger service holds a per-account lock).
type LedgerStore interface {
	// LoadAccount fetches the full balance map for id.
	LoadAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// SaveAccount replaces the persisted balance map with account's current
	// state. Saving the same state twice is idempotent.
	SaveAccount(ctx context.Context, account *domain.Account) error

	// AppendTransaction adds one immutable audit entry for (id, currency).
	AppendTransaction(ctx context.Context, id uuid.UUID, currency string, tx domain.Transaction) error

	// QueryTransactions returns at most limit entries for (id, currency),
	// newest first.
	QueryTransactions(ctx context.Context, id uuid.UUID, currency string, limit int) ([]domain.Transaction, error)

	// Close releases the backing medium.
	Close(ctx context.Context) error
}
