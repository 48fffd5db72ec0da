// Package pgsql implements the LedgerStore contract on PostgreSQL.
package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/m0nxef/gbank/internal/apperrors"
	"github.com/m0nxef/gbank/internal/core/domain"
	portsrepo "github.com/m0nxef/gbank/internal/core/ports/repositories"
)

const backendName = "relational"

// Store is the PostgreSQL-backed LedgerStore. The schema is owned by the
// embedded migrations (see migrations.go).
type Store struct {
	pool *pgxpool.Pool
}

var _ portsrepo.LedgerStore = (*Store)(nil)

// New wraps an established connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// LoadAccount fetches the account row and its full balance map. No account
// row means the account was never saved and yields (nil, nil).
func (s *Store) LoadAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT TRUE FROM accounts WHERE id = $1;`, id).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError(backendName, "load_account", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT currency, amount FROM balances WHERE id = $1;`, id)
	if err != nil {
		return nil, apperrors.NewStorageError(backendName, "load_account", err)
	}
	defer rows.Close()

	balances := map[string]decimal.Decimal{}
	for rows.Next() {
		var currency string
		var amount decimal.Decimal
		if err := rows.Scan(&currency, &amount); err != nil {
			return nil, apperrors.NewStorageError(backendName, "load_account", err)
		}
		balances[currency] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError(backendName, "load_account", err)
	}

	return domain.NewAccountWithBalances(id, balances), nil
}

// SaveAccount replaces the persisted balance map in a single transaction:
// upsert the account row, delete prior balances, re-insert the current map.
// Any failure rolls the whole replacement back.
func (s *Store) SaveAccount(ctx context.Context, account *domain.Account) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperrors.NewStorageError(backendName, "save_account", err)
	}
	defer tx.Rollback(ctx) // No-op once committed.

	now := time.Now().UnixMilli()
	_, err = tx.Exec(ctx, `
		INSERT INTO accounts (id, last_updated) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET last_updated = EXCLUDED.last_updated;
	`, account.ID(), now)
	if err != nil {
		return apperrors.NewStorageError(backendName, "save_account", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM balances WHERE id = $1;`, account.ID())
	if err != nil {
		return apperrors.NewStorageError(backendName, "save_account", err)
	}

	balances := account.Balances()
	if len(balances) > 0 {
		batch := &pgx.Batch{}
		for currency, amount := range balances {
			batch.Queue(
				`INSERT INTO balances (id, currency, amount) VALUES ($1, $2, $3);`,
				account.ID(), currency, amount)
		}
		br := tx.SendBatch(ctx, batch)
		var batchErr error
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil && batchErr == nil {
				batchErr = err
			}
		}
		if err := br.Close(); err != nil && batchErr == nil {
			batchErr = err
		}
		if batchErr != nil {
			return apperrors.NewStorageError(backendName, "save_account", batchErr)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewStorageError(backendName, "save_account", err)
	}
	return nil
}

// AppendTransaction inserts one audit row.
func (s *Store) AppendTransaction(ctx context.Context, id uuid.UUID, currency string, txn domain.Transaction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions (account_id, currency, kind, amount, detail, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6);
	`, id, currency, string(txn.Kind), txn.Amount, txn.Detail, txn.Timestamp)
	if err != nil {
		return apperrors.NewStorageError(backendName, "append_transaction", err)
	}
	return nil
}

// QueryTransactions is a single indexed range query, newest first, limited
// server-side.
func (s *Store) QueryTransactions(ctx context.Context, id uuid.UUID, currency string, limit int) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT kind, amount, detail, timestamp
		FROM transactions
		WHERE account_id = $1 AND currency = $2
		ORDER BY timestamp DESC, id DESC
		LIMIT $3;
	`, id, currency, limit)
	if err != nil {
		return nil, apperrors.NewStorageError(backendName, "query_transactions", err)
	}
	defer rows.Close()

	txs := []domain.Transaction{}
	for rows.Next() {
		var txn domain.Transaction
		var kind string
		if err := rows.Scan(&kind, &txn.Amount, &txn.Detail, &txn.Timestamp); err != nil {
			return nil, apperrors.NewStorageError(backendName, "query_transactions", err)
		}
		txn.Kind = domain.TransactionKind(kind)
		txs = append(txs, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError(backendName, "query_transactions", err)
	}
	return txs, nil
}

// Close releases the connection pool.
func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}

// BuildDSN assembles a pgx connection string from discrete parameters.
func BuildDSN(host string, port int, database, user, password string, tls bool) string {
	sslmode := "disable"
	if tls {
		sslmode = "require"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		user, password, host, port, database, sslmode)
}
