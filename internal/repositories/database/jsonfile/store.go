// Package jsonfile implements the LedgerStore contract on plain JSON files:
// one file per account for balances, one file per (account, currency) for
// transaction history.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m0nxef/gbank/internal/apperrors"
	"github.com/m0nxef/gbank/internal/core/domain"
	portsrepo "github.com/m0nxef/gbank/internal/core/ports/repositories"
)

const backendName = "file"

// Store is the file-backed LedgerStore. Writes overwrite whole files through
// a temp file and rename so a normally terminating process never leaves a
// partial file behind.
type Store struct {
	accountsDir     string
	transactionsDir string

	// Serializes writers against each other and against readers. The store
	// itself provides no per-account ordering; the service layer does.
	mu sync.RWMutex
}

var _ portsrepo.LedgerStore = (*Store)(nil)

// New creates the accounts and transactions directories under dir and returns
// the store.
func New(dir string) (*Store, error) {
	s := &Store{
		accountsDir:     filepath.Join(dir, "accounts"),
		transactionsDir: filepath.Join(dir, "transactions"),
	}
	for _, d := range []string{s.accountsDir, s.transactionsDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, apperrors.NewStorageError(backendName, "init", err)
		}
	}
	return s, nil
}

func (s *Store) accountPath(id uuid.UUID) string {
	return filepath.Join(s.accountsDir, id.String()+".json")
}

func (s *Store) transactionsPath(id uuid.UUID, currency string) string {
	return filepath.Join(s.transactionsDir, fmt.Sprintf("%s_%s.json", id, currency))
}

// LoadAccount reads the account's balance file. A missing file means the
// account was never saved and yields (nil, nil).
func (s *Store) LoadAccount(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.accountPath(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError(backendName, "load_account", err)
	}

	balances := map[string]decimal.Decimal{}
	if err := json.Unmarshal(data, &balances); err != nil {
		return nil, apperrors.NewStorageError(backendName, "load_account", err)
	}
	return domain.NewAccountWithBalances(id, balances), nil
}

// SaveAccount overwrites the account's balance file with its current state.
func (s *Store) SaveAccount(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(account.Balances(), "", "  ")
	if err != nil {
		return apperrors.NewStorageError(backendName, "save_account", err)
	}
	if err := writeFileAtomic(s.accountPath(account.ID()), data); err != nil {
		return apperrors.NewStorageError(backendName, "save_account", err)
	}
	return nil
}

// AppendTransaction rewrites the (account, currency) history file with the
// new entry appended.
func (s *Store) AppendTransaction(_ context.Context, id uuid.UUID, currency string, tx domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.transactionsPath(id, currency)
	history, err := readTransactions(path)
	if err != nil {
		return apperrors.NewStorageError(backendName, "append_transaction", err)
	}
	history = append(history, tx)

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return apperrors.NewStorageError(backendName, "append_transaction", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return apperrors.NewStorageError(backendName, "append_transaction", err)
	}
	return nil
}

// QueryTransactions returns the newest entries for (id, currency), at most
// limit of them. No history file yields an empty slice.
func (s *Store) QueryTransactions(_ context.Context, id uuid.UUID, currency string, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, err := readTransactions(s.transactionsPath(id, currency))
	if err != nil {
		return nil, apperrors.NewStorageError(backendName, "query_transactions", err)
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp > history[j].Timestamp
	})
	if limit >= 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

// Close is a no-op; files are closed per operation.
func (s *Store) Close(context.Context) error { return nil }

func readTransactions(path string) ([]domain.Transaction, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []domain.Transaction{}, nil
	}
	if err != nil {
		return nil, err
	}
	var history []domain.Transaction
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	if history == nil {
		history = []domain.Transaction{}
	}
	return history, nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path, so readers never observe a half-written file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
