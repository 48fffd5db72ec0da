// Package cached layers an in-process cache over any LedgerStore so cache
// semantics are backend-independent: a load after a save in the same process
// returns the saved state without re-reading the medium.
package cached

import (
	"context"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/m0nxef/gbank/internal/core/domain"
	portsrepo "github.com/m0nxef/gbank/internal/core/ports/repositories"
)

// DefaultSize is the cache capacity used when the configuration does not
// name one.
const DefaultSize = 1024

type txKey struct {
	id       uuid.UUID
	currency string
}

// txEntry caches a newest-first prefix of an account's history. complete
// means the underlying store had no more entries than cached when last read.
// An entry is only read or mutated under its key's lock.
type txEntry struct {
	txs      []domain.Transaction
	complete bool
}

// Store wraps an inner LedgerStore with an LRU account cache and an LRU
// transaction-list cache. Accounts are cached as private clones so callers
// mutating a loaded account cannot corrupt the cache before saving.
//
// Appends and read-through queries for the same (account, currency) are
// serialized on a per-key lock so a read-through fill can never land after,
// and hide, a concurrently appended entry.
type Store struct {
	inner    portsrepo.LedgerStore
	accounts *lru.Cache[uuid.UUID, *domain.Account]
	tx       *lru.Cache[txKey, *txEntry]

	// Guards txLocks. Lock entries are never removed; the table grows with
	// the number of distinct (account, currency) pairs touched.
	mu      sync.Mutex
	txLocks map[txKey]*sync.Mutex
}

var _ portsrepo.LedgerStore = (*Store)(nil)

// New wraps inner with caches holding up to size accounts and size
// transaction lists.
func New(inner portsrepo.LedgerStore, size int) (*Store, error) {
	if size <= 0 {
		size = DefaultSize
	}
	accounts, err := lru.New[uuid.UUID, *domain.Account](size)
	if err != nil {
		return nil, err
	}
	tx, err := lru.New[txKey, *txEntry](size)
	if err != nil {
		return nil, err
	}
	return &Store{
		inner:    inner,
		accounts: accounts,
		tx:       tx,
		txLocks:  make(map[txKey]*sync.Mutex),
	}, nil
}

func clone(account *domain.Account) *domain.Account {
	return domain.NewAccountWithBalances(account.ID(), account.Balances())
}

// lockKey acquires the exclusive section for one (account, currency) history.
func (s *Store) lockKey(key txKey) func() {
	s.mu.Lock()
	m, ok := s.txLocks[key]
	if !ok {
		m = &sync.Mutex{}
		s.txLocks[key] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// LoadAccount serves from the cache once seeded; cold loads read through and
// seed it. Absence is not cached: a missing account stays a medium question
// until something writes it.
func (s *Store) LoadAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	if cached, ok := s.accounts.Get(id); ok {
		return clone(cached), nil
	}

	account, err := s.inner.LoadAccount(ctx, id)
	if err != nil || account == nil {
		return account, err
	}
	s.accounts.Add(id, clone(account))
	return account, nil
}

// SaveAccount writes through and refreshes the cache, so the cache is
// authoritative for every account saved in this process.
func (s *Store) SaveAccount(ctx context.Context, account *domain.Account) error {
	if err := s.inner.SaveAccount(ctx, account); err != nil {
		return err
	}
	s.accounts.Add(account.ID(), clone(account))
	return nil
}

// AppendTransaction writes through and, when the (id, currency) history is
// cached, prepends the new entry to keep the cached list newest-first.
func (s *Store) AppendTransaction(ctx context.Context, id uuid.UUID, currency string, tx domain.Transaction) error {
	key := txKey{id, currency}
	unlock := s.lockKey(key)
	defer unlock()

	if err := s.inner.AppendTransaction(ctx, id, currency, tx); err != nil {
		return err
	}
	if entry, ok := s.tx.Get(key); ok {
		entry.txs = append([]domain.Transaction{tx}, entry.txs...)
	}
	return nil
}

// QueryTransactions serves from the cache when it holds enough entries,
// otherwise reads through and refreshes it. The key lock is held across the
// inner read and the fill, so the filled list reflects every append committed
// before it.
func (s *Store) QueryTransactions(ctx context.Context, id uuid.UUID, currency string, limit int) ([]domain.Transaction, error) {
	key := txKey{id, currency}
	unlock := s.lockKey(key)
	defer unlock()

	if entry, ok := s.tx.Get(key); ok && (entry.complete || len(entry.txs) >= limit) {
		out := entry.txs
		if len(out) > limit {
			out = out[:limit]
		}
		result := make([]domain.Transaction, len(out))
		copy(result, out)
		return result, nil
	}

	txs, err := s.inner.QueryTransactions(ctx, id, currency, limit)
	if err != nil {
		return nil, err
	}
	s.tx.Add(key, &txEntry{
		txs:      append([]domain.Transaction(nil), txs...),
		complete: len(txs) < limit,
	})
	return txs, nil
}

// Close closes the inner store.
func (s *Store) Close(ctx context.Context) error {
	return s.inner.Close(ctx)
}
