package cached_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m0nxef/gbank/internal/core/domain"
	"github.com/m0nxef/gbank/internal/repositories/cached"
)

// countingStore is an in-memory LedgerStore that counts reads so tests can
// tell cache hits from read-throughs.
type countingStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]map[string]decimal.Decimal
	history  map[string][]domain.Transaction

	loadCalls  int
	queryCalls int
}

func newCountingStore() *countingStore {
	return &countingStore{
		accounts: make(map[uuid.UUID]map[string]decimal.Decimal),
		history:  make(map[string][]domain.Transaction),
	}
}

func (c *countingStore) LoadAccount(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadCalls++
	balances, ok := c.accounts[id]
	if !ok {
		return nil, nil
	}
	return domain.NewAccountWithBalances(id, balances), nil
}

func (c *countingStore) SaveAccount(_ context.Context, account *domain.Account) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[account.ID()] = account.Balances()
	return nil
}

func (c *countingStore) AppendTransaction(_ context.Context, id uuid.UUID, currency string, tx domain.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := id.String() + "_" + currency
	c.history[key] = append([]domain.Transaction{tx}, c.history[key]...)
	return nil
}

func (c *countingStore) QueryTransactions(_ context.Context, id uuid.UUID, currency string, limit int) ([]domain.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queryCalls++
	txs := c.history[id.String()+"_"+currency]
	if len(txs) > limit {
		txs = txs[:limit]
	}
	out := make([]domain.Transaction, len(txs))
	copy(out, txs)
	return out, nil
}

func (c *countingStore) Close(context.Context) error { return nil }

func TestCached_LoadServesFromCacheAfterSave(t *testing.T) {
	inner := newCountingStore()
	store, err := cached.New(inner, 16)
	require.NoError(t, err)
	ctx := context.Background()
	id := uuid.New()

	account := domain.NewAccount(id)
	account.AddBalance("gold", decimal.NewFromInt(50))
	require.NoError(t, store.SaveAccount(ctx, account))

	loaded, err := store.LoadAccount(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.Balance("gold").Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 0, inner.loadCalls)
}

func TestCached_ColdLoadReadsThroughOnce(t *testing.T) {
	inner := newCountingStore()
	store, err := cached.New(inner, 16)
	require.NoError(t, err)
	ctx := context.Background()
	id := uuid.New()

	seed := domain.NewAccount(id)
	seed.AddBalance("gold", decimal.NewFromInt(9))
	require.NoError(t, inner.SaveAccount(ctx, seed))

	_, err = store.LoadAccount(ctx, id)
	require.NoError(t, err)
	_, err = store.LoadAccount(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.loadCalls)
}

func TestCached_AbsenceIsNotCached(t *testing.T) {
	inner := newCountingStore()
	store, err := cached.New(inner, 16)
	require.NoError(t, err)
	ctx := context.Background()
	id := uuid.New()

	account, err := store.LoadAccount(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, account)

	// A second load must ask the medium again.
	_, err = store.LoadAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.loadCalls)
}

func TestCached_MutatingLoadedAccountDoesNotCorruptCache(t *testing.T) {
	inner := newCountingStore()
	store, err := cached.New(inner, 16)
	require.NoError(t, err)
	ctx := context.Background()
	id := uuid.New()

	account := domain.NewAccount(id)
	account.AddBalance("gold", decimal.NewFromInt(10))
	require.NoError(t, store.SaveAccount(ctx, account))

	loaded, err := store.LoadAccount(ctx, id)
	require.NoError(t, err)
	loaded.AddBalance("gold", decimal.NewFromInt(999))

	fresh, err := store.LoadAccount(ctx, id)
	require.NoError(t, err)
	assert.True(t, fresh.Balance("gold").Equal(decimal.NewFromInt(10)))
}

func TestCached_QueryServedFromCacheAfterAppend(t *testing.T) {
	inner := newCountingStore()
	store, err := cached.New(inner, 16)
	require.NoError(t, err)
	ctx := context.Background()
	id := uuid.New()

	first := domain.Transaction{Kind: domain.KindDeposit, Amount: decimal.NewFromInt(1), Timestamp: 1}
	require.NoError(t, store.AppendTransaction(ctx, id, "gold", first))

	// Seed the cache; the medium holds one entry, fewer than the limit.
	txs, err := store.QueryTransactions(ctx, id, "gold", 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, 1, inner.queryCalls)

	second := domain.Transaction{Kind: domain.KindDeposit, Amount: decimal.NewFromInt(2), Timestamp: 2}
	require.NoError(t, store.AppendTransaction(ctx, id, "gold", second))

	txs, err = store.QueryTransactions(ctx, id, "gold", 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	// Newest first, served without another medium read.
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, 1, inner.queryCalls)
}

// gatedStore stalls the first inner query after it has taken its snapshot so
// a concurrent append can be interleaved with the read-through.
type gatedStore struct {
	*countingStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		countingStore: newCountingStore(),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (g *gatedStore) QueryTransactions(ctx context.Context, id uuid.UUID, currency string, limit int) ([]domain.Transaction, error) {
	txs, err := g.countingStore.QueryTransactions(ctx, id, currency, limit)
	gated := false
	g.once.Do(func() { gated = true })
	if gated {
		close(g.entered)
		<-g.release
	}
	return txs, err
}

func TestCached_AppendDuringReadThroughStaysVisible(t *testing.T) {
	inner := newGatedStore()
	store, err := cached.New(inner, 16)
	require.NoError(t, err)
	ctx := context.Background()
	id := uuid.New()

	queryDone := make(chan struct{})
	go func() {
		defer close(queryDone)
		_, _ = store.QueryTransactions(ctx, id, "gold", 10)
	}()
	<-inner.entered

	appendDone := make(chan error, 1)
	go func() {
		tx := domain.Transaction{Kind: domain.KindDeposit, Amount: decimal.NewFromInt(1), Timestamp: 1}
		appendDone <- store.AppendTransaction(ctx, id, "gold", tx)
	}()

	// Give the append a window to land while the read-through still holds
	// its pre-append snapshot.
	time.Sleep(50 * time.Millisecond)
	close(inner.release)
	<-queryDone
	require.NoError(t, <-appendDone)

	// The appended entry is durable in the medium; a later query must see it
	// no matter how the fill and the append interleaved.
	txs, err := store.QueryTransactions(ctx, id, "gold", 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(1)))
}

func TestCached_TransactionCacheEvicts(t *testing.T) {
	inner := newCountingStore()
	store, err := cached.New(inner, 2)
	require.NoError(t, err)
	ctx := context.Background()

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		_, err := store.QueryTransactions(ctx, id, "gold", 10)
		require.NoError(t, err)
	}
	require.Equal(t, 3, inner.queryCalls)

	// The first history was evicted to make room; querying it again must go
	// back to the medium.
	_, err = store.QueryTransactions(ctx, ids[0], "gold", 10)
	require.NoError(t, err)
	assert.Equal(t, 4, inner.queryCalls)
}

func TestCached_QueryReadsThroughWhenCacheTooShort(t *testing.T) {
	inner := newCountingStore()
	store, err := cached.New(inner, 16)
	require.NoError(t, err)
	ctx := context.Background()
	id := uuid.New()

	for i := int64(1); i <= 5; i++ {
		tx := domain.Transaction{Kind: domain.KindDeposit, Amount: decimal.NewFromInt(i), Timestamp: i}
		require.NoError(t, inner.AppendTransaction(ctx, id, "gold", tx))
	}

	// First query caches a 2-entry prefix that is not complete.
	txs, err := store.QueryTransactions(ctx, id, "gold", 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	// Asking for more than the cached prefix must go back to the medium.
	txs, err = store.QueryTransactions(ctx, id, "gold", 5)
	require.NoError(t, err)
	require.Len(t, txs, 5)
	assert.Equal(t, 2, inner.queryCalls)
}
