package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/m0nxef/gbank/internal/apperrors"
	"github.com/m0nxef/gbank/internal/core/domain"
	portsrepo "github.com/m0nxef/gbank/internal/core/ports/repositories"
	portssvc "github.com/m0nxef/gbank/internal/core/ports/services"
)

// defaultQueryLimit bounds audit queries that do not name a limit.
const defaultQueryLimit = 10

// ledgerServiceImpl implements the LedgerSvc interface on top of a
// LedgerStore and a CurrencyRegistry, both injected. Every mutation sequence
// runs under the account's exclusive lock so concurrent load→mutate→save
// cycles cannot lose updates.
type ledgerServiceImpl struct {
	BaseService
	store    portsrepo.LedgerStore
	registry portssvc.CurrencyRegistry
	locks    *accountLocks
}

// NewLedgerService creates a ledger service backed by store, validating
// currencies and reading the tax rate through registry.
func NewLedgerService(store portsrepo.LedgerStore, registry portssvc.CurrencyRegistry) portssvc.LedgerSvc {
	return &ledgerServiceImpl{
		store:    store,
		registry: registry,
		locks:    newAccountLocks(),
	}
}

var _ portssvc.LedgerSvc = (*ledgerServiceImpl)(nil)

// Balance returns the account's balance for currency; a never-saved account
// reads as zero.
func (s *ledgerServiceImpl) Balance(ctx context.Context, id uuid.UUID, currency string) (decimal.Decimal, error) {
	if !s.registry.Exists(currency) {
		return decimal.Zero, fmt.Errorf("%w: %s", apperrors.ErrInvalidCurrency, currency)
	}

	account, err := s.store.LoadAccount(ctx, id)
	if err != nil {
		s.LogError(ctx, err, "Failed to load account for balance read",
			slog.String("account_id", id.String()))
		return decimal.Zero, err
	}
	if account == nil {
		return decimal.Zero, nil
	}
	return account.Balance(currency), nil
}

// Balances returns all balances held by the account; empty map when the
// account was never saved.
func (s *ledgerServiceImpl) Balances(ctx context.Context, id uuid.UUID) (map[string]decimal.Decimal, error) {
	account, err := s.store.LoadAccount(ctx, id)
	if err != nil {
		s.LogError(ctx, err, "Failed to load account for balances read",
			slog.String("account_id", id.String()))
		return nil, err
	}
	if account == nil {
		return map[string]decimal.Decimal{}, nil
	}
	return account.Balances(), nil
}

// Credit adds amount to the account's balance, creating the account when
// absent, and appends an audit entry of the given kind.
func (s *ledgerServiceImpl) Credit(ctx context.Context, id uuid.UUID, currency string, amount decimal.Decimal, kind domain.TransactionKind, detail string) error {
	if err := s.validateMutation(currency, amount); err != nil {
		return err
	}
	if !kind.IsCredit() {
		return fmt.Errorf("%w: %s is not a credit kind", apperrors.ErrValidation, kind)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	account, err := s.store.LoadAccount(ctx, id)
	if err != nil {
		s.LogError(ctx, err, "Failed to load account for credit",
			slog.String("account_id", id.String()))
		return err
	}
	if account == nil {
		account = domain.NewAccount(id)
	}

	account.AddBalance(currency, amount)
	if err := s.store.SaveAccount(ctx, account); err != nil {
		s.LogError(ctx, err, "Failed to save account after credit",
			slog.String("account_id", id.String()))
		return err
	}

	s.LogInfo(ctx, "Account credited",
		slog.String("account_id", id.String()),
		slog.String("currency", currency),
		slog.String("amount", amount.String()),
		slog.String("kind", string(kind)))

	return s.appendLog(ctx, id, currency, domain.NewTransaction(kind, amount, detail))
}

// Debit subtracts amount from the account's balance. It fails for a missing
// account and for insufficient funds, in both cases without touching storage.
func (s *ledgerServiceImpl) Debit(ctx context.Context, id uuid.UUID, currency string, amount decimal.Decimal, detail string) error {
	if err := s.validateMutation(currency, amount); err != nil {
		return err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	account, err := s.store.LoadAccount(ctx, id)
	if err != nil {
		s.LogError(ctx, err, "Failed to load account for debit",
			slog.String("account_id", id.String()))
		return err
	}
	if account == nil {
		return fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, id)
	}
	if !account.HasBalance(currency, amount) {
		return fmt.Errorf("%w: %s has %s %s, need %s", apperrors.ErrInsufficientFunds,
			id, account.Balance(currency), currency, amount)
	}

	account.RemoveBalance(currency, amount)
	if err := s.store.SaveAccount(ctx, account); err != nil {
		s.LogError(ctx, err, "Failed to save account after debit",
			slog.String("account_id", id.String()))
		return err
	}

	s.LogInfo(ctx, "Account debited",
		slog.String("account_id", id.String()),
		slog.String("currency", currency),
		slog.String("amount", amount.String()))

	return s.appendLog(ctx, id, currency, domain.NewTransaction(domain.KindWithdrawal, amount, detail))
}

// SetBalance replaces the account's balance with max(0, amount), creating the
// account when absent.
func (s *ledgerServiceImpl) SetBalance(ctx context.Context, id uuid.UUID, currency string, amount decimal.Decimal, detail string) error {
	if !s.registry.Exists(currency) {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidCurrency, currency)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	account, err := s.store.LoadAccount(ctx, id)
	if err != nil {
		s.LogError(ctx, err, "Failed to load account for set",
			slog.String("account_id", id.String()))
		return err
	}
	if account == nil {
		account = domain.NewAccount(id)
	}

	account.SetBalance(currency, amount)
	if err := s.store.SaveAccount(ctx, account); err != nil {
		s.LogError(ctx, err, "Failed to save account after set",
			slog.String("account_id", id.String()))
		return err
	}

	s.LogInfo(ctx, "Account balance set",
		slog.String("account_id", id.String()),
		slog.String("currency", currency),
		slog.String("amount", account.Balance(currency).String()))

	return s.appendLog(ctx, id, currency, domain.NewTransaction(domain.KindAdminSet, account.Balance(currency), detail))
}

// Transfer moves amount of currency from one account to another. The source
// is debited the full amount; the destination is credited amount minus the
// realized tax. A missing source fails the transfer, a missing destination is
// created on the spot.
func (s *ledgerServiceImpl) Transfer(ctx context.Context, from, to uuid.UUID, currency string, amount decimal.Decimal, applyTax bool) (*domain.TransferResult, error) {
	if err := s.validateMutation(currency, amount); err != nil {
		return nil, err
	}

	tax := decimal.Zero
	if applyTax {
		tax = amount.Mul(s.registry.TaxRate())
	}
	net := amount.Sub(tax)

	unlock := s.locks.lockPair(from, to)
	defer unlock()

	source, err := s.store.LoadAccount(ctx, from)
	if err != nil {
		s.LogError(ctx, err, "Failed to load source account for transfer",
			slog.String("account_id", from.String()))
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("%w: source %s", apperrors.ErrAccountNotFound, from)
	}
	if !source.HasBalance(currency, amount) {
		return nil, fmt.Errorf("%w: %s has %s %s, need %s", apperrors.ErrInsufficientFunds,
			from, source.Balance(currency), currency, amount)
	}

	dest, err := s.store.LoadAccount(ctx, to)
	if err != nil {
		s.LogError(ctx, err, "Failed to load destination account for transfer",
			slog.String("account_id", to.String()))
		return nil, err
	}
	if dest == nil {
		dest = domain.NewAccount(to)
	}

	source.RemoveBalance(currency, amount)
	dest.AddBalance(currency, net)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.store.SaveAccount(gctx, source) })
	g.Go(func() error { return s.store.SaveAccount(gctx, dest) })
	if err := g.Wait(); err != nil {
		s.LogError(ctx, err, "Failed to persist transfer",
			slog.String("from", from.String()),
			slog.String("to", to.String()))
		return nil, err
	}

	s.LogInfo(ctx, "Transfer completed",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.String("currency", currency),
		slog.String("amount", amount.String()),
		slog.String("tax", tax.String()))

	result := &domain.TransferResult{Tax: tax}

	outTx := domain.NewTransaction(domain.KindTransferOut, amount, fmt.Sprintf("Transfer to %s", to))
	inTx := domain.NewTransaction(domain.KindTransferIn, net, fmt.Sprintf("Transfer from %s", from))
	if err := errors.Join(
		s.appendLog(ctx, from, currency, outTx),
		s.appendLog(ctx, to, currency, inTx),
	); err != nil {
		// Both sides committed; only the audit trail is short.
		return result, &apperrors.LogAppendError{Err: err}
	}
	return result, nil
}

// Transactions returns the newest audit entries for (id, currency), at most
// limit of them.
func (s *ledgerServiceImpl) Transactions(ctx context.Context, id uuid.UUID, currency string, limit int) ([]domain.Transaction, error) {
	if !s.registry.Exists(currency) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidCurrency, currency)
	}
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	txs, err := s.store.QueryTransactions(ctx, id, currency, limit)
	if err != nil {
		s.LogError(ctx, err, "Failed to query transactions",
			slog.String("account_id", id.String()),
			slog.String("currency", currency))
		return nil, err
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return txs, nil
}

// validateMutation rejects unknown currencies and non-positive amounts before
// any storage I/O happens.
func (s *ledgerServiceImpl) validateMutation(currency string, amount decimal.Decimal) error {
	if !s.registry.Exists(currency) {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidCurrency, currency)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", apperrors.ErrValidation, amount)
	}
	return nil
}

// appendLog writes one audit entry. Failures are wrapped as LogAppendError:
// the balance change they describe is already durable and stays that way.
func (s *ledgerServiceImpl) appendLog(ctx context.Context, id uuid.UUID, currency string, tx domain.Transaction) error {
	if err := s.store.AppendTransaction(ctx, id, currency, tx); err != nil {
		s.LogError(ctx, err, "Failed to append transaction log entry",
			slog.String("account_id", id.String()),
			slog.String("currency", currency),
			slog.String("kind", string(tx.Kind)))
		return &apperrors.LogAppendError{Err: err}
	}
	return nil
}
