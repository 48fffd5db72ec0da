package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m0nxef/gbank/internal/core/domain"
	portssvc "github.com/m0nxef/gbank/internal/core/ports/services"
)

// PayoutService periodically credits a fixed amount of the default currency
// to a roster of accounts, logging each payment as an automatic transaction.
type PayoutService struct {
	BaseService
	ledger   portssvc.LedgerSvc
	registry portssvc.CurrencyRegistry
	amount   decimal.Decimal
	interval time.Duration
	roster   []uuid.UUID
}

// NewPayoutService creates a payout loop crediting amount to every account in
// roster once per interval.
func NewPayoutService(ledger portssvc.LedgerSvc, registry portssvc.CurrencyRegistry, amount decimal.Decimal, interval time.Duration, roster []uuid.UUID) *PayoutService {
	return &PayoutService{
		ledger:   ledger,
		registry: registry,
		amount:   amount,
		interval: interval,
		roster:   roster,
	}
}

// Run blocks, paying the roster every interval until ctx is cancelled. It
// returns immediately when the roster is empty or the amount is not positive.
func (s *PayoutService) Run(ctx context.Context) {
	if len(s.roster) == 0 || !s.amount.IsPositive() {
		s.LogInfo(ctx, "Automatic payouts disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.LogInfo(ctx, "Automatic payouts started",
		slog.String("amount", s.amount.String()),
		slog.Duration("interval", s.interval),
		slog.Int("accounts", len(s.roster)))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.payAll(ctx)
		}
	}
}

// PayAll credits every roster account once. Exposed so a single round can be
// triggered outside the timer loop.
func (s *PayoutService) PayAll(ctx context.Context) {
	s.payAll(ctx)
}

func (s *PayoutService) payAll(ctx context.Context) {
	currency := s.registry.DefaultCurrency()
	for _, id := range s.roster {
		err := s.ledger.Credit(ctx, id, currency, s.amount, domain.KindAutomatic, "Automatic payment")
		if err != nil {
			s.LogError(ctx, err, "Automatic payout failed",
				slog.String("account_id", id.String()))
		}
	}
}
