package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	portsrepo "github.com/m0nxef/gbank/internal/core/ports/repositories"
	portssvc "github.com/m0nxef/gbank/internal/core/ports/services"
	"github.com/m0nxef/gbank/internal/core/services"
	"github.com/m0nxef/gbank/internal/handlers"
	"github.com/m0nxef/gbank/internal/middleware"
	"github.com/m0nxef/gbank/internal/platform/config"
	"github.com/m0nxef/gbank/internal/platform/database"
	"github.com/m0nxef/gbank/internal/registry"
	"github.com/m0nxef/gbank/internal/repositories/cached"
	"github.com/m0nxef/gbank/internal/repositories/database/jsonfile"
	"github.com/m0nxef/gbank/internal/repositories/database/mongodb"
	"github.com/m0nxef/gbank/internal/repositories/database/pgsql"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	reg, err := registry.LoadFile(cfg.CurrenciesFile)
	if err != nil {
		logger.Error("Failed to load currency registry", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Currency registry loaded",
		slog.String("default", reg.DefaultCurrency()),
		slog.Int("currencies", len(reg.Codes())))

	ctx := context.Background()

	store, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage backend", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := store.Close(closeCtx); cerr != nil {
			logger.Error("Error closing storage backend", slog.String("error", cerr.Error()))
		}
	}()

	cachedStore, err := cached.New(store, cfg.CacheSize)
	if err != nil {
		logger.Error("Failed to initialize cache", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ledgerService := services.NewLedgerService(cachedStore, reg)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.Default())
	r.Use(middleware.Metrics())

	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid RATE_LIMIT", slog.String("error", err.Error()))
		os.Exit(1)
	}
	ipLimiter := limiter.New(memory.NewStore(), rate)
	r.Use(middleware.RateLimit(ipLimiter))

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, ledgerService, reg)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startPayouts(runCtx, cfg, ledgerService, reg, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("storage", cfg.StorageType))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-runCtx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", slog.String("error", err.Error()))
	}
}

// buildStore constructs the configured storage backend.
func buildStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.LedgerStore, error) {
	switch cfg.StorageType {
	case config.StorageRelational:
		dsn := pgsql.BuildDSN(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDatabase,
			cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresTLS)

		logger.Info("Running database migrations")
		if err := pgsql.RunMigrations(dsn); err != nil {
			return nil, err
		}

		pool, err := database.NewPgxPool(ctx, dsn)
		if err != nil {
			return nil, err
		}
		logger.Info("Database connection pool established")
		return pgsql.New(pool), nil

	case config.StorageDocument:
		client, err := database.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		logger.Info("MongoDB connection established")
		return mongodb.New(ctx, client, cfg.MongoDatabase)

	default:
		return jsonfile.New(cfg.FileDataDir)
	}
}

// startPayouts launches the periodic payout task when a roster is configured.
func startPayouts(ctx context.Context, cfg *config.Config, ledger portssvc.LedgerSvc, reg *registry.Registry, logger *slog.Logger) {
	amount, err := decimal.NewFromString(cfg.PayoutAmount)
	if err != nil {
		logger.Error("Invalid PAYOUT_AMOUNT", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if amount.Sign() <= 0 || len(cfg.PayoutAccounts) == 0 {
		logger.Info("Automatic payouts disabled")
		return
	}

	roster := make([]uuid.UUID, 0, len(cfg.PayoutAccounts))
	for _, raw := range cfg.PayoutAccounts {
		id, err := uuid.Parse(raw)
		if err != nil {
			logger.Error("Invalid account id in PAYOUT_ACCOUNTS", slog.String("id", raw))
			os.Exit(1)
		}
		roster = append(roster, id)
	}

	payouts := services.NewPayoutService(ledger, reg, amount, cfg.PayoutInterval, roster)
	go payouts.Run(ctx)
	logger.Info("Automatic payouts enabled",
		slog.String("amount", amount.String()),
		slog.String("interval", cfg.PayoutInterval.String()),
		slog.Int("accounts", len(roster)))
}
