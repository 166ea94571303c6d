// Package control wires the application together and manages its lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/defiscope/holderwatch/internal/api"
	"github.com/defiscope/holderwatch/internal/core/config"
	"github.com/defiscope/holderwatch/internal/infra/chaindata"
	"github.com/defiscope/holderwatch/internal/infra/pricefeed"
	redisclient "github.com/defiscope/holderwatch/internal/infra/redis"
	"github.com/defiscope/holderwatch/internal/infra/rest"
	"github.com/defiscope/holderwatch/internal/infra/storage"
	"github.com/defiscope/holderwatch/internal/infra/storage/memory"
	"github.com/defiscope/holderwatch/internal/infra/storage/postgres"
	"github.com/defiscope/holderwatch/internal/query"
	"github.com/defiscope/holderwatch/internal/reconcile"
)

// App is the assembled holder tracking service.
type App struct {
	cfg         *config.AppConfig
	apiServer   *api.Server
	db          *postgres.DB
	redisClient *redisclient.Client
	log         *slog.Logger
}

// NewApp creates the application with all dependencies initialized.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	app := &App{cfg: cfg, log: slog.With("component", "control")}

	// Storage: PostgreSQL when configured, in-memory otherwise.
	var holderRepo storage.HolderRepository
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		app.db = db
		holderRepo = postgres.NewHolderRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		holderRepo = memory.NewHolderRepo()
		slog.Info("Using Memory storage")
	}

	// Single-flight sync guard: Redis-backed when Redis is configured so
	// multiple instances cannot run concurrently, in-process otherwise.
	var guard reconcile.Guard
	if cfg.Redis.URL != "" {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		app.redisClient = rc
		guard = redisclient.NewSyncGuard(rc, cfg.Sync.LockTTL)
		slog.Info("Using Redis sync guard")
	} else {
		guard = &reconcile.LocalGuard{}
	}

	retryPolicy := rest.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Delay:       cfg.Retry.Delay,
	}

	oracle := pricefeed.NewOracle(
		rest.NewClient("coingecko", cfg.Coingecko.Timeout, retryPolicy),
		pricefeed.Config{
			BaseURL:  cfg.Coingecko.BaseURL,
			TokenID:  cfg.Coingecko.TokenID,
			PriceTTL: cfg.Cache.PriceTTL,
		},
		nil,
	)

	chain := chaindata.NewProvider(
		rest.NewClient("etherscan", cfg.Etherscan.Timeout, retryPolicy),
		chaindata.Config{
			BaseURL:         cfg.Etherscan.BaseURL,
			APIKey:          cfg.Etherscan.APIKey,
			ContractAddress: cfg.Token.ContractAddress,
			Decimals:        cfg.Token.Decimals,
			HistoryPageSize: cfg.Sync.HistoryPageSize,
			CandidateSize:   cfg.Sync.CandidatePageSize,
		},
	)

	minHolding := decimal.NewFromInt(cfg.Token.MinHolding)

	reconciler := reconcile.New(oracle, chain, holderRepo,
		reconcile.IntervalPacer{Interval: cfg.Sync.BatchDelay},
		guard,
		reconcile.Config{
			BatchSize:  cfg.Sync.BatchSize,
			MinHolding: minHolding,
		},
	)

	queries := query.NewService(holderRepo, minHolding)

	deps := map[string]api.Pinger{}
	if app.db != nil {
		deps["database"] = app.db
	}
	if app.redisClient != nil {
		deps["redis"] = app.redisClient
	}
	app.apiServer = api.NewServer(cfg.Server.Port, reconciler, queries, deps)

	return app, nil
}

// Start runs the HTTP server in the background.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			a.log.Error("http server exited", "error", err)
		}
	}()
	return nil
}

// Stop shuts the application down gracefully.
func (a *App) Stop(ctx context.Context) error {
	if err := a.apiServer.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop http server: %w", err)
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("failed to close redis client", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("failed to close database", "error", err)
		}
	}
	return nil
}
