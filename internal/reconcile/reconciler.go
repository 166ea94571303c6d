// Package reconcile drives the holder reconciliation pipeline: it resolves a
// candidate address set, fetches balances, transfer history and prices, and
// reduces them into per-holder profit/loss records upserted by address.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/defiscope/holderwatch/internal/core/domain"
	"github.com/defiscope/holderwatch/internal/infra/storage"
	"github.com/defiscope/holderwatch/internal/metrics"
)

var (
	// ErrSyncInProgress is returned when a run is triggered while another
	// run holds the guard.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrRunAborted is returned when the run-fatal condition hit: no
	// current price could be obtained. Nothing is written in that case.
	ErrRunAborted = errors.New("sync run aborted")
)

// PriceSource provides current and historical token prices in USD.
type PriceSource interface {
	CurrentPrice(ctx context.Context) (decimal.Decimal, error)
	HistoricalPrice(ctx context.Context, at time.Time) (decimal.Decimal, error)
}

// ChainSource provides balances, transfer history and candidate addresses.
type ChainSource interface {
	Balance(ctx context.Context, addr string) (decimal.Decimal, error)
	FirstIncomingTransfer(ctx context.Context, addr string) *domain.Transfer
	CandidateAddresses(ctx context.Context) ([]string, error)
}

// Config holds reconciliation settings.
type Config struct {
	BatchSize  int
	MinHolding decimal.Decimal
	DataSource string
}

// Reconciler orchestrates sync runs. Address processing within a run is
// sequential; each holder's persist is its own atomic unit of work, so a
// reader may observe a partially-completed run but never a half-written
// record.
type Reconciler struct {
	prices PriceSource
	chain  ChainSource
	repo   storage.HolderRepository
	pacer  Pacer
	guard  Guard
	cfg    Config
	log    *slog.Logger
	now    func() time.Time
}

// New creates a reconciler. pacer and guard may be nil, which disables
// pacing and uses an in-process guard. now may be nil to use the wall clock.
func New(prices PriceSource, chain ChainSource, repo storage.HolderRepository, pacer Pacer, guard Guard, cfg Config) *Reconciler {
	if pacer == nil {
		pacer = NopPacer{}
	}
	if guard == nil {
		guard = &LocalGuard{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.DataSource == "" {
		cfg.DataSource = "etherscan"
	}
	return &Reconciler{
		prices: prices,
		chain:  chain,
		repo:   repo,
		pacer:  pacer,
		guard:  guard,
		cfg:    cfg,
		log:    slog.With("component", "reconcile"),
		now:    time.Now,
	}
}

// Sync performs one reconciliation run. Per-address failures are isolated,
// logged and counted; the only run-fatal condition is an unavailable current
// price, reported as ErrRunAborted with zero counts and nothing written.
func (r *Reconciler) Sync(ctx context.Context) (*domain.SyncResult, error) {
	ok, err := r.guard.TryAcquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire sync guard: %w", err)
	}
	if !ok {
		return nil, ErrSyncInProgress
	}
	defer func() {
		if err := r.guard.Release(context.WithoutCancel(ctx)); err != nil {
			r.log.Warn("failed to release sync guard", "error", err)
		}
	}()

	result := &domain.SyncResult{
		RunID:     uuid.NewString(),
		StartedAt: r.now(),
	}
	log := r.log.With("run_id", result.RunID)
	log.Info("starting holder sync")

	currentPrice, err := r.prices.CurrentPrice(ctx)
	if err != nil {
		r.finish(result)
		metrics.SyncRuns.WithLabelValues("aborted").Inc()
		log.Error("aborting run, current price unavailable", "error", err)
		return result, fmt.Errorf("%w: current price unavailable: %w", ErrRunAborted, err)
	}

	addresses, err := r.chain.CandidateAddresses(ctx)
	if err != nil {
		// A run without candidates has nothing to do, but it is not the
		// run-fatal case: counts stay zero and the summary is returned.
		log.Error("failed to resolve candidate addresses", "error", err)
		addresses = nil
	}
	log.Info("resolved candidate address set", "count", len(addresses))

	for start := 0; start < len(addresses); start += r.cfg.BatchSize {
		end := start + r.cfg.BatchSize
		if end > len(addresses) {
			end = len(addresses)
		}

		for _, addr := range addresses[start:end] {
			result.Processed++
			persisted, err := r.processHolder(ctx, addr, currentPrice)
			if err != nil {
				result.Failed++
				metrics.HoldersProcessed.WithLabelValues("failed").Inc()
				log.Error("failed to process holder", "address", addr, "error", err)
				continue
			}
			// Below-threshold addresses are skipped: processed, but
			// neither succeeded nor failed.
			if persisted {
				result.Succeeded++
				metrics.HoldersProcessed.WithLabelValues("succeeded").Inc()
			}
		}

		// Pace between batches, not after the last one.
		if end < len(addresses) {
			if err := r.pacer.Pace(ctx); err != nil {
				log.Warn("run interrupted during batch pacing", "error", err)
				r.finish(result)
				metrics.SyncRuns.WithLabelValues("interrupted").Inc()
				return result, err
			}
		}
	}

	r.finish(result)
	metrics.SyncRuns.WithLabelValues("completed").Inc()
	log.Info("sync completed",
		"processed", result.Processed,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"duration_seconds", result.Duration,
	)
	return result, nil
}

// processHolder derives a complete holder record for one address and upserts
// it. Addresses holding less than the minimum threshold are skipped without
// being persisted; that is neither a success nor a failure of the pipeline.
func (r *Reconciler) processHolder(ctx context.Context, addr string, currentPrice decimal.Decimal) (bool, error) {
	addr = strings.ToLower(addr)

	balance, err := r.chain.Balance(ctx, addr)
	if err != nil {
		return false, fmt.Errorf("balance fetch: %w", err)
	}

	if balance.LessThan(r.cfg.MinHolding) {
		r.log.Debug("skipping address below minimum holding",
			"address", addr, "balance", balance, "min", r.cfg.MinHolding)
		metrics.HoldersProcessed.WithLabelValues("skipped").Inc()
		return false, nil
	}

	now := r.now()
	holder := &domain.Holder{
		Address:       addr,
		HoldingAmount: balance,
		CurrentPrice:  currentPrice,
		CurrentValue:  currentPrice.Mul(balance),
		DataSource:    r.cfg.DataSource,
		CreatedAt:     now,
		LastUpdated:   now,
	}

	// First-purchase enrichment is best effort: a missing first transfer or
	// an unavailable historical price leaves the optional fields absent
	// rather than failing the holder.
	if first := r.chain.FirstIncomingTransfer(ctx, addr); first != nil {
		purchaseTime := first.Timestamp
		purchaseAmount := first.Amount
		holder.FirstPurchaseTime = &purchaseTime
		holder.FirstPurchaseAmount = &purchaseAmount

		histPrice, err := r.prices.HistoricalPrice(ctx, purchaseTime)
		if err != nil {
			r.log.Warn("historical price unavailable, skipping cost basis",
				"address", addr, "purchase_time", purchaseTime, "error", err)
		} else {
			holder.FirstPurchasePrice = &histPrice

			costBasis := histPrice.Mul(purchaseAmount)
			holder.CostBasis = &costBasis

			if costBasis.IsPositive() {
				profitLoss := holder.CurrentValue.Sub(costBasis)
				holder.ProfitLoss = &profitLoss

				pct := profitLoss.DivRound(costBasis, 4).
					Mul(decimal.NewFromInt(100)).
					Round(2)
				holder.ProfitLossPercentage = &pct
			}
		}
	}

	if err := r.repo.Upsert(ctx, holder); err != nil {
		return false, fmt.Errorf("persist: %w", err)
	}
	r.log.Info("saved holder", "address", addr, "holding", balance,
		"profit_loss_percentage", holder.ProfitLossPercentage)
	return true, nil
}

func (r *Reconciler) finish(result *domain.SyncResult) {
	result.EndedAt = r.now()
	result.Duration = result.EndedAt.Sub(result.StartedAt).Seconds()
}
