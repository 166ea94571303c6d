// Package pricefeed fetches current and historical token prices in USD from a
// CoinGecko-compatible API, with a bounded-TTL cache for the spot price.
package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/defiscope/holderwatch/internal/infra/rest"
	"github.com/defiscope/holderwatch/internal/metrics"
)

// ErrPriceUnavailable is returned when the provider is reachable but the
// requested price is absent or malformed. Callers treat it as a miss, not a
// hard fault.
var ErrPriceUnavailable = errors.New("price unavailable")

// Config holds price provider settings.
type Config struct {
	BaseURL  string
	TokenID  string // CoinGecko coin id, e.g. "aave"
	PriceTTL time.Duration
}

// Oracle queries the price provider and caches the current price.
type Oracle struct {
	client *rest.Client
	cfg    Config
	cache  *priceCache
	log    *slog.Logger
}

// NewOracle creates a price oracle. now may be nil to use the wall clock;
// tests inject a fake clock to control cache expiry.
func NewOracle(client *rest.Client, cfg Config, now func() time.Time) *Oracle {
	return &Oracle{
		client: client,
		cfg:    cfg,
		cache:  newPriceCache(cfg.PriceTTL, now),
		log:    slog.With("component", "pricefeed"),
	}
}

type simplePriceResponse map[string]map[string]decimal.Decimal

type historyResponse struct {
	MarketData *struct {
		CurrentPrice map[string]decimal.Decimal `json:"current_price"`
	} `json:"market_data"`
}

// CurrentPrice returns the token's spot price in USD, served from cache when
// the cached value is younger than the configured TTL.
func (o *Oracle) CurrentPrice(ctx context.Context) (decimal.Decimal, error) {
	if price, ok := o.cache.Get(); ok {
		metrics.PriceCacheEvents.WithLabelValues("hit").Inc()
		o.log.Debug("using cached price", "price", price)
		return price, nil
	}
	metrics.PriceCacheEvents.WithLabelValues("miss").Inc()

	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		o.cfg.BaseURL, url.QueryEscape(o.cfg.TokenID))

	var resp simplePriceResponse
	if err := o.client.GetJSON(ctx, u, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("fetch current price: %w", err)
	}

	prices, ok := resp[o.cfg.TokenID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no entry for %q", ErrPriceUnavailable, o.cfg.TokenID)
	}
	price, ok := prices["usd"]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no usd quote for %q", ErrPriceUnavailable, o.cfg.TokenID)
	}

	o.cache.Put(price)
	o.log.Info("fetched current price", "token", o.cfg.TokenID, "usd", price)
	return price, nil
}

// HistoricalPrice returns the token's USD price on the calendar date of the
// given instant. The provider expects the date as DD-MM-YYYY in local time.
// Historical points are never cached; each date is distinct.
func (o *Oracle) HistoricalPrice(ctx context.Context, at time.Time) (decimal.Decimal, error) {
	local := at.Local()
	date := fmt.Sprintf("%02d-%02d-%d", local.Day(), int(local.Month()), local.Year())

	u := fmt.Sprintf("%s/coins/%s/history?date=%s&localization=false",
		o.cfg.BaseURL, url.PathEscape(o.cfg.TokenID), date)

	var resp historyResponse
	if err := o.client.GetJSON(ctx, u, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("fetch historical price for %s: %w", date, err)
	}

	if resp.MarketData == nil {
		o.log.Warn("no market data for date", "date", date)
		return decimal.Zero, fmt.Errorf("%w: no market data for %s", ErrPriceUnavailable, date)
	}
	price, ok := resp.MarketData.CurrentPrice["usd"]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no usd quote for %s", ErrPriceUnavailable, date)
	}

	o.log.Debug("fetched historical price", "date", date, "usd", price)
	return price, nil
}
