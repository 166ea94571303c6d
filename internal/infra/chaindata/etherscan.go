// Package chaindata fetches token balances and transfer history from an
// Etherscan-compatible module/action query API.
package chaindata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/defiscope/holderwatch/internal/core/domain"
	"github.com/defiscope/holderwatch/internal/infra/rest"
)

// Config holds chain data provider settings.
type Config struct {
	BaseURL         string
	APIKey          string
	ContractAddress string
	Decimals        int32 // token decimal count, 18 for most ERC-20s
	HistoryPageSize int   // transfer history page size per address
	CandidateSize   int   // bulk transfer feed page size for discovery
}

// Provider queries the chain data API for one token contract.
type Provider struct {
	client *rest.Client
	cfg    Config
	log    *slog.Logger
}

// NewProvider creates a chain data provider.
func NewProvider(client *rest.Client, cfg Config) *Provider {
	if cfg.Decimals == 0 {
		cfg.Decimals = 18
	}
	if cfg.HistoryPageSize == 0 {
		cfg.HistoryPageSize = 100
	}
	if cfg.CandidateSize == 0 {
		cfg.CandidateSize = 1000
	}
	return &Provider{
		client: client,
		cfg:    cfg,
		log:    slog.With("component", "chaindata"),
	}
}

// apiResponse carries the provider's string status ("1" = ok), message and
// result payload. The result is a plain string for balance lookups and a
// list for transfer lookups.
type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type transferRow struct {
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
}

// Balance returns the token balance of addr at the latest chain state,
// scaled by the token's decimal count. A provider-reported failure status is
// coerced to a zero balance ("no holding") and only distinguished from a
// genuine zero by the log line; transport failures propagate to the caller.
func (p *Provider) Balance(ctx context.Context, addr string) (decimal.Decimal, error) {
	u := p.buildURL("account", "tokenbalance", map[string]string{
		"contractaddress": p.cfg.ContractAddress,
		"address":         addr,
		"tag":             "latest",
	})

	var resp apiResponse
	if err := p.client.GetJSON(ctx, u, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("fetch balance for %s: %w", addr, err)
	}

	if resp.Status != "1" {
		p.log.Warn("provider reported balance failure, treating as zero",
			"address", addr, "message", resp.Message)
		return decimal.Zero, nil
	}

	var raw string
	if err := json.Unmarshal(resp.Result, &raw); err != nil {
		return decimal.Zero, fmt.Errorf("decode balance for %s: %w", addr, err)
	}

	units, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid balance %q for %s: %w", raw, addr, err)
	}
	return units.Shift(-p.cfg.Decimals), nil
}

// TransferHistory returns up to one page of addr's token transfer events in
// ascending chronological order. Failures and empty histories both yield an
// empty slice, never an error.
func (p *Provider) TransferHistory(ctx context.Context, addr string) []domain.Transfer {
	u := p.buildURL("account", "tokentx", map[string]string{
		"contractaddress": p.cfg.ContractAddress,
		"address":         addr,
		"page":            "1",
		"offset":          strconv.Itoa(p.cfg.HistoryPageSize),
		"sort":            "asc",
	})

	rows, err := p.fetchTransfers(ctx, u)
	if err != nil {
		p.log.Warn("transfer history fetch failed", "address", addr, "error", err)
		return nil
	}
	return rows
}

// FirstIncomingTransfer returns the earliest transfer crediting addr with a
// positive amount, or nil when no such event exists.
func (p *Provider) FirstIncomingTransfer(ctx context.Context, addr string) *domain.Transfer {
	for _, t := range p.TransferHistory(ctx, addr) {
		if t.Incoming(addr) {
			return &t
		}
	}
	return nil
}

// CandidateAddresses returns the de-duplicated destination addresses seen in
// the most recent bulk transfer feed. This is a best-effort sample of active
// holders, not a complete enumeration; the query API has no holder index.
func (p *Provider) CandidateAddresses(ctx context.Context) ([]string, error) {
	u := p.buildURL("account", "tokentx", map[string]string{
		"contractaddress": p.cfg.ContractAddress,
		"page":            "1",
		"offset":          strconv.Itoa(p.cfg.CandidateSize),
		"sort":            "desc",
	})

	rows, err := p.fetchTransfers(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("fetch candidate addresses: %w", err)
	}

	seen := make(map[string]struct{}, len(rows))
	var addrs []string
	for _, t := range rows {
		if t.To == "" {
			continue
		}
		if _, ok := seen[t.To]; ok {
			continue
		}
		seen[t.To] = struct{}{}
		addrs = append(addrs, t.To)
	}
	p.log.Info("sampled candidate addresses from transfer feed", "count", len(addrs))
	return addrs, nil
}

func (p *Provider) fetchTransfers(ctx context.Context, u string) ([]domain.Transfer, error) {
	var resp apiResponse
	if err := p.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	// Status "0" with message "No transactions found" is a normal empty result.
	if resp.Status != "1" {
		p.log.Debug("provider returned no transfers", "message", resp.Message)
		return nil, nil
	}

	var rows []transferRow
	if err := json.Unmarshal(resp.Result, &rows); err != nil {
		return nil, fmt.Errorf("decode transfer list: %w", err)
	}

	transfers := make([]domain.Transfer, 0, len(rows))
	for _, r := range rows {
		t, err := r.toDomain(p.cfg.Decimals)
		if err != nil {
			p.log.Warn("skipping malformed transfer row", "hash", r.Hash, "error", err)
			continue
		}
		transfers = append(transfers, t)
	}
	return transfers, nil
}

func (r transferRow) toDomain(decimals int32) (domain.Transfer, error) {
	ts, err := strconv.ParseInt(r.TimeStamp, 10, 64)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("invalid timestamp %q: %w", r.TimeStamp, err)
	}
	block, err := strconv.ParseUint(r.BlockNumber, 10, 64)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("invalid block number %q: %w", r.BlockNumber, err)
	}
	units, err := decimal.NewFromString(r.Value)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("invalid value %q: %w", r.Value, err)
	}
	return domain.Transfer{
		BlockNumber: block,
		TxHash:      r.Hash,
		From:        r.From,
		To:          r.To,
		Amount:      units.Shift(-decimals),
		Timestamp:   time.Unix(ts, 0),
	}, nil
}

func (p *Provider) buildURL(module, action string, params map[string]string) string {
	q := url.Values{}
	q.Set("module", module)
	q.Set("action", action)
	q.Set("apikey", p.cfg.APIKey)
	for k, v := range params {
		q.Set(k, v)
	}
	return p.cfg.BaseURL + "?" + q.Encode()
}
