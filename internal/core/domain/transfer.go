package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transfer represents a single token transfer event for an address.
type Transfer struct {
	BlockNumber uint64          `json:"block_number"`
	TxHash      string          `json:"tx_hash"`
	From        string          `json:"from_address"`
	To          string          `json:"to_address"`
	Amount      decimal.Decimal `json:"amount"` // token units, decimals applied
	Timestamp   time.Time       `json:"timestamp"`
}

// Incoming reports whether the transfer credits addr with a positive amount.
// Address comparison is case-insensitive to match on-chain hex conventions.
func (t *Transfer) Incoming(addr string) bool {
	return strings.EqualFold(t.To, addr) && t.Amount.IsPositive()
}
