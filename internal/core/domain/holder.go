package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holder represents one tracked token holder and its computed profit/loss
// versus the first detected acquisition. The address is the unique key;
// records are upserted, never duplicated.
type Holder struct {
	Address             string           `json:"address"`
	HoldingAmount       decimal.Decimal  `json:"holding_amount"`
	FirstPurchaseTime   *time.Time       `json:"first_purchase_time,omitempty"`
	FirstPurchasePrice  *decimal.Decimal `json:"first_purchase_price,omitempty"`
	FirstPurchaseAmount *decimal.Decimal `json:"first_purchase_amount,omitempty"`
	CurrentPrice        decimal.Decimal  `json:"current_price"`
	CostBasis           *decimal.Decimal `json:"cost_basis,omitempty"`
	CurrentValue        decimal.Decimal  `json:"current_value"`
	ProfitLoss          *decimal.Decimal `json:"profit_loss,omitempty"`
	ProfitLossPercentage *decimal.Decimal `json:"profit_loss_percentage,omitempty"`
	DataSource          string           `json:"data_source"`
	CreatedAt           time.Time        `json:"created_at"`
	LastUpdated         time.Time        `json:"last_updated"`
}

// HasCostBasis reports whether profit/loss fields may be derived.
// They are present only when the cost basis is known and strictly positive.
func (h *Holder) HasCostBasis() bool {
	return h.CostBasis != nil && h.CostBasis.IsPositive()
}
