package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/defiscope/holderwatch/internal/core/domain"
)

var (
	// ErrNotFound is returned when an address has no holder record.
	// A miss is a normal outcome, not an internal fault.
	ErrNotFound = errors.New("holder not found")
)

// Sort fields accepted by List.
const (
	SortByHoldingAmount        = "holding_amount"
	SortByProfitLossPercentage = "profit_loss_percentage"
)

// Sort directions accepted by List.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListQuery describes a paged, sorted, filtered holder listing.
type ListQuery struct {
	Page       int
	Size       int
	SortBy     string // SortByHoldingAmount or SortByProfitLossPercentage
	Order      string // OrderAsc or OrderDesc
	MinHolding decimal.Decimal
}

// HolderRepository handles holder record storage operations.
type HolderRepository interface {
	// Upsert inserts or updates the record keyed by address. The creation
	// timestamp of an existing record is preserved; LastUpdated always
	// reflects this write. Each upsert is its own atomic unit of work.
	Upsert(ctx context.Context, holder *domain.Holder) error

	// GetByAddress retrieves a record by exact address key.
	// Returns ErrNotFound on a miss.
	GetByAddress(ctx context.Context, address string) (*domain.Holder, error)

	// List returns one page of records with HoldingAmount >= MinHolding,
	// plus the total matching count. Sorting by profit_loss_percentage
	// excludes records with no computed percentage.
	List(ctx context.Context, q ListQuery) ([]*domain.Holder, int64, error)
}
