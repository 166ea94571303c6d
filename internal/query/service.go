// Package query provides the read side: paginated, sorted, filtered views
// over persisted holder records and single-record lookup.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/defiscope/holderwatch/internal/core/domain"
	"github.com/defiscope/holderwatch/internal/infra/storage"
)

// ErrInvalidQuery is returned for malformed listing parameters. It is
// rejected at the boundary and never reaches the reconciler.
var ErrInvalidQuery = errors.New("invalid query")

const maxPageSize = 200

// ListParams are the raw listing parameters. Zero values fall back to
// defaults; pointers distinguish "absent" from explicit zero.
type ListParams struct {
	Page       *int
	Size       *int
	SortBy     string
	Order      string
	MinHolding *decimal.Decimal
}

// Service answers read-only holder queries. It is safe to use concurrently
// with an in-progress sync: each upsert commits independently, so a reader
// may see a partially-completed run but never a half-written record.
type Service struct {
	repo              storage.HolderRepository
	defaultMinHolding decimal.Decimal
}

// NewService creates a query service. defaultMinHolding is the configured
// holding threshold applied when a listing does not specify one.
func NewService(repo storage.HolderRepository, defaultMinHolding decimal.Decimal) *Service {
	return &Service{repo: repo, defaultMinHolding: defaultMinHolding}
}

// ListHolders returns one page of holder records.
// Defaults: page 0, size 20, sort by holding_amount descending, minimum
// holding from configuration.
func (s *Service) ListHolders(ctx context.Context, p ListParams) (*domain.Page[*domain.Holder], error) {
	q := storage.ListQuery{
		Page:       0,
		Size:       20,
		SortBy:     storage.SortByHoldingAmount,
		Order:      storage.OrderDesc,
		MinHolding: s.defaultMinHolding,
	}

	if p.Page != nil {
		if *p.Page < 0 {
			return nil, fmt.Errorf("%w: page must be >= 0", ErrInvalidQuery)
		}
		q.Page = *p.Page
	}
	if p.Size != nil {
		if *p.Size < 1 || *p.Size > maxPageSize {
			return nil, fmt.Errorf("%w: size must be between 1 and %d", ErrInvalidQuery, maxPageSize)
		}
		q.Size = *p.Size
	}
	switch p.SortBy {
	case "", storage.SortByHoldingAmount:
	case storage.SortByProfitLossPercentage:
		q.SortBy = storage.SortByProfitLossPercentage
	default:
		return nil, fmt.Errorf("%w: unsupported sort field %q", ErrInvalidQuery, p.SortBy)
	}
	switch p.Order {
	case "", storage.OrderDesc:
	case storage.OrderAsc:
		q.Order = storage.OrderAsc
	default:
		return nil, fmt.Errorf("%w: order must be asc or desc", ErrInvalidQuery)
	}
	if p.MinHolding != nil {
		q.MinHolding = *p.MinHolding
	}

	holders, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list holders: %w", err)
	}

	totalPages := int(total) / q.Size
	if int(total)%q.Size != 0 {
		totalPages++
	}

	return &domain.Page[*domain.Holder]{
		Content:       holders,
		TotalElements: total,
		TotalPages:    totalPages,
		CurrentPage:   q.Page,
		PageSize:      q.Size,
		First:         q.Page == 0,
		Last:          q.Page >= totalPages-1,
	}, nil
}

// GetHolder returns the record for an exact address key.
// A miss yields storage.ErrNotFound for the boundary to translate.
func (s *Service) GetHolder(ctx context.Context, address string) (*domain.Holder, error) {
	return s.repo.GetByAddress(ctx, address)
}
