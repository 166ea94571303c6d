// Package memory provides an in-memory holder repository used in tests and
// database-less runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/defiscope/holderwatch/internal/core/domain"
	"github.com/defiscope/holderwatch/internal/infra/storage"
)

// HolderRepo implements storage.HolderRepository in memory.
type HolderRepo struct {
	mu      sync.RWMutex
	holders map[string]*domain.Holder
}

// NewHolderRepo creates an empty in-memory holder repository.
func NewHolderRepo() *HolderRepo {
	return &HolderRepo{holders: make(map[string]*domain.Holder)}
}

// Upsert inserts or updates the record keyed by address, preserving the
// creation timestamp of an existing record.
func (r *HolderRepo) Upsert(_ context.Context, h *domain.Holder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *h
	if existing, ok := r.holders[h.Address]; ok {
		stored.CreatedAt = existing.CreatedAt
	}
	r.holders[h.Address] = &stored
	return nil
}

// GetByAddress retrieves a record by exact address key.
func (r *HolderRepo) GetByAddress(_ context.Context, address string) (*domain.Holder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.holders[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *h
	return &copied, nil
}

// List returns one page of records filtered and sorted per the query, plus
// the total matching count.
func (r *HolderRepo) List(_ context.Context, q storage.ListQuery) ([]*domain.Holder, int64, error) {
	byPercentage := q.SortBy == storage.SortByProfitLossPercentage

	r.mu.RLock()
	var matched []*domain.Holder
	for _, h := range r.holders {
		if h.HoldingAmount.LessThan(q.MinHolding) {
			continue
		}
		if byPercentage && h.ProfitLossPercentage == nil {
			continue
		}
		copied := *h
		matched = append(matched, &copied)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		var less bool
		if byPercentage {
			less = matched[i].ProfitLossPercentage.LessThan(*matched[j].ProfitLossPercentage)
		} else {
			less = matched[i].HoldingAmount.LessThan(matched[j].HoldingAmount)
		}
		if q.Order == storage.OrderAsc {
			return less
		}
		return !less
	})

	total := int64(len(matched))
	start := q.Page * q.Size
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + q.Size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}
