package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/defiscope/holderwatch/internal/core/domain"
	"github.com/defiscope/holderwatch/internal/infra/storage"
)

// HolderRepo implements storage.HolderRepository using PostgreSQL.
type HolderRepo struct {
	db *DB
}

// NewHolderRepo creates a new PostgreSQL holder repository.
func NewHolderRepo(db *DB) *HolderRepo {
	return &HolderRepo{db: db}
}

type holderRow struct {
	Address              string              `db:"address"`
	HoldingAmount        decimal.Decimal     `db:"holding_amount"`
	FirstPurchaseTime    sql.NullTime        `db:"first_purchase_time"`
	FirstPurchasePrice   decimal.NullDecimal `db:"first_purchase_price"`
	FirstPurchaseAmount  decimal.NullDecimal `db:"first_purchase_amount"`
	CurrentPrice         decimal.Decimal     `db:"current_price"`
	CostBasis            decimal.NullDecimal `db:"cost_basis"`
	CurrentValue         decimal.Decimal     `db:"current_value"`
	ProfitLoss           decimal.NullDecimal `db:"profit_loss"`
	ProfitLossPercentage decimal.NullDecimal `db:"profit_loss_percentage"`
	DataSource           string              `db:"data_source"`
	CreatedAt            sql.NullTime        `db:"created_at"`
	LastUpdated          sql.NullTime        `db:"last_updated"`
}

// Upsert inserts or updates the record keyed by address. created_at of an
// existing row is untouched; last_updated always takes this write's value.
func (r *HolderRepo) Upsert(ctx context.Context, h *domain.Holder) error {
	query := `
		INSERT INTO holders (
			address, holding_amount, first_purchase_time, first_purchase_price,
			first_purchase_amount, current_price, cost_basis, current_value,
			profit_loss, profit_loss_percentage, data_source, created_at, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (address) DO UPDATE SET
			holding_amount = EXCLUDED.holding_amount,
			first_purchase_time = EXCLUDED.first_purchase_time,
			first_purchase_price = EXCLUDED.first_purchase_price,
			first_purchase_amount = EXCLUDED.first_purchase_amount,
			current_price = EXCLUDED.current_price,
			cost_basis = EXCLUDED.cost_basis,
			current_value = EXCLUDED.current_value,
			profit_loss = EXCLUDED.profit_loss,
			profit_loss_percentage = EXCLUDED.profit_loss_percentage,
			data_source = EXCLUDED.data_source,
			last_updated = EXCLUDED.last_updated
	`
	_, err := r.db.ExecContext(ctx, query,
		h.Address, h.HoldingAmount,
		nullTime(h.FirstPurchaseTime), nullDecimal(h.FirstPurchasePrice),
		nullDecimal(h.FirstPurchaseAmount), h.CurrentPrice,
		nullDecimal(h.CostBasis), h.CurrentValue,
		nullDecimal(h.ProfitLoss), nullDecimal(h.ProfitLossPercentage),
		h.DataSource, h.CreatedAt, h.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert holder %s: %w", h.Address, err)
	}
	return nil
}

// GetByAddress retrieves a holder record by exact address key.
func (r *HolderRepo) GetByAddress(ctx context.Context, address string) (*domain.Holder, error) {
	var row holderRow
	query := `SELECT ` + holderColumns + ` FROM holders WHERE address = $1`
	err := r.db.GetContext(ctx, &row, query, address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holder %s: %w", address, err)
	}
	return row.toDomain(), nil
}

// List returns one page of records with holding_amount >= MinHolding and the
// total matching count. Sorting by profit_loss_percentage excludes rows where
// the percentage was never computed.
func (r *HolderRepo) List(ctx context.Context, q storage.ListQuery) ([]*domain.Holder, int64, error) {
	sortCol, err := sortColumn(q.SortBy)
	if err != nil {
		return nil, 0, err
	}
	dir := "DESC"
	if q.Order == storage.OrderAsc {
		dir = "ASC"
	}

	where := `WHERE holding_amount >= $1`
	if sortCol == "profit_loss_percentage" {
		where += ` AND profit_loss_percentage IS NOT NULL`
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM holders ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, q.MinHolding); err != nil {
		return nil, 0, fmt.Errorf("failed to count holders: %w", err)
	}

	listQuery := fmt.Sprintf(
		`SELECT %s FROM holders %s ORDER BY %s %s LIMIT $2 OFFSET $3`,
		holderColumns, where, sortCol, dir,
	)
	var rows []holderRow
	if err := r.db.SelectContext(ctx, &rows, listQuery, q.MinHolding, q.Size, q.Page*q.Size); err != nil {
		return nil, 0, fmt.Errorf("failed to list holders: %w", err)
	}

	holders := make([]*domain.Holder, 0, len(rows))
	for _, row := range rows {
		holders = append(holders, row.toDomain())
	}
	return holders, total, nil
}

const holderColumns = `address, holding_amount, first_purchase_time, first_purchase_price,
	first_purchase_amount, current_price, cost_basis, current_value,
	profit_loss, profit_loss_percentage, data_source, created_at, last_updated`

func sortColumn(sortBy string) (string, error) {
	switch sortBy {
	case storage.SortByHoldingAmount, "":
		return "holding_amount", nil
	case storage.SortByProfitLossPercentage:
		return "profit_loss_percentage", nil
	default:
		return "", fmt.Errorf("unsupported sort field %q", sortBy)
	}
}

func (row holderRow) toDomain() *domain.Holder {
	h := &domain.Holder{
		Address:       row.Address,
		HoldingAmount: row.HoldingAmount,
		CurrentPrice:  row.CurrentPrice,
		CurrentValue:  row.CurrentValue,
		DataSource:    row.DataSource,
		CreatedAt:     row.CreatedAt.Time,
		LastUpdated:   row.LastUpdated.Time,
	}
	if row.FirstPurchaseTime.Valid {
		t := row.FirstPurchaseTime.Time
		h.FirstPurchaseTime = &t
	}
	if row.FirstPurchasePrice.Valid {
		h.FirstPurchasePrice = &row.FirstPurchasePrice.Decimal
	}
	if row.FirstPurchaseAmount.Valid {
		h.FirstPurchaseAmount = &row.FirstPurchaseAmount.Decimal
	}
	if row.CostBasis.Valid {
		h.CostBasis = &row.CostBasis.Decimal
	}
	if row.ProfitLoss.Valid {
		h.ProfitLoss = &row.ProfitLoss.Decimal
	}
	if row.ProfitLossPercentage.Valid {
		h.ProfitLossPercentage = &row.ProfitLossPercentage.Decimal
	}
	return h
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
