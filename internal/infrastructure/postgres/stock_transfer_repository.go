package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/almacen-core/internal/domain"
	"github.com/jhoicas/almacen-core/internal/domain/entity"
	"github.com/jhoicas/almacen-core/internal/domain/repository"
)

var _ repository.StockTransferRepository = (*StockTransferRepo)(nil)

// StockTransferRepo implementación de StockTransferRepository sobre PostgreSQL.
type StockTransferRepo struct {
	q Querier
}

// NewStockTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockTransferRepository(q Querier) *StockTransferRepo {
	return &StockTransferRepo{q: q}
}

// Create inserta un traslado realizado. Genera ID si viene vacío.
func (r *StockTransferRepo) Create(ctx context.Context, tr *entity.StockTransfer) error {
	if tr.ID == "" {
		tr.ID = uuid.New().String()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_transfers
			(id, item_id, quantity, from_warehouse_id, to_warehouse_id, executed_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tr.ID, tr.ItemID, tr.Quantity, tr.FromWarehouseID, tr.ToWarehouseID,
		tr.ExecutedAt, tr.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("create stock transfer: %w", err)
	}
	return nil
}

// GetByID obtiene un traslado realizado por su ID.
func (r *StockTransferRepo) GetByID(ctx context.Context, id string) (*entity.StockTransfer, error) {
	var tr entity.StockTransfer
	err := r.q.QueryRow(ctx, `
		SELECT id, item_id, quantity, from_warehouse_id, to_warehouse_id, executed_at, created_by
		FROM stock_transfers WHERE id = $1`, id,
	).Scan(&tr.ID, &tr.ItemID, &tr.Quantity, &tr.FromWarehouseID, &tr.ToWarehouseID,
		&tr.ExecutedAt, &tr.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get stock transfer: %w", err)
	}
	return &tr, nil
}
