package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-core/internal/domain/entity"
	"github.com/jhoicas/almacen-core/internal/domain/repository"
)

var _ repository.StockSnapshotRepository = (*StockSnapshotRepo)(nil)

// StockSnapshotRepo implementación de StockSnapshotRepository sobre PostgreSQL.
type StockSnapshotRepo struct {
	q Querier
}

// NewStockSnapshotRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockSnapshotRepository(q Querier) *StockSnapshotRepo {
	return &StockSnapshotRepo{q: q}
}

func (r *StockSnapshotRepo) get(ctx context.Context, itemID, warehouseID, suffix string) (*entity.StockSnapshot, error) {
	var s entity.StockSnapshot
	err := r.q.QueryRow(ctx, `
		SELECT item_id, warehouse_id, quantity, updated_at
		FROM stock_snapshots WHERE item_id = $1 AND warehouse_id = $2`+suffix,
		itemID, warehouseID,
	).Scan(&s.ItemID, &s.WarehouseID, &s.Quantity, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.StockSnapshot{ItemID: itemID, WarehouseID: warehouseID, Quantity: decimal.Zero}, nil
		}
		return nil, fmt.Errorf("get stock snapshot: %w", err)
	}
	return &s, nil
}

// Get obtiene el snapshot; cantidad cero si la fila aún no existe.
func (r *StockSnapshotRepo) Get(ctx context.Context, itemID, warehouseID string) (*entity.StockSnapshot, error) {
	return r.get(ctx, itemID, warehouseID, "")
}

// GetForUpdate obtiene el snapshot y bloquea la fila (SELECT FOR UPDATE).
func (r *StockSnapshotRepo) GetForUpdate(ctx context.Context, itemID, warehouseID string) (*entity.StockSnapshot, error) {
	return r.get(ctx, itemID, warehouseID, " FOR UPDATE")
}

// Upsert inserta o actualiza la cantidad del snapshot.
func (r *StockSnapshotRepo) Upsert(ctx context.Context, snap *entity.StockSnapshot) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_snapshots (item_id, warehouse_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (item_id, warehouse_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`,
		snap.ItemID, snap.WarehouseID, snap.Quantity,
	)
	if err != nil {
		return fmt.Errorf("upsert stock snapshot: %w", err)
	}
	return nil
}

// Increment crea-o-incrementa la fila en una sola sentencia.
func (r *StockSnapshotRepo) Increment(ctx context.Context, itemID, warehouseID string, delta decimal.Decimal) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_snapshots (item_id, warehouse_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (item_id, warehouse_id)
		DO UPDATE SET quantity = stock_snapshots.quantity + EXCLUDED.quantity, updated_at = now()`,
		itemID, warehouseID, delta,
	)
	if err != nil {
		return fmt.Errorf("increment stock snapshot: %w", err)
	}
	return nil
}

// DecrementGuarded resta qty solo si la cantidad actual la cubre. Retorna
// false (sin mutación) si la guarda no se cumplió.
func (r *StockSnapshotRepo) DecrementGuarded(ctx context.Context, itemID, warehouseID string, qty decimal.Decimal) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE stock_snapshots
		SET quantity = quantity - $3, updated_at = now()
		WHERE item_id = $1 AND warehouse_id = $2 AND quantity >= $3`,
		itemID, warehouseID, qty,
	)
	if err != nil {
		return false, fmt.Errorf("guarded decrement: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByItem lista los snapshots de un ítem en todas las bodegas.
func (r *StockSnapshotRepo) ListByItem(ctx context.Context, itemID string) ([]*entity.StockSnapshot, error) {
	return r.list(ctx, `
		SELECT item_id, warehouse_id, quantity, updated_at
		FROM stock_snapshots WHERE item_id = $1 ORDER BY warehouse_id`, itemID)
}

// ListAll recorre todos los snapshots (reconciliación).
func (r *StockSnapshotRepo) ListAll(ctx context.Context) ([]*entity.StockSnapshot, error) {
	return r.list(ctx, `
		SELECT item_id, warehouse_id, quantity, updated_at
		FROM stock_snapshots ORDER BY item_id, warehouse_id`)
}

func (r *StockSnapshotRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockSnapshot, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock snapshots: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockSnapshot
	for rows.Next() {
		var s entity.StockSnapshot
		if err := rows.Scan(&s.ItemID, &s.WarehouseID, &s.Quantity, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock snapshot: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
