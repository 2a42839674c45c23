package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-core/internal/domain/entity"
	"github.com/jhoicas/almacen-core/internal/domain/inventory"
	"github.com/jhoicas/almacen-core/internal/domain/repository"
)

var _ repository.MovementEventRepository = (*MovementEventRepo)(nil)

// MovementEventRepo implementación de MovementEventRepository sobre PostgreSQL.
// El ledger es append-only: solo INSERT y agregaciones.
type MovementEventRepo struct {
	q Querier
}

// NewMovementEventRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementEventRepository(q Querier) *MovementEventRepo {
	return &MovementEventRepo{q: q}
}

// signedQty expresa en SQL la misma regla de signo que entity.SignedQuantity:
// OUT/TRANSF_OUT restan, ADJUST resta solo cuando lleva bodega de origen.
const signedQty = `CASE
	WHEN e.type IN ('OUT', 'TRANSF_OUT') THEN -e.quantity
	WHEN e.type = 'ADJUST' AND e.from_warehouse_id IS NOT NULL THEN -e.quantity
	ELSE e.quantity
END`

// affectsWarehouse filtra los eventos que tocan la bodega $2: entradas por
// destino, salidas por origen.
const affectsWarehouse = `(
	(e.to_warehouse_id = $2 AND (e.type IN ('IN', 'TRANSF_IN') OR (e.type = 'ADJUST' AND e.from_warehouse_id IS NULL)))
	OR
	(e.from_warehouse_id = $2 AND (e.type IN ('OUT', 'TRANSF_OUT') OR (e.type = 'ADJUST' AND e.from_warehouse_id IS NOT NULL)))
)`

// Create inserta un evento en el ledger. Genera ID si viene vacío.
func (r *MovementEventRepo) Create(ctx context.Context, ev *entity.MovementEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO movement_events
			(id, transaction_id, item_id, lot_id, serial_id, from_warehouse_id,
			 to_warehouse_id, type, quantity, ref_table, ref_id, occurred_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		ev.ID, ev.TransactionID, ev.ItemID, ev.LotID, ev.SerialID,
		ev.FromWarehouseID, ev.ToWarehouseID, ev.Type, ev.Quantity,
		ev.RefTable, ev.RefID, ev.OccurredAt, ev.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("create movement event: %w", err)
	}
	return nil
}

// ListByItem lista los eventos de un ítem, más recientes primero.
func (r *MovementEventRepo) ListByItem(ctx context.Context, itemID string, limit, offset int) ([]*entity.MovementEvent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, transaction_id, item_id, lot_id, serial_id, from_warehouse_id,
		       to_warehouse_id, type, quantity, ref_table, ref_id, occurred_at,
		       created_at, created_by
		FROM movement_events e
		WHERE e.item_id = $1
		ORDER BY e.occurred_at DESC, e.created_at DESC
		LIMIT $2 OFFSET $3`,
		itemID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list movement events: %w", err)
	}
	defer rows.Close()
	var list []*entity.MovementEvent
	for rows.Next() {
		var ev entity.MovementEvent
		if err := rows.Scan(
			&ev.ID, &ev.TransactionID, &ev.ItemID, &ev.LotID, &ev.SerialID,
			&ev.FromWarehouseID, &ev.ToWarehouseID, &ev.Type, &ev.Quantity,
			&ev.RefTable, &ev.RefID, &ev.OccurredAt, &ev.CreatedAt, &ev.CreatedBy,
		); err != nil {
			return nil, fmt.Errorf("scan movement event: %w", err)
		}
		list = append(list, &ev)
	}
	return list, rows.Err()
}

// AggregateLotBalances agrega los eventos del ítem en la bodega a balances
// netos por lote, solo positivos. El orden FEFO lo aplica el caller.
func (r *MovementEventRepo) AggregateLotBalances(ctx context.Context, itemID, warehouseID string) ([]inventory.LotBalance, error) {
	rows, err := r.q.Query(ctx, `
		SELECT e.lot_id, l.code, l.expires_at, SUM(`+signedQty+`) AS balance
		FROM movement_events e
		JOIN lots l ON l.id = e.lot_id
		WHERE e.item_id = $1 AND e.lot_id IS NOT NULL AND `+affectsWarehouse+`
		GROUP BY e.lot_id, l.code, l.expires_at
		HAVING SUM(`+signedQty+`) > 0`,
		itemID, warehouseID,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate lot balances: %w", err)
	}
	defer rows.Close()
	var balances []inventory.LotBalance
	for rows.Next() {
		var b inventory.LotBalance
		if err := rows.Scan(&b.LotID, &b.LotCode, &b.ExpiresAt, &b.Balance); err != nil {
			return nil, fmt.Errorf("scan lot balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// SerialNetBalance balance neto del serial dentro de la bodega (0 o 1).
func (r *MovementEventRepo) SerialNetBalance(ctx context.Context, serialID, warehouseID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(`+signedQty+`), 0)
		FROM movement_events e
		WHERE e.serial_id = $1 AND `+affectsWarehouse,
		serialID, warehouseID,
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("serial net balance: %w", err)
	}
	return balance, nil
}

// SerialGlobalBalance balance neto del serial sobre todas las bodegas.
// Los pares TRANSF_OUT/TRANSF_IN se cancelan, así que vale 0 o 1.
func (r *MovementEventRepo) SerialGlobalBalance(ctx context.Context, serialID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(`+signedQty+`), 0)
		FROM movement_events e
		WHERE e.serial_id = $1`,
		serialID,
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("serial global balance: %w", err)
	}
	return balance, nil
}

// NetBalance suma con signo de los eventos del (ítem, bodega).
func (r *MovementEventRepo) NetBalance(ctx context.Context, itemID, warehouseID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(`+signedQty+`), 0)
		FROM movement_events e
		WHERE e.item_id = $1 AND `+affectsWarehouse,
		itemID, warehouseID,
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("net balance: %w", err)
	}
	return balance, nil
}
