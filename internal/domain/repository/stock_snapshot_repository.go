package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-core/internal/domain/entity"
)

// StockSnapshotRepository acceso al balance materializado por (ítem, bodega).
// El snapshot solo se muta dentro de la misma transacción que inserta los
// eventos del ledger.
type StockSnapshotRepository interface {
	// Get devuelve el snapshot; si no existe retorna cantidad cero (la fila se
	// crea en el primer movimiento de entrada).
	Get(ctx context.Context, itemID, warehouseID string) (*entity.StockSnapshot, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE) para la relectura
	// autoritativa dentro de la transacción.
	GetForUpdate(ctx context.Context, itemID, warehouseID string) (*entity.StockSnapshot, error)
	// Upsert crea o reemplaza la cantidad del snapshot.
	Upsert(ctx context.Context, snap *entity.StockSnapshot) error
	// Increment crea-o-incrementa la fila en una sola sentencia (entradas).
	Increment(ctx context.Context, itemID, warehouseID string, delta decimal.Decimal) error
	// DecrementGuarded resta qty solo si la cantidad actual la cubre
	// (UPDATE condicional, no un decremento ciego). Retorna false si la
	// guarda no se cumplió y no hubo mutación.
	DecrementGuarded(ctx context.Context, itemID, warehouseID string, qty decimal.Decimal) (bool, error)
	ListByItem(ctx context.Context, itemID string) ([]*entity.StockSnapshot, error)
	// ListAll recorre todos los snapshots; lo usa la reconciliación contra el ledger.
	ListAll(ctx context.Context) ([]*entity.StockSnapshot, error)
}
