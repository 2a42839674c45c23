package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-core/internal/domain/entity"
	"github.com/jhoicas/almacen-core/internal/domain/inventory"
)

// MovementEventRepository acceso al ledger de movimientos (append-only).
type MovementEventRepository interface {
	Create(ctx context.Context, ev *entity.MovementEvent) error
	ListByItem(ctx context.Context, itemID string, limit, offset int) ([]*entity.MovementEvent, error)
	// AggregateLotBalances agrega los eventos del ítem en la bodega a balances
	// netos por lote, filtrados a positivos. El orden FEFO lo aplica el caller.
	AggregateLotBalances(ctx context.Context, itemID, warehouseID string) ([]inventory.LotBalance, error)
	// SerialNetBalance es el balance neto del serial dentro de la bodega
	// (debe ser exactamente 1 para poder emitirlo).
	SerialNetBalance(ctx context.Context, serialID, warehouseID string) (decimal.Decimal, error)
	// SerialGlobalBalance es el balance neto del serial sobre todas las
	// bodegas (0 = no ubicado, 1 = ubicado en alguna).
	SerialGlobalBalance(ctx context.Context, serialID string) (decimal.Decimal, error)
	// NetBalance es la suma con signo de los eventos del (ítem, bodega); base
	// de la reconciliación snapshot/ledger.
	NetBalance(ctx context.Context, itemID, warehouseID string) (decimal.Decimal, error)
}
