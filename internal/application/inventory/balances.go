package inventory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-core/internal/domain/inventory"
)

// ResolveLotBalances agrega el ledger del ítem en la bodega a balances netos
// por lote (solo positivos) en el orden FEFO canónico. El mismo orden
// respalda el picking, así que la sugerencia es reproducible.
func (e *MovementEngine) ResolveLotBalances(ctx context.Context, itemID, warehouseID string) ([]inventory.LotBalance, error) {
	if _, err := e.requireItem(ctx, itemID); err != nil {
		return nil, err
	}
	if _, err := e.requireWarehouse(ctx, warehouseID); err != nil {
		return nil, err
	}
	balances, err := e.events.AggregateLotBalances(ctx, itemID, warehouseID)
	if err != nil {
		return nil, err
	}
	inventory.SortFEFO(balances)
	return balances, nil
}

// SuggestAllocation calcula, sin efectos, qué lotes consumiría una emisión
// FEFO de la cantidad dada. El resultado es consultivo: el chequeo
// autoritativo ocurre dentro de la transacción de IssueByFEFO.
func (e *MovementEngine) SuggestAllocation(ctx context.Context, itemID, warehouseID string, qty decimal.Decimal, allowExpired bool) ([]inventory.Allocation, error) {
	balances, err := e.ResolveLotBalances(ctx, itemID, warehouseID)
	if err != nil {
		return nil, err
	}
	return inventory.Pick(itemID, warehouseID, balances, qty, allowExpired, e.now())
}

// Drift es una divergencia detectada entre el snapshot y la suma del ledger
// para un (ítem, bodega).
type Drift struct {
	ItemID      string
	WarehouseID string
	Snapshot    decimal.Decimal
	Ledger      decimal.Decimal
}

// ReconcileSnapshots compara cada snapshot con la suma con signo de sus
// eventos y devuelve las divergencias. Con repair, corrige cada snapshot al
// valor del ledger dentro de una transacción; el ledger es la fuente de
// verdad. Pensado como job explícito de operación, no como auto-sanado.
func (e *MovementEngine) ReconcileSnapshots(ctx context.Context, repair bool) ([]Drift, error) {
	snaps, err := e.snapshots.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var drifts []Drift
	for _, snap := range snaps {
		ledger, err := e.events.NetBalance(ctx, snap.ItemID, snap.WarehouseID)
		if err != nil {
			return nil, err
		}
		if snap.Quantity.Equal(ledger) {
			continue
		}
		drifts = append(drifts, Drift{
			ItemID:      snap.ItemID,
			WarehouseID: snap.WarehouseID,
			Snapshot:    snap.Quantity,
			Ledger:      ledger,
		})
	}
	if !repair || len(drifts) == 0 {
		return drifts, nil
	}

	err = e.txRunner.RunSerializable(ctx, func(r Repos) error {
		for _, d := range drifts {
			snap, err := r.Snapshots.GetForUpdate(ctx, d.ItemID, d.WarehouseID)
			if err != nil {
				return err
			}
			ledger, err := r.Events.NetBalance(ctx, d.ItemID, d.WarehouseID)
			if err != nil {
				return err
			}
			snap.Quantity = ledger
			snap.UpdatedAt = e.now()
			if err := r.Snapshots.Upsert(ctx, snap); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drifts, nil
}
