package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-core/internal/domain"
	"github.com/jhoicas/almacen-core/internal/domain/entity"
	"github.com/jhoicas/almacen-core/internal/domain/inventory"
)

// IssueFEFOInput entrada para una emisión por FEFO sobre un ítem por lote.
type IssueFEFOInput struct {
	ItemID       string
	WarehouseID  string
	Quantity     decimal.Decimal
	AllowExpired bool
	Ref          Ref
	UserID       string
}

// IssueByFEFO resuelve los balances por lote del ítem en la bodega y consume
// del frente de la lista ordenada (vencimiento asc, sin vencimiento al final,
// lote como desempate), omitiendo lotes vencidos salvo AllowExpired. Si el
// balance elegible no cubre lo pedido, la operación completa aborta sin
// ningún efecto, reportando solicitado vs disponible. Si alcanza, confirma en
// una sola transacción un evento OUT y un decremento de snapshot por lote
// consumido.
func (e *MovementEngine) IssueByFEFO(ctx context.Context, in IssueFEFOInput) ([]inventory.Allocation, error) {
	if !in.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	item, err := e.requireItem(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if item.TrackingMode != entity.TrackingLot {
		return nil, domain.ErrTrackingMode
	}
	if _, err := e.requireWarehouse(ctx, in.WarehouseID); err != nil {
		return nil, err
	}

	now := e.now()
	var allocs []inventory.Allocation

	err = e.txRunner.RunSerializable(ctx, func(r Repos) error {
		// Resolución autoritativa dentro de la transacción.
		balances, err := r.Events.AggregateLotBalances(ctx, item.ID, in.WarehouseID)
		if err != nil {
			return err
		}
		allocs, err = inventory.Pick(item.ID, in.WarehouseID, balances, in.Quantity, in.AllowExpired, now)
		if err != nil {
			return err
		}

		for _, alloc := range allocs {
			lotID := alloc.LotID
			ev := &entity.MovementEvent{
				TransactionID:   uuid.New().String(),
				ItemID:          item.ID,
				LotID:           &lotID,
				FromWarehouseID: &in.WarehouseID,
				Type:            entity.EventOUT,
				Quantity:        alloc.Quantity,
				RefTable:        in.Ref.Table,
				RefID:           in.Ref.ID,
				OccurredAt:      now,
				CreatedAt:       now,
				CreatedBy:       in.UserID,
			}
			if err := r.Events.Create(ctx, ev); err != nil {
				return err
			}
			ok, err := r.Snapshots.DecrementGuarded(ctx, item.ID, in.WarehouseID, alloc.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				// El snapshot no cubre lo que el ledger resolvió: abortar la
				// transacción completa y reportar lo disponible real.
				snap, gerr := r.Snapshots.Get(ctx, item.ID, in.WarehouseID)
				if gerr != nil {
					return gerr
				}
				return &domain.InsufficientBalanceError{
					ItemID:      item.ID,
					WarehouseID: in.WarehouseID,
					Requested:   in.Quantity,
					Available:   snap.Quantity,
				}
			}
		}
		return r.Items.AddToTotalQty(ctx, item.ID, in.Quantity.Neg())
	})
	if err != nil {
		return nil, err
	}

	e.notify(ctx, "stock.issued", map[string]string{
		"item_id":      item.ID,
		"warehouse_id": in.WarehouseID,
		"quantity":     in.Quantity.String(),
	})
	return allocs, nil
}

// IssueSerialInput entrada para la emisión de una unidad serializada.
type IssueSerialInput struct {
	ItemID       string
	WarehouseID  string
	SerialNumber string
	Ref          Ref
	UserID       string
}

// IssueBySerial emite una unidad serializada: el serial debe pertenecer al
// ítem, su balance neto en la bodega debe ser exactamente 1 y su lote asociado
// no puede estar vencido. Escribe un OUT y resta 1 del snapshot.
func (e *MovementEngine) IssueBySerial(ctx context.Context, in IssueSerialInput) error {
	item, err := e.requireItem(ctx, in.ItemID)
	if err != nil {
		return err
	}
	if item.TrackingMode != entity.TrackingSerial {
		return domain.ErrTrackingMode
	}
	if _, err := e.requireWarehouse(ctx, in.WarehouseID); err != nil {
		return err
	}
	serial, err := e.serials.GetByNumber(ctx, item.ID, in.SerialNumber)
	if err != nil {
		return err
	}
	if serial == nil {
		return domain.ErrNotFound
	}

	now := e.now()
	if serial.LotID != nil {
		lot, err := e.lots.GetByID(ctx, *serial.LotID)
		if err != nil {
			return err
		}
		if lot != nil && lot.IsExpired(now) {
			return domain.ErrExpiredLot
		}
	}

	one := decimal.NewFromInt(1)
	err = e.txRunner.RunSerializable(ctx, func(r Repos) error {
		balance, err := r.Events.SerialNetBalance(ctx, serial.ID, in.WarehouseID)
		if err != nil {
			return err
		}
		if !balance.Equal(one) {
			return domain.ErrSerialNotInStock
		}
		ev := &entity.MovementEvent{
			TransactionID:   uuid.New().String(),
			ItemID:          item.ID,
			LotID:           serial.LotID,
			SerialID:        &serial.ID,
			FromWarehouseID: &in.WarehouseID,
			Type:            entity.EventOUT,
			Quantity:        one,
			RefTable:        in.Ref.Table,
			RefID:           in.Ref.ID,
			OccurredAt:      now,
			CreatedAt:       now,
			CreatedBy:       in.UserID,
		}
		if err := r.Events.Create(ctx, ev); err != nil {
			return err
		}
		ok, err := r.Snapshots.DecrementGuarded(ctx, item.ID, in.WarehouseID, one)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrSerialNotInStock
		}
		return r.Items.AddToTotalQty(ctx, item.ID, one.Neg())
	})
	if err != nil {
		return err
	}

	e.notify(ctx, "stock.issued_serial", map[string]string{
		"item_id": item.ID,
		"serial":  in.SerialNumber,
	})
	return nil
}
