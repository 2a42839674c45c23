package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-core/internal/domain"
	"github.com/jhoicas/almacen-core/internal/domain/entity"
)

// TransferInput entrada para un traslado entre bodegas.
type TransferInput struct {
	ItemID          string
	Quantity        decimal.Decimal
	FromWarehouseID string
	ToWarehouseID   string
	LotCode         string
	SerialNumber    string
	Ref             Ref
	UserID          string
}

// Transfer mueve stock entre bodegas. Valida cantidad, bodegas distintas y
// consistencia con el modo de trazabilidad; rechaza lotes vencidos; hace un
// pre-chequeo consultivo del balance del lote en origen y, dentro de una
// transacción SERIALIZABLE, relee el snapshot de origen, resta, suma en
// destino y escribe la pareja TRANSF_OUT/TRANSF_IN con el mismo lote/serial.
func (e *MovementEngine) Transfer(ctx context.Context, in TransferInput) error {
	if !in.Quantity.GreaterThan(decimal.Zero) {
		return domain.ErrInvalidInput
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return domain.ErrSameWarehouse
	}
	item, err := e.requireItem(ctx, in.ItemID)
	if err != nil {
		return err
	}
	if _, err := e.requireWarehouse(ctx, in.FromWarehouseID); err != nil {
		return err
	}
	if _, err := e.requireWarehouse(ctx, in.ToWarehouseID); err != nil {
		return err
	}

	var lotID, serialID *string
	now := e.now()

	switch item.TrackingMode {
	case entity.TrackingNone:
		if in.LotCode != "" || in.SerialNumber != "" {
			return domain.ErrTrackingMode
		}
	case entity.TrackingLot:
		if in.LotCode == "" || in.SerialNumber != "" {
			return domain.ErrTrackingMode
		}
		lot, err := e.lots.GetByCode(ctx, item.ID, in.LotCode)
		if err != nil {
			return err
		}
		if lot == nil {
			return domain.ErrNotFound
		}
		if lot.IsExpired(now) {
			return domain.ErrExpiredLot
		}
		lotID = &lot.ID
		// Pre-chequeo consultivo: el balance resuelto del lote en origen debe
		// cubrir la cantidad. La verificación autoritativa va dentro de la tx.
		if err := e.precheckLotBalance(ctx, item.ID, in.FromWarehouseID, lot.ID, in.Quantity); err != nil {
			return err
		}
	case entity.TrackingSerial:
		if in.SerialNumber == "" {
			return domain.ErrTrackingMode
		}
		if !in.Quantity.Equal(decimal.NewFromInt(1)) {
			return domain.ErrInvalidInput
		}
		serial, err := e.serials.GetByNumber(ctx, item.ID, in.SerialNumber)
		if err != nil {
			return err
		}
		if serial == nil {
			return domain.ErrNotFound
		}
		if serial.LotID != nil {
			lot, err := e.lots.GetByID(ctx, *serial.LotID)
			if err != nil {
				return err
			}
			if lot != nil && lot.IsExpired(now) {
				return domain.ErrExpiredLot
			}
			lotID = serial.LotID
		}
		inOrigin, err := e.events.SerialNetBalance(ctx, serial.ID, in.FromWarehouseID)
		if err != nil {
			return err
		}
		if !inOrigin.Equal(decimal.NewFromInt(1)) {
			return domain.ErrSerialNotInStock
		}
		serialID = &serial.ID
	default:
		return domain.ErrTrackingMode
	}

	err = e.txRunner.RunSerializable(ctx, func(r Repos) error {
		return TransferInTx(ctx, r, TransferTxInput{
			ItemID:          item.ID,
			Quantity:        in.Quantity,
			FromWarehouseID: in.FromWarehouseID,
			ToWarehouseID:   in.ToWarehouseID,
			LotID:           lotID,
			SerialID:        serialID,
			Ref:             in.Ref,
			UserID:          in.UserID,
			Now:             now,
		})
	})
	if err != nil {
		return err
	}

	e.notify(ctx, "stock.transferred", map[string]string{
		"item_id": item.ID,
		"from":    in.FromWarehouseID,
		"to":      in.ToWarehouseID,
	})
	return nil
}

func (e *MovementEngine) precheckLotBalance(ctx context.Context, itemID, warehouseID, lotID string, qty decimal.Decimal) error {
	balances, err := e.events.AggregateLotBalances(ctx, itemID, warehouseID)
	if err != nil {
		return err
	}
	available := decimal.Zero
	for _, b := range balances {
		if b.LotID == lotID {
			available = b.Balance
			break
		}
	}
	if available.LessThan(qty) {
		return &domain.InsufficientBalanceError{
			ItemID:      itemID,
			WarehouseID: warehouseID,
			Requested:   qty,
			Available:   available,
		}
	}
	return nil
}

// TransferTxInput parámetros ya resueltos (ids de lote/serial) para ejecutar
// el traslado dentro de una transacción del caller.
type TransferTxInput struct {
	ItemID          string
	Quantity        decimal.Decimal
	FromWarehouseID string
	ToWarehouseID   string
	LotID           *string
	SerialID        *string
	Ref             Ref
	UserID          string
	Now             time.Time
}

// TransferInTx es la unidad atómica del traslado: relectura con bloqueo del
// snapshot de origen, aborto explícito si ya no cubre la cantidad, resta en
// origen, crea-o-incrementa destino, y pareja de eventos con el mismo
// TransactionID. Lo comparten el traslado interactivo y la ejecución
// programada por lotes.
func TransferInTx(ctx context.Context, r Repos, in TransferTxInput) error {
	origin, err := r.Snapshots.GetForUpdate(ctx, in.ItemID, in.FromWarehouseID)
	if err != nil {
		return err
	}
	if origin.Quantity.LessThan(in.Quantity) {
		return &domain.InsufficientBalanceError{
			ItemID:      in.ItemID,
			WarehouseID: in.FromWarehouseID,
			Requested:   in.Quantity,
			Available:   origin.Quantity,
		}
	}
	origin.Quantity = origin.Quantity.Sub(in.Quantity)
	origin.UpdatedAt = in.Now
	if err := r.Snapshots.Upsert(ctx, origin); err != nil {
		return err
	}
	if err := r.Snapshots.Increment(ctx, in.ItemID, in.ToWarehouseID, in.Quantity); err != nil {
		return err
	}

	txID := uuid.New().String()
	outEv := &entity.MovementEvent{
		TransactionID:   txID,
		ItemID:          in.ItemID,
		LotID:           in.LotID,
		SerialID:        in.SerialID,
		FromWarehouseID: &in.FromWarehouseID,
		ToWarehouseID:   &in.ToWarehouseID,
		Type:            entity.EventTransfOut,
		Quantity:        in.Quantity,
		RefTable:        in.Ref.Table,
		RefID:           in.Ref.ID,
		OccurredAt:      in.Now,
		CreatedAt:       in.Now,
		CreatedBy:       in.UserID,
	}
	if err := r.Events.Create(ctx, outEv); err != nil {
		return err
	}
	inEv := &entity.MovementEvent{
		TransactionID:   txID,
		ItemID:          in.ItemID,
		LotID:           in.LotID,
		SerialID:        in.SerialID,
		FromWarehouseID: &in.FromWarehouseID,
		ToWarehouseID:   &in.ToWarehouseID,
		Type:            entity.EventTransfIn,
		Quantity:        in.Quantity,
		RefTable:        in.Ref.Table,
		RefID:           in.Ref.ID,
		OccurredAt:      in.Now,
		CreatedAt:       in.Now,
		CreatedBy:       in.UserID,
	}
	return r.Events.Create(ctx, inEv)
}
