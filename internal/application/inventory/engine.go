package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-core/internal/domain"
	"github.com/jhoicas/almacen-core/internal/domain/entity"
	"github.com/jhoicas/almacen-core/internal/domain/repository"
)

// MovementEngine ejecuta las operaciones del motor de movimientos (recepción,
// traslado, emisión) de forma transaccional. Las validaciones de entrada
// corren fuera de la transacción; la verificación autoritativa de balance
// ocurre siempre dentro, así que un "balance insuficiente" puede aparecer
// aunque un pre-chequeo haya pasado; el caller lo trata como reintentable.
type MovementEngine struct {
	txRunner   TxRunner
	items      repository.ItemRepository
	warehouses repository.WarehouseRepository
	lots       repository.LotRepository
	serials    repository.SerialRepository
	events     repository.MovementEventRepository
	snapshots  repository.StockSnapshotRepository
	notifier   Notifier
	now        func() time.Time
}

// NewMovementEngine construye el motor. notifier puede ser nil.
func NewMovementEngine(
	txRunner TxRunner,
	items repository.ItemRepository,
	warehouses repository.WarehouseRepository,
	lots repository.LotRepository,
	serials repository.SerialRepository,
	events repository.MovementEventRepository,
	snapshots repository.StockSnapshotRepository,
	notifier Notifier,
) *MovementEngine {
	return &MovementEngine{
		txRunner:   txRunner,
		items:      items,
		warehouses: warehouses,
		lots:       lots,
		serials:    serials,
		events:     events,
		snapshots:  snapshots,
		notifier:   notifier,
		now:        time.Now,
	}
}

// Ref identifica el documento que origina un movimiento (tabla + id).
type Ref struct {
	Table string
	ID    string
}

// ReceiveInput entrada para una recepción de stock.
// LotCode/LotExpiresAt aplican a ítems LOT (y opcionalmente SERIAL);
// SerialNumber solo a ítems SERIAL, con cantidad fija 1.
type ReceiveInput struct {
	ItemID       string
	WarehouseID  string
	Quantity     decimal.Decimal
	LotCode      string
	LotExpiresAt *time.Time
	SerialNumber string
	Ref          Ref
	UserID       string
}

// Receive valida la entrada contra el modo de trazabilidad del ítem, crea
// lote/serial si no existen, y en una sola unidad atómica inserta el evento
// IN y crea-o-incrementa el snapshot (ítem, bodega).
func (e *MovementEngine) Receive(ctx context.Context, in ReceiveInput) error {
	if !in.Quantity.GreaterThan(decimal.Zero) {
		return domain.ErrInvalidInput
	}
	item, err := e.requireItem(ctx, in.ItemID)
	if err != nil {
		return err
	}
	if _, err := e.requireWarehouse(ctx, in.WarehouseID); err != nil {
		return err
	}
	switch item.TrackingMode {
	case entity.TrackingNone:
		if in.LotCode != "" || in.SerialNumber != "" {
			return domain.ErrTrackingMode
		}
	case entity.TrackingLot:
		if in.LotCode == "" || in.SerialNumber != "" {
			return domain.ErrTrackingMode
		}
	case entity.TrackingSerial:
		if in.SerialNumber == "" {
			return domain.ErrTrackingMode
		}
		if !in.Quantity.Equal(decimal.NewFromInt(1)) {
			return domain.ErrInvalidInput
		}
	default:
		return domain.ErrTrackingMode
	}

	now := e.now()
	run := e.txRunner.Run
	if item.TrackingMode == entity.TrackingSerial {
		// El guard de ubicación única del serial es una lectura-luego-escritura
		// sobre el ledger: bajo SERIALIZABLE dos recepciones concurrentes del
		// mismo serial no pueden observar ambas balance cero y confirmar ambas;
		// una aborta con ErrTxConflict y el caller la reintenta.
		run = e.txRunner.RunSerializable
	}
	err = run(ctx, func(r Repos) error {
		var lotID, serialID *string
		if in.LotCode != "" {
			lot, err := r.Lots.GetOrCreate(ctx, item.ID, in.LotCode, in.LotExpiresAt)
			if err != nil {
				return err
			}
			lotID = &lot.ID
		}
		if in.SerialNumber != "" {
			serial, err := r.Serials.GetOrCreate(ctx, item.ID, in.SerialNumber, lotID)
			if err != nil {
				return err
			}
			// Un serial tiene una sola ubicación: si su balance global ya es 1
			// no puede recibirse de nuevo sin una salida previa.
			global, err := r.Events.SerialGlobalBalance(ctx, serial.ID)
			if err != nil {
				return err
			}
			if !global.IsZero() {
				return domain.ErrSerialLocated
			}
			serialID = &serial.ID
			if serial.LotID != nil {
				lotID = serial.LotID
			}
		}

		ev := &entity.MovementEvent{
			TransactionID: uuid.New().String(),
			ItemID:        item.ID,
			LotID:         lotID,
			SerialID:      serialID,
			ToWarehouseID: &in.WarehouseID,
			Type:          entity.EventIN,
			Quantity:      in.Quantity,
			RefTable:      in.Ref.Table,
			RefID:         in.Ref.ID,
			OccurredAt:    now,
			CreatedAt:     now,
			CreatedBy:     in.UserID,
		}
		if err := r.Events.Create(ctx, ev); err != nil {
			return err
		}
		if err := r.Snapshots.Increment(ctx, item.ID, in.WarehouseID, in.Quantity); err != nil {
			return err
		}
		return r.Items.AddToTotalQty(ctx, item.ID, in.Quantity)
	})
	if err != nil {
		return err
	}

	e.notify(ctx, "stock.received", map[string]string{
		"item_id":      item.ID,
		"warehouse_id": in.WarehouseID,
		"quantity":     in.Quantity.String(),
	})
	return nil
}

func (e *MovementEngine) requireItem(ctx context.Context, id string) (*entity.Item, error) {
	item, err := e.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (e *MovementEngine) requireWarehouse(ctx context.Context, id string) (*entity.Warehouse, error) {
	wh, err := e.warehouses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wh == nil {
		return nil, domain.ErrNotFound
	}
	return wh, nil
}

// notify envía una notificación best-effort; nunca afecta el resultado.
func (e *MovementEngine) notify(ctx context.Context, event string, fields map[string]string) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(ctx, event, fields)
}
