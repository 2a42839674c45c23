package transfer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	appinv "github.com/jhoicas/almacen-core/internal/application/inventory"
	"github.com/jhoicas/almacen-core/internal/domain"
	"github.com/jhoicas/almacen-core/internal/domain/entity"
	"github.com/jhoicas/almacen-core/internal/domain/repository"
)

// Orchestrator administra el ciclo de vida de los traslados programados:
// creación, cancelación, reclamo periódico hacia la cola (vía outbox) y
// ejecución tanto síncrona como encolada.
type Orchestrator struct {
	txRunner   appinv.TxRunner
	items      repository.ItemRepository
	warehouses repository.WarehouseRepository
	scheduled  repository.ScheduledTransferRepository
	notifier   appinv.Notifier
	now        func() time.Time
}

// NewOrchestrator construye el orquestador. notifier puede ser nil.
func NewOrchestrator(
	txRunner appinv.TxRunner,
	items repository.ItemRepository,
	warehouses repository.WarehouseRepository,
	scheduled repository.ScheduledTransferRepository,
	notifier appinv.Notifier,
) *Orchestrator {
	return &Orchestrator{
		txRunner:   txRunner,
		items:      items,
		warehouses: warehouses,
		scheduled:  scheduled,
		notifier:   notifier,
		now:        time.Now,
	}
}

// CreateInput entrada para programar un traslado diferido.
type CreateInput struct {
	ItemID          string
	Quantity        decimal.Decimal
	FromWarehouseID string
	ToWarehouseID   string
	ExecuteAt       time.Time
	Origin          string // MANUAL | AUTO
	UserID          string
}

// Create programa un traslado en estado PENDING.
func (o *Orchestrator) Create(ctx context.Context, in CreateInput) (*entity.ScheduledTransfer, error) {
	if !in.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return nil, domain.ErrSameWarehouse
	}
	if in.Origin != entity.TransferOriginManual && in.Origin != entity.TransferOriginAuto {
		return nil, domain.ErrInvalidInput
	}
	item, err := o.items.GetByID(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	for _, whID := range []string{in.FromWarehouseID, in.ToWarehouseID} {
		wh, err := o.warehouses.GetByID(ctx, whID)
		if err != nil {
			return nil, err
		}
		if wh == nil {
			return nil, domain.ErrNotFound
		}
	}

	now := o.now()
	st := &entity.ScheduledTransfer{
		ItemID:          in.ItemID,
		Quantity:        in.Quantity,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		ExecuteAt:       in.ExecuteAt,
		Status:          entity.TransferPending,
		Origin:          in.Origin,
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedBy:       in.UserID,
	}
	if err := o.scheduled.Create(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Cancel cancela un traslado solo mientras sigue PENDING. Una vez SENT, el
// job en vuelo no se retira: el guard de estado terminal del worker es la
// única salvaguarda contra una cancelación tardía.
func (o *Orchestrator) Cancel(ctx context.Context, id string) error {
	st, err := o.scheduled.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if st == nil {
		return domain.ErrNotFound
	}
	if !st.CanCancel() {
		return domain.ErrTransferNotPending
	}
	ok, err := o.scheduled.Cancel(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		// La fila dejó de estar PENDING entre la lectura y el update condicional.
		return domain.ErrTransferNotPending
	}
	return nil
}

// Get devuelve un traslado programado por id.
func (o *Orchestrator) Get(ctx context.Context, id string) (*entity.ScheduledTransfer, error) {
	st, err := o.scheduled.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, domain.ErrNotFound
	}
	return st, nil
}

// ListPendingAuto lista los traslados PENDING generados por reposición automática.
func (o *Orchestrator) ListPendingAuto(ctx context.Context, limit int) ([]*entity.ScheduledTransfer, error) {
	if limit <= 0 {
		limit = 100
	}
	return o.scheduled.ListPendingAuto(ctx, limit)
}

func (o *Orchestrator) notify(ctx context.Context, event string, fields map[string]string) {
	if o.notifier == nil {
		return
	}
	o.notifier.Notify(ctx, event, fields)
}
