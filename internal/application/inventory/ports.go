package inventory

import (
	"context"

	"github.com/jhoicas/almacen-core/internal/domain/repository"
)

// Repos agrupa los repositorios atados a una transacción en curso.
type Repos struct {
	Items     repository.ItemRepository
	Lots      repository.LotRepository
	Serials   repository.SerialRepository
	Snapshots repository.StockSnapshotRepository
	Events    repository.MovementEventRepository
	Scheduled repository.ScheduledTransferRepository
	Transfers repository.StockTransferRepository
	Outbox    repository.OutboxRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Garantiza atomicidad para el motor de
// movimientos y el orquestador de traslados.
type TxRunner interface {
	Run(ctx context.Context, fn func(r Repos) error) error
	// RunSerializable usa aislamiento SERIALIZABLE: dos operaciones
	// concurrentes sobre el mismo (ítem, bodega) no pueden observar ambas
	// balance suficiente y confirmar ambas; una aborta con ErrTxConflict y el
	// caller debe reintentarla.
	RunSerializable(ctx context.Context, fn func(r Repos) error) error
}

// Notifier colaborador de notificaciones best-effort: sus fallas se loguean
// y nunca bloquean un commit.
type Notifier interface {
	Notify(ctx context.Context, event string, fields map[string]string)
}
