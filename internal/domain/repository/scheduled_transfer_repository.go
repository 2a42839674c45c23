package repository

import (
	"context"
	"time"

	"github.com/jhoicas/almacen-core/internal/domain/entity"
)

// ScheduledTransferRepository acceso a traslados programados.
type ScheduledTransferRepository interface {
	Create(ctx context.Context, st *entity.ScheduledTransfer) error
	GetByID(ctx context.Context, id string) (*entity.ScheduledTransfer, error)
	// ClaimDue reclama atómicamente las filas PENDING con execute_at dentro
	// de la ventana [from, to], marcándolas SENT en una sola sentencia
	// condicional y devolviendo el conjunto reclamado. Dos ticks solapados no
	// pueden reclamar la misma fila dos veces.
	ClaimDue(ctx context.Context, from, to time.Time, limit int) ([]*entity.ScheduledTransfer, error)
	// Cancel pasa la fila a CANCELED solo si sigue PENDING; retorna false si
	// ya fue reclamada o es terminal.
	Cancel(ctx context.Context, id string) (bool, error)
	// MarkExecuted transición terminal con referencia al traslado realizado.
	MarkExecuted(ctx context.Context, id, transferID string) error
	// MarkFailed transición terminal tras agotar reintentos.
	MarkFailed(ctx context.Context, id, lastError string) error
	// RecordFailure incrementa el contador de intentos y guarda el mensaje,
	// sin cambiar el estado: la fila queda inspeccionable y re-ejecutable.
	RecordFailure(ctx context.Context, id, message string) error
	// ListPendingAuto lista las filas PENDING de origen AUTO.
	ListPendingAuto(ctx context.Context, limit int) ([]*entity.ScheduledTransfer, error)
	// ListOverdue lista filas PENDING con execute_at vencido, para la
	// ejecución manual por lotes que evita la cola.
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]*entity.ScheduledTransfer, error)
}
