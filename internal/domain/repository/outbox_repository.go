package repository

import (
	"context"

	"github.com/jhoicas/almacen-core/internal/domain/entity"
)

// OutboxRepository acceso a la bandeja de salida de mensajes. La intención se
// escribe en la misma transacción local que reclama el traslado; el relay la
// publica después de forma idempotente.
type OutboxRepository interface {
	Create(ctx context.Context, msg *entity.OutboxMessage) error
	// ListUndispatched lista mensajes aún no publicados, en orden de creación.
	ListUndispatched(ctx context.Context, limit int) ([]*entity.OutboxMessage, error)
	MarkDispatched(ctx context.Context, id string) error
}
