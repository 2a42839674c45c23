package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/almacen-core/internal/domain/entity"
	"github.com/jhoicas/almacen-core/internal/domain/repository"
)

var _ repository.OutboxRepository = (*OutboxRepo)(nil)

// OutboxRepo implementación de OutboxRepository sobre PostgreSQL.
type OutboxRepo struct {
	q Querier
}

// NewOutboxRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOutboxRepository(q Querier) *OutboxRepo {
	return &OutboxRepo{q: q}
}

// Create inserta la intención de publicación. Genera ID si viene vacío.
func (r *OutboxRepo) Create(ctx context.Context, msg *entity.OutboxMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO outbox_messages (id, queue, payload)
		VALUES ($1, $2, $3)`,
		msg.ID, msg.Queue, msg.Payload,
	)
	if err != nil {
		return fmt.Errorf("create outbox message: %w", err)
	}
	return nil
}

// ListUndispatched lista mensajes aún no despachados, en orden de creación.
func (r *OutboxRepo) ListUndispatched(ctx context.Context, limit int) ([]*entity.OutboxMessage, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, queue, payload, created_at, dispatched_at
		FROM outbox_messages
		WHERE dispatched_at IS NULL
		ORDER BY created_at
		LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list outbox messages: %w", err)
	}
	defer rows.Close()
	var list []*entity.OutboxMessage
	for rows.Next() {
		var msg entity.OutboxMessage
		if err := rows.Scan(&msg.ID, &msg.Queue, &msg.Payload, &msg.CreatedAt, &msg.DispatchedAt); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		list = append(list, &msg)
	}
	return list, rows.Err()
}

// MarkDispatched marca el mensaje como ya publicado.
func (r *OutboxRepo) MarkDispatched(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE outbox_messages SET dispatched_at = now()
		WHERE id = $1 AND dispatched_at IS NULL`, id,
	)
	if err != nil {
		return fmt.Errorf("mark outbox dispatched: %w", err)
	}
	return nil
}
