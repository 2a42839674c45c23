package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	appinv "github.com/jhoicas/almacen-core/internal/application/inventory"
	"github.com/jhoicas/almacen-core/internal/domain/entity"
)

// ClaimAndEnqueue es un tick del scheduler: en una sola transacción local
// reclama las filas PENDING con execute_at dentro de [now, now+window]
// (update condicional, no hay carrera entre ticks solapados) y escribe una
// fila de outbox por cada una. La publicación a la cola la hace el relay
// después; no existe el hueco "marcada SENT pero publish falló".
func (o *Orchestrator) ClaimAndEnqueue(ctx context.Context, window time.Duration, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	now := o.now()
	claimed := 0

	err := o.txRunner.Run(ctx, func(r appinv.Repos) error {
		rows, err := r.Scheduled.ClaimDue(ctx, now, now.Add(window), batchSize)
		if err != nil {
			return err
		}
		for _, st := range rows {
			payload, err := Job{ScheduledID: st.ID}.Encode()
			if err != nil {
				return fmt.Errorf("encode job %s: %w", st.ID, err)
			}
			msg := &entity.OutboxMessage{
				Queue:     QueueTransfers,
				Payload:   payload,
				CreatedAt: now,
			}
			if err := r.Outbox.Create(ctx, msg); err != nil {
				return err
			}
		}
		claimed = len(rows)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if claimed > 0 {
		log.Info().Int("claimed", claimed).Msg("scheduler: traslados reclamados y encolados en outbox")
	}
	return claimed, nil
}

// Relay publica los mensajes de outbox pendientes a la cola y los marca
// despachados. Es idempotente hacia adelante: si el proceso muere entre
// publicar y marcar, la republicación posterior es un no-op para el worker.
type Relay struct {
	outbox    OutboxReader
	publisher Publisher
}

// OutboxReader es la porción de outbox que necesita el relay (sin transacción).
type OutboxReader interface {
	ListUndispatched(ctx context.Context, limit int) ([]*entity.OutboxMessage, error)
	MarkDispatched(ctx context.Context, id string) error
}

// Publisher publica un payload en una cola durable.
type Publisher interface {
	Publish(ctx context.Context, queue string, payload []byte) error
}

// NewRelay construye el relay de outbox.
func NewRelay(outbox OutboxReader, publisher Publisher) *Relay {
	return &Relay{outbox: outbox, publisher: publisher}
}

// RunOnce drena un lote de mensajes no despachados.
func (rl *Relay) RunOnce(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	msgs, err := rl.outbox.ListUndispatched(ctx, batchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, msg := range msgs {
		if err := rl.publisher.Publish(ctx, msg.Queue, msg.Payload); err != nil {
			// El mensaje queda en la outbox y se reintenta en el próximo ciclo.
			log.Error().Err(err).Str("outbox_id", msg.ID).Str("queue", msg.Queue).
				Msg("relay: fallo publicando, se reintenta")
			return sent, err
		}
		if err := rl.outbox.MarkDispatched(ctx, msg.ID); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
