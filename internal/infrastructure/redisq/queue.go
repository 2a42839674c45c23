package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Prefijos de claves: cola principal = lista, DLQ = lista pareada,
// colas de retraso = sorted sets por TTL (ver delay.go).
const (
	DLQPrefix      = "dlq:"
	registryKey    = "queues:declared"
	defaultPopWait = 5 * time.Second
)

// Message es el sobre durable de todo mensaje encolado. Attempts viaja en la
// metadata del mensaje, no en estado del broker, para que sobreviva
// republicaciones.
type Message struct {
	ID         string          `json:"id"`
	Attempts   int             `json:"attempts"`
	Body       json.RawMessage `json:"body"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Queue es el cliente de colas durables sobre listas de Redis.
type Queue struct {
	rdb *redis.Client
}

// NewQueue construye el cliente de colas.
func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// Declare registra la cola y declara su dead-letter queue pareada. Se invoca
// al arranque para cada cola principal; volver a declararla es inocuo.
func (q *Queue) Declare(ctx context.Context, queue string) error {
	if err := q.rdb.SAdd(ctx, registryKey, queue, DLQPrefix+queue).Err(); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	log.Debug().Str("queue", queue).Str("dlq", DLQPrefix+queue).Msg("cola declarada")
	return nil
}

// Publish encola un payload nuevo (attempts = 0).
func (q *Queue) Publish(ctx context.Context, queue string, payload []byte) error {
	return q.publish(ctx, queue, Message{
		ID:         uuid.New().String(),
		Attempts:   0,
		Body:       payload,
		EnqueuedAt: time.Now().UTC(),
	})
}

// Republish reencola un mensaje existente conservando su identidad y su
// contador de intentos actualizado.
func (q *Queue) Republish(ctx context.Context, queue string, msg Message) error {
	return q.publish(ctx, queue, msg)
}

func marshalMessage(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return data, nil
}

func (q *Queue) publish(ctx context.Context, queue string, msg Message) error {
	data, err := marshalMessage(msg)
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	return nil
}

// Pop espera hasta defaultPopWait por un mensaje (BRPOP); retorna nil sin
// error si no hubo ninguno, para que el consumidor re-chequee su contexto.
func (q *Queue) Pop(ctx context.Context, queue string) (*Message, error) {
	result, err := q.rdb.BRPop(ctx, defaultPopWait, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop from %s: %w", queue, err)
	}
	if len(result) < 2 {
		return nil, nil
	}
	var msg Message
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	return &msg, nil
}
