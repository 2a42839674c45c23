package redisq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

// DLQEntry envuelve un mensaje agotado con metadata para depuración manual.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	MessageID     string          `json:"message_id"`
	Body          json.RawMessage `json:"body"`
	Reason        string          `json:"reason"`
	Attempts      int             `json:"attempts"`
	FailedAt      string          `json:"failed_at"` // ISO 8601
}

// DeadLetter mueve un mensaje agotado a la DLQ de su cola, exactamente una
// vez: el mensaje rechazado no vuelve a reencolarse jamás.
func (q *Queue) DeadLetter(ctx context.Context, queue string, msg Message, reason string) error {
	entry := DLQEntry{
		OriginalQueue: queue,
		MessageID:     msg.ID,
		Body:          msg.Body,
		Reason:        reason,
		Attempts:      msg.Attempts,
		FailedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, DLQPrefix+queue, data).Err(); err != nil {
		return err
	}
	log.Warn().
		Str("queue", queue).
		Str("message_id", msg.ID).
		Str("reason", reason).
		Int("attempts", msg.Attempts).
		Msg("mensaje movido a la dead-letter queue")
	return nil
}

// DLQLength largo de la DLQ de una cola, para monitoreo.
func (q *Queue) DLQLength(ctx context.Context, queue string) (int64, error) {
	return q.rdb.LLen(ctx, DLQPrefix+queue).Result()
}
