package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jhoicas/almacen-core/internal/domain"
	"github.com/jhoicas/almacen-core/internal/infrastructure/redisq"
)

// Handler procesa el cuerpo de un mensaje. Un error dispara la política de
// reintentos del consumidor; nil confirma el mensaje.
type Handler func(ctx context.Context, body []byte) error

// OnExhausted se invoca exactamente una vez cuando un mensaje agota sus
// reintentos, antes de moverlo a la DLQ.
type OnExhausted func(ctx context.Context, body []byte, attempts int, lastErr error)

// JobQueue es la porción de la cola durable que necesita el consumidor.
// *redisq.Queue la satisface.
type JobQueue interface {
	Pop(ctx context.Context, queue string) (*redisq.Message, error)
	Republish(ctx context.Context, queue string, msg redisq.Message) error
	DeadLetter(ctx context.Context, queue string, msg redisq.Message, reason string) error
}

// Delayer publica un mensaje en la cola de retraso del TTL dado.
// *redisq.DelayScheduler lo satisface.
type Delayer interface {
	Delay(ctx context.Context, queue string, ttl time.Duration, msg redisq.Message) error
}

// Consumer consume una cola durable con semántica at-least-once y aplica una
// RetryPolicy sobre los fallos del handler. Con retraso cero reencola de
// inmediato en la misma cola (contador en la metadata); con retraso positivo
// publica en la cola de retraso del TTL correspondiente, que enruta de vuelta
// a la principal al vencer. Los errores de validación (ErrInvalidInput) no se
// reintentan jamás: van directo a la DLQ.
type Consumer struct {
	queue       JobQueue
	delays      Delayer
	queueName   string
	handler     Handler
	policy      RetryPolicy
	onExhausted OnExhausted
}

// NewConsumer construye el consumidor. onExhausted puede ser nil.
func NewConsumer(queue JobQueue, delays Delayer, queueName string, handler Handler, policy RetryPolicy, onExhausted OnExhausted) *Consumer {
	return &Consumer{
		queue:       queue,
		delays:      delays,
		queueName:   queueName,
		handler:     handler,
		policy:      policy,
		onExhausted: onExhausted,
	}
}

// Run consume la cola hasta que el contexto se cancele. Lanzar varios Run en
// goroutines distintas da un pool de workers sobre la misma cola.
func (c *Consumer) Run(ctx context.Context) {
	log.Info().Str("queue", c.queueName).Msg("worker: consumidor iniciado")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("queue", c.queueName).Msg("worker: consumidor detenido")
			return
		default:
		}

		msg, err := c.queue.Pop(ctx, c.queueName)
		if err != nil {
			log.Error().Err(err).Str("queue", c.queueName).Msg("worker: fallo leyendo la cola")
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue
		}
		c.process(ctx, *msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg redisq.Message) {
	err := c.handler(ctx, msg.Body)
	if err == nil {
		return
	}

	msg.Attempts++
	if errors.Is(err, domain.ErrInvalidInput) {
		// Error de validación: ningún reintento lo arregla.
		c.reject(ctx, msg, err)
		return
	}
	delay, retry := c.policy.NextDelay(msg.Attempts)
	if !retry {
		c.reject(ctx, msg, err)
		return
	}

	log.Warn().Err(err).
		Str("queue", c.queueName).
		Str("message_id", msg.ID).
		Int("attempt", msg.Attempts).
		Dur("delay", delay).
		Msg("worker: fallo procesando, se reintenta")

	if delay <= 0 {
		if pubErr := c.queue.Republish(ctx, c.queueName, msg); pubErr != nil {
			log.Error().Err(pubErr).Str("message_id", msg.ID).Msg("worker: fallo reencolando")
		}
		return
	}
	if delErr := c.delays.Delay(ctx, c.queueName, delay, msg); delErr != nil {
		log.Error().Err(delErr).Str("message_id", msg.ID).Msg("worker: fallo retrasando mensaje")
	}
}

// reject es el rechazo permanente: el mensaje nunca se reencola de nuevo.
func (c *Consumer) reject(ctx context.Context, msg redisq.Message, err error) {
	if c.onExhausted != nil {
		c.onExhausted(ctx, msg.Body, msg.Attempts, err)
	}
	if dlqErr := c.queue.DeadLetter(ctx, c.queueName, msg, err.Error()); dlqErr != nil {
		log.Error().Err(dlqErr).Str("message_id", msg.ID).Msg("worker: fallo moviendo a DLQ")
	}
}
