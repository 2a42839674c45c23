package worker

// runner.go
// Goroutines de fondo del pipeline de traslados programados: el scheduler que
// reclama filas vencidas hacia la outbox, el relay que la drena a la cola, y
// el promotor de colas de retraso. Cada una es un ticker respetuoso del
// contexto para apagado limpio.

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jhoicas/almacen-core/internal/application/transfer"
	"github.com/jhoicas/almacen-core/internal/infrastructure/redisq"
)

// StartScheduler lanza el tick periódico del scheduler. window es el
// horizonte de reclamo de cada tick (normalmente igual al intervalo).
func StartScheduler(ctx context.Context, orch *transfer.Orchestrator, interval time.Duration, batchSize int) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		log.Info().Dur("interval", interval).Msg("scheduler: iniciado")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("scheduler: detenido")
				return
			case <-ticker.C:
				if _, err := orch.ClaimAndEnqueue(ctx, interval, batchSize); err != nil {
					log.Error().Err(err).Msg("scheduler: tick con error")
				}
			}
		}
	}()
}

// StartRelay lanza el drenado periódico de la outbox hacia la cola.
func StartRelay(ctx context.Context, relay *transfer.Relay, interval time.Duration, batchSize int) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		log.Info().Dur("interval", interval).Msg("relay: iniciado")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("relay: detenido")
				return
			case <-ticker.C:
				if _, err := relay.RunOnce(ctx, batchSize); err != nil {
					log.Error().Err(err).Msg("relay: ciclo con error")
				}
			}
		}
	}()
}

// StartPromoter lanza la promoción periódica de mensajes retrasados vencidos
// de vuelta a sus colas principales.
func StartPromoter(ctx context.Context, delays *redisq.DelayScheduler, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		log.Info().Dur("interval", interval).Msg("promoter: iniciado")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("promoter: detenido")
				return
			case <-ticker.C:
				if _, err := delays.Promote(ctx); err != nil {
					log.Error().Err(err).Msg("promoter: ciclo con error")
				}
			}
		}
	}()
}

// StartTransferWorkers lanza el pool de consumidores de la cola de traslados
// con la política de reintentos configurada; al agotar intentos la fila pasa
// a FAILED y el mensaje queda en la DLQ.
func StartTransferWorkers(ctx context.Context, queue *redisq.Queue, delays *redisq.DelayScheduler, orch *transfer.Orchestrator, numWorkers int, policy RetryPolicy) {
	consumer := NewConsumer(queue, delays, transfer.QueueTransfers, orch.HandleJob, policy,
		func(ctx context.Context, body []byte, attempts int, lastErr error) {
			orch.FailPermanently(ctx, body, lastErr.Error())
		})
	for i := 0; i < numWorkers; i++ {
		go consumer.Run(ctx)
	}
	log.Info().Int("workers", numWorkers).Msg("worker pool de traslados iniciado")
}
