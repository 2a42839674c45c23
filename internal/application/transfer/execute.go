package transfer

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	appinv "github.com/jhoicas/almacen-core/internal/application/inventory"
	"github.com/jhoicas/almacen-core/internal/domain"
	"github.com/jhoicas/almacen-core/internal/domain/entity"
	dominv "github.com/jhoicas/almacen-core/internal/domain/inventory"
)

// ExecuteNow ejecuta un traslado programado inmediatamente, evitando la cola
// ("run now"). Solo aplica a filas PENDING. Los errores de consistencia se
// registran en la fila (intentos + mensaje) y además se devuelven al caller
// interactivo.
func (o *Orchestrator) ExecuteNow(ctx context.Context, id, userID string) error {
	st, err := o.scheduled.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if st == nil {
		return domain.ErrNotFound
	}
	if st.Status != entity.TransferPending {
		return domain.ErrTransferNotPending
	}
	return o.executeSync(ctx, st, userID)
}

// ExecuteOverdueBatch ejecuta en lote las filas PENDING cuyo execute_at ya
// venció, evitando la cola. Los fallos de una fila no detienen el lote: se
// registran en la fila y el lote continúa. Devuelve cuántas se ejecutaron.
func (o *Orchestrator) ExecuteOverdueBatch(ctx context.Context, userID string, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := o.scheduled.ListOverdue(ctx, o.now(), limit)
	if err != nil {
		return 0, err
	}
	executed := 0
	for _, st := range rows {
		if err := o.executeSync(ctx, st, userID); err != nil {
			log.Warn().Err(err).Str("scheduled_id", st.ID).
				Msg("traslado vencido no ejecutado, queda registrado en la fila")
			continue
		}
		executed++
	}
	return executed, nil
}

// executeSync aplica la ruta síncrona según el modo de trazabilidad del ítem:
// NONE traslado directo; LOT asignación FEFO y un traslado por lote consumido
// en una sola unidad atómica, con un StockTransfer consolidado; SERIAL no
// soporta ejecución automática y se rechaza con código de motivo, dejando la
// fila PENDING para intervención manual.
func (o *Orchestrator) executeSync(ctx context.Context, st *entity.ScheduledTransfer, userID string) error {
	item, err := o.items.GetByID(ctx, st.ItemID)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrNotFound
	}

	if item.TrackingMode == entity.TrackingSerial {
		if rerr := o.scheduled.RecordFailure(ctx, st.ID, domain.ReasonSerialAutoUnsupported); rerr != nil {
			return rerr
		}
		return domain.ErrSerialAutoUnsupported
	}

	now := o.now()
	ref := appinv.Ref{Table: "scheduled_transfer", ID: st.ID}

	err = o.txRunner.RunSerializable(ctx, func(r appinv.Repos) error {
		switch item.TrackingMode {
		case entity.TrackingNone:
			if err := appinv.TransferInTx(ctx, r, appinv.TransferTxInput{
				ItemID:          st.ItemID,
				Quantity:        st.Quantity,
				FromWarehouseID: st.FromWarehouseID,
				ToWarehouseID:   st.ToWarehouseID,
				Ref:             ref,
				UserID:          userID,
				Now:             now,
			}); err != nil {
				return err
			}
		case entity.TrackingLot:
			balances, err := r.Events.AggregateLotBalances(ctx, st.ItemID, st.FromWarehouseID)
			if err != nil {
				return err
			}
			allocs, err := dominv.Pick(st.ItemID, st.FromWarehouseID, balances, st.Quantity, false, now)
			if err != nil {
				return err
			}
			// Un traslado por lote consumido, todos en esta misma transacción.
			for _, alloc := range allocs {
				lotID := alloc.LotID
				if err := appinv.TransferInTx(ctx, r, appinv.TransferTxInput{
					ItemID:          st.ItemID,
					Quantity:        alloc.Quantity,
					FromWarehouseID: st.FromWarehouseID,
					ToWarehouseID:   st.ToWarehouseID,
					LotID:           &lotID,
					Ref:             ref,
					UserID:          userID,
					Now:             now,
				}); err != nil {
					return err
				}
			}
		default:
			return domain.ErrTrackingMode
		}

		tr := &entity.StockTransfer{
			ID:              uuid.New().String(),
			ItemID:          st.ItemID,
			Quantity:        st.Quantity,
			FromWarehouseID: st.FromWarehouseID,
			ToWarehouseID:   st.ToWarehouseID,
			ExecutedAt:      now,
			CreatedBy:       userID,
		}
		if err := r.Transfers.Create(ctx, tr); err != nil {
			return err
		}
		return r.Scheduled.MarkExecuted(ctx, st.ID, tr.ID)
	})
	if err != nil {
		// Error de consistencia o de concurrencia: registrar en la fila sin
		// cambiar el estado, para que quede inspeccionable y re-ejecutable.
		if rerr := o.scheduled.RecordFailure(ctx, st.ID, err.Error()); rerr != nil {
			log.Error().Err(rerr).Str("scheduled_id", st.ID).Msg("no se pudo registrar el fallo")
		}
		return err
	}

	o.notify(ctx, "transfer.executed", map[string]string{"scheduled_id": st.ID})
	return nil
}

// HandleJob procesa un job de la cola. Relee la fila: si ya es terminal
// (ejecutada, cancelada o fallida) el job es un no-op — única protección
// contra redeliveries de una cola at-least-once. Si no, en una transacción
// SERIALIZABLE hace el decremento condicionado del snapshot de origen (solo
// si la cantidad actual cubre lo pedido), suma en destino, inserta la pareja
// de eventos del ledger, registra el StockTransfer y pasa la fila a EXECUTED.
func (o *Orchestrator) HandleJob(ctx context.Context, payload []byte) error {
	job, err := DecodeJob(payload)
	if err != nil {
		// Payload malformado: no hay reintento que lo arregle.
		return errors.Join(domain.ErrInvalidInput, err)
	}
	st, err := o.scheduled.GetByID(ctx, job.ScheduledID)
	if err != nil {
		return err
	}
	if st == nil {
		return domain.ErrNotFound
	}
	if st.IsTerminal() {
		log.Debug().Str("scheduled_id", st.ID).Str("status", st.Status).
			Msg("worker: redelivery sobre fila terminal, no-op")
		return nil
	}

	now := o.now()
	err = o.txRunner.RunSerializable(ctx, func(r appinv.Repos) error {
		ok, err := r.Snapshots.DecrementGuarded(ctx, st.ItemID, st.FromWarehouseID, st.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			snap, gerr := r.Snapshots.Get(ctx, st.ItemID, st.FromWarehouseID)
			if gerr != nil {
				return gerr
			}
			return &domain.InsufficientBalanceError{
				ItemID:      st.ItemID,
				WarehouseID: st.FromWarehouseID,
				Requested:   st.Quantity,
				Available:   snap.Quantity,
			}
		}
		if err := r.Snapshots.Increment(ctx, st.ItemID, st.ToWarehouseID, st.Quantity); err != nil {
			return err
		}

		txID := uuid.New().String()
		ref := appinv.Ref{Table: "scheduled_transfer", ID: st.ID}
		for _, evType := range []string{entity.EventTransfOut, entity.EventTransfIn} {
			ev := &entity.MovementEvent{
				TransactionID:   txID,
				ItemID:          st.ItemID,
				FromWarehouseID: &st.FromWarehouseID,
				ToWarehouseID:   &st.ToWarehouseID,
				Type:            evType,
				Quantity:        st.Quantity,
				RefTable:        ref.Table,
				RefID:           ref.ID,
				OccurredAt:      now,
				CreatedAt:       now,
				CreatedBy:       st.CreatedBy,
			}
			if err := r.Events.Create(ctx, ev); err != nil {
				return err
			}
		}

		tr := &entity.StockTransfer{
			ID:              uuid.New().String(),
			ItemID:          st.ItemID,
			Quantity:        st.Quantity,
			FromWarehouseID: st.FromWarehouseID,
			ToWarehouseID:   st.ToWarehouseID,
			ExecutedAt:      now,
			CreatedBy:       st.CreatedBy,
		}
		if err := r.Transfers.Create(ctx, tr); err != nil {
			return err
		}
		return r.Scheduled.MarkExecuted(ctx, st.ID, tr.ID)
	})
	if err != nil {
		if rerr := o.scheduled.RecordFailure(ctx, st.ID, err.Error()); rerr != nil {
			log.Error().Err(rerr).Str("scheduled_id", st.ID).Msg("no se pudo registrar el fallo")
		}
		return err
	}

	o.notify(ctx, "transfer.executed", map[string]string{"scheduled_id": st.ID})
	return nil
}

// FailPermanently marca la fila FAILED tras agotar los reintentos del worker;
// el mensaje va a la dead-letter queue para inspección manual.
func (o *Orchestrator) FailPermanently(ctx context.Context, payload []byte, lastErr string) {
	job, err := DecodeJob(payload)
	if err != nil {
		log.Error().Err(err).Msg("payload ilegible al marcar FAILED")
		return
	}
	if err := o.scheduled.MarkFailed(ctx, job.ScheduledID, lastErr); err != nil {
		log.Error().Err(err).Str("scheduled_id", job.ScheduledID).Msg("no se pudo marcar FAILED")
	}
}
