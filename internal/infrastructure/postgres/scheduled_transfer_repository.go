package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/almacen-core/internal/domain"
	"github.com/jhoicas/almacen-core/internal/domain/entity"
	"github.com/jhoicas/almacen-core/internal/domain/repository"
)

var _ repository.ScheduledTransferRepository = (*ScheduledTransferRepo)(nil)

// ScheduledTransferRepo implementación de ScheduledTransferRepository sobre PostgreSQL.
type ScheduledTransferRepo struct {
	q Querier
}

// NewScheduledTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewScheduledTransferRepository(q Querier) *ScheduledTransferRepo {
	return &ScheduledTransferRepo{q: q}
}

const scheduledColumns = `id, item_id, quantity, from_warehouse_id, to_warehouse_id,
	execute_at, status, origin, attempts, last_error, transfer_id, created_at, updated_at, created_by`

func scanScheduled(row pgx.Row) (*entity.ScheduledTransfer, error) {
	var st entity.ScheduledTransfer
	err := row.Scan(
		&st.ID, &st.ItemID, &st.Quantity, &st.FromWarehouseID, &st.ToWarehouseID,
		&st.ExecuteAt, &st.Status, &st.Origin, &st.Attempts, &st.LastError,
		&st.TransferID, &st.CreatedAt, &st.UpdatedAt, &st.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Create inserta un traslado programado. Genera ID si viene vacío.
func (r *ScheduledTransferRepo) Create(ctx context.Context, st *entity.ScheduledTransfer) error {
	if st.ID == "" {
		st.ID = uuid.New().String()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO scheduled_transfers
			(id, item_id, quantity, from_warehouse_id, to_warehouse_id,
			 execute_at, status, origin, attempts, last_error, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		st.ID, st.ItemID, st.Quantity, st.FromWarehouseID, st.ToWarehouseID,
		st.ExecuteAt, st.Status, st.Origin, st.Attempts, st.LastError, st.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("create scheduled transfer: %w", err)
	}
	return nil
}

// GetByID obtiene un traslado programado por su ID.
func (r *ScheduledTransferRepo) GetByID(ctx context.Context, id string) (*entity.ScheduledTransfer, error) {
	st, err := scanScheduled(r.q.QueryRow(ctx,
		`SELECT `+scheduledColumns+` FROM scheduled_transfers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get scheduled transfer: %w", err)
	}
	return st, nil
}

// ClaimDue reclama las filas PENDING con execute_at en [from, to] en una sola
// sentencia condicional (PENDING→SENT) y devuelve el conjunto reclamado. El
// UPDATE sobre el subquery garantiza que dos ticks solapados no reclamen la
// misma fila dos veces.
func (r *ScheduledTransferRepo) ClaimDue(ctx context.Context, from, to time.Time, limit int) ([]*entity.ScheduledTransfer, error) {
	rows, err := r.q.Query(ctx, `
		UPDATE scheduled_transfers
		SET status = $1, updated_at = now()
		WHERE id IN (
			SELECT id FROM scheduled_transfers
			WHERE status = $2 AND execute_at >= $3 AND execute_at <= $4
			ORDER BY execute_at
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+scheduledColumns,
		entity.TransferSent, entity.TransferPending, from, to, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim due transfers: %w", err)
	}
	defer rows.Close()
	var claimed []*entity.ScheduledTransfer
	for rows.Next() {
		st, err := scanScheduled(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claimed transfer: %w", err)
		}
		claimed = append(claimed, st)
	}
	return claimed, rows.Err()
}

// Cancel pasa la fila a CANCELED solo si sigue PENDING.
func (r *ScheduledTransferRepo) Cancel(ctx context.Context, id string) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE scheduled_transfers
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`,
		entity.TransferCanceled, id, entity.TransferPending,
	)
	if err != nil {
		return false, fmt.Errorf("cancel scheduled transfer: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkExecuted transición terminal con referencia al traslado realizado.
func (r *ScheduledTransferRepo) MarkExecuted(ctx context.Context, id, transferID string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE scheduled_transfers
		SET status = $1, transfer_id = $2, last_error = '', updated_at = now()
		WHERE id = $3`,
		entity.TransferExecuted, transferID, id,
	)
	if err != nil {
		return fmt.Errorf("mark transfer executed: %w", err)
	}
	return nil
}

// MarkFailed transición terminal tras agotar reintentos.
func (r *ScheduledTransferRepo) MarkFailed(ctx context.Context, id, lastError string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE scheduled_transfers
		SET status = $1, last_error = $2, updated_at = now()
		WHERE id = $3`,
		entity.TransferFailed, lastError, id,
	)
	if err != nil {
		return fmt.Errorf("mark transfer failed: %w", err)
	}
	return nil
}

// RecordFailure incrementa intentos y guarda el mensaje sin cambiar estado.
func (r *ScheduledTransferRepo) RecordFailure(ctx context.Context, id, message string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE scheduled_transfers
		SET attempts = attempts + 1, last_error = $1, updated_at = now()
		WHERE id = $2`,
		message, id,
	)
	if err != nil {
		return fmt.Errorf("record transfer failure: %w", err)
	}
	return nil
}

// ListPendingAuto lista las filas PENDING de origen AUTO.
func (r *ScheduledTransferRepo) ListPendingAuto(ctx context.Context, limit int) ([]*entity.ScheduledTransfer, error) {
	return r.list(ctx, `
		SELECT `+scheduledColumns+` FROM scheduled_transfers
		WHERE status = $1 AND origin = $2
		ORDER BY execute_at
		LIMIT $3`,
		entity.TransferPending, entity.TransferOriginAuto, limit)
}

// ListOverdue lista filas PENDING con execute_at vencido.
func (r *ScheduledTransferRepo) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*entity.ScheduledTransfer, error) {
	return r.list(ctx, `
		SELECT `+scheduledColumns+` FROM scheduled_transfers
		WHERE status = $1 AND execute_at < $2
		ORDER BY execute_at
		LIMIT $3`,
		entity.TransferPending, now, limit)
}

func (r *ScheduledTransferRepo) list(ctx context.Context, query string, args ...any) ([]*entity.ScheduledTransfer, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scheduled transfers: %w", err)
	}
	defer rows.Close()
	var list []*entity.ScheduledTransfer
	for rows.Next() {
		st, err := scanScheduled(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled transfer: %w", err)
		}
		list = append(list, st)
	}
	return list, rows.Err()
}
