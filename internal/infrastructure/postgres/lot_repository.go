package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/almacen-core/internal/domain/entity"
	"github.com/jhoicas/almacen-core/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

// LotRepo implementación de LotRepository sobre PostgreSQL.
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

const lotColumns = `id, item_id, code, expires_at, created_at`

func scanLot(row pgx.Row) (*entity.Lot, error) {
	var l entity.Lot
	err := row.Scan(&l.ID, &l.ItemID, &l.Code, &l.ExpiresAt, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan lot: %w", err)
	}
	return &l, nil
}

// GetByID obtiene un lote por id; nil si no existe.
func (r *LotRepo) GetByID(ctx context.Context, id string) (*entity.Lot, error) {
	return scanLot(r.q.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots WHERE id = $1`, id))
}

// GetByCode obtiene el lote (item, code); nil si no existe.
func (r *LotRepo) GetByCode(ctx context.Context, itemID, code string) (*entity.Lot, error) {
	return scanLot(r.q.QueryRow(ctx, `
		SELECT `+lotColumns+` FROM lots WHERE item_id = $1 AND code = $2`, itemID, code))
}

// GetOrCreate devuelve el lote (item, code), creándolo si no existe.
// ON CONFLICT DO NOTHING + relectura cubre la carrera de dos recepciones
// simultáneas del mismo lote nuevo.
func (r *LotRepo) GetOrCreate(ctx context.Context, itemID, code string, expiresAt *time.Time) (*entity.Lot, error) {
	lot, err := r.GetByCode(ctx, itemID, code)
	if err != nil {
		return nil, err
	}
	if lot != nil {
		return lot, nil
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO lots (id, item_id, code, expires_at, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (item_id, code) DO NOTHING`,
		uuid.New().String(), itemID, code, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}
	return r.GetByCode(ctx, itemID, code)
}

// ListByItem lista los lotes de un ítem.
func (r *LotRepo) ListByItem(ctx context.Context, itemID string) ([]*entity.Lot, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+lotColumns+` FROM lots WHERE item_id = $1 ORDER BY expires_at NULLS LAST, id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()
	var list []*entity.Lot
	for rows.Next() {
		var l entity.Lot
		if err := rows.Scan(&l.ID, &l.ItemID, &l.Code, &l.ExpiresAt, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}
