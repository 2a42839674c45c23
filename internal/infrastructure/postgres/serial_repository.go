package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/almacen-core/internal/domain/entity"
	"github.com/jhoicas/almacen-core/internal/domain/repository"
)

var _ repository.SerialRepository = (*SerialRepo)(nil)

// SerialRepo implementación de SerialRepository sobre PostgreSQL.
type SerialRepo struct {
	q Querier
}

// NewSerialRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSerialRepository(q Querier) *SerialRepo {
	return &SerialRepo{q: q}
}

const serialColumns = `id, item_id, number, lot_id, created_at`

func scanSerial(row pgx.Row) (*entity.Serial, error) {
	var s entity.Serial
	err := row.Scan(&s.ID, &s.ItemID, &s.Number, &s.LotID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan serial: %w", err)
	}
	return &s, nil
}

// GetByID obtiene un serial por id; nil si no existe.
func (r *SerialRepo) GetByID(ctx context.Context, id string) (*entity.Serial, error) {
	return scanSerial(r.q.QueryRow(ctx, `SELECT `+serialColumns+` FROM serials WHERE id = $1`, id))
}

// GetByNumber obtiene el serial (item, number); nil si no existe.
func (r *SerialRepo) GetByNumber(ctx context.Context, itemID, number string) (*entity.Serial, error) {
	return scanSerial(r.q.QueryRow(ctx, `
		SELECT `+serialColumns+` FROM serials WHERE item_id = $1 AND number = $2`, itemID, number))
}

// GetOrCreate devuelve el serial (item, number), creándolo si no existe.
func (r *SerialRepo) GetOrCreate(ctx context.Context, itemID, number string, lotID *string) (*entity.Serial, error) {
	serial, err := r.GetByNumber(ctx, itemID, number)
	if err != nil {
		return nil, err
	}
	if serial != nil {
		return serial, nil
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO serials (id, item_id, number, lot_id, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (item_id, number) DO NOTHING`,
		uuid.New().String(), itemID, number, lotID,
	)
	if err != nil {
		return nil, fmt.Errorf("create serial: %w", err)
	}
	return r.GetByNumber(ctx, itemID, number)
}
