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

var _ repository.WarehouseRepository = (*WarehouseRepo)(nil)

// WarehouseRepo implementación de WarehouseRepository sobre PostgreSQL.
type WarehouseRepo struct {
	q Querier
}

// NewWarehouseRepository construye el adaptador. Pasar pool o tx (Querier).
func NewWarehouseRepository(q Querier) *WarehouseRepo {
	return &WarehouseRepo{q: q}
}

// GetByID obtiene una bodega por id; nil si no existe.
func (r *WarehouseRepo) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	var wh entity.Warehouse
	err := r.q.QueryRow(ctx, `
		SELECT id, name, address, created_at FROM warehouses WHERE id = $1`, id).
		Scan(&wh.ID, &wh.Name, &wh.Address, &wh.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get warehouse: %w", err)
	}
	return &wh, nil
}

// Create persiste una bodega.
func (r *WarehouseRepo) Create(ctx context.Context, wh *entity.Warehouse) error {
	if wh.ID == "" {
		wh.ID = uuid.New().String()
	}
	if wh.CreatedAt.IsZero() {
		wh.CreatedAt = time.Now()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO warehouses (id, name, address, created_at) VALUES ($1, $2, $3, $4)`,
		wh.ID, wh.Name, wh.Address, wh.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create warehouse: %w", err)
	}
	return nil
}

// List lista todas las bodegas.
func (r *WarehouseRepo) List(ctx context.Context) ([]*entity.Warehouse, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, address, created_at FROM warehouses ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	defer rows.Close()
	var list []*entity.Warehouse
	for rows.Next() {
		var wh entity.Warehouse
		if err := rows.Scan(&wh.ID, &wh.Name, &wh.Address, &wh.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan warehouse: %w", err)
		}
		list = append(list, &wh)
	}
	return list, rows.Err()
}
