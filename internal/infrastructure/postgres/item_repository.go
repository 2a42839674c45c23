package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-core/internal/domain"
	"github.com/jhoicas/almacen-core/internal/domain/entity"
	"github.com/jhoicas/almacen-core/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo implementación de ItemRepository sobre PostgreSQL (usable con pool o tx).
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

const itemColumns = `id, sku, name, tracking_mode, total_qty, created_at, updated_at`

func scanItem(row pgx.Row) (*entity.Item, error) {
	var it entity.Item
	err := row.Scan(&it.ID, &it.SKU, &it.Name, &it.TrackingMode, &it.TotalQty, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}
	return &it, nil
}

// GetByID obtiene un ítem por id; nil si no existe.
func (r *ItemRepo) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	return scanItem(r.q.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
}

// GetBySKU obtiene un ítem por SKU; nil si no existe.
func (r *ItemRepo) GetBySKU(ctx context.Context, sku string) (*entity.Item, error) {
	return scanItem(r.q.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE sku = $1`, sku))
}

// Create persiste un ítem nuevo.
func (r *ItemRepo) Create(ctx context.Context, item *entity.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
		item.UpdatedAt = now
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO items (id, sku, name, tracking_mode, total_qty, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.ID, item.SKU, item.Name, item.TrackingMode, item.TotalQty, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// AddToTotalQty ajusta el agregado denormalizado de cantidad total.
func (r *ItemRepo) AddToTotalQty(ctx context.Context, itemID string, delta decimal.Decimal) error {
	_, err := r.q.Exec(ctx, `
		UPDATE items SET total_qty = total_qty + $2, updated_at = now() WHERE id = $1`,
		itemID, delta,
	)
	if err != nil {
		return fmt.Errorf("add to total qty: %w", err)
	}
	return nil
}
