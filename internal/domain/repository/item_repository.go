package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-core/internal/domain/entity"
)

// ItemRepository acceso a ítems del catálogo.
type ItemRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Item, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Item, error)
	Create(ctx context.Context, item *entity.Item) error
	// AddToTotalQty ajusta el agregado denormalizado de cantidad total del ítem.
	AddToTotalQty(ctx context.Context, itemID string, delta decimal.Decimal) error
}
