package repository

import (
	"context"

	"github.com/jhoicas/almacen-core/internal/domain/entity"
)

// WarehouseRepository acceso a bodegas.
type WarehouseRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Warehouse, error)
	Create(ctx context.Context, wh *entity.Warehouse) error
	List(ctx context.Context) ([]*entity.Warehouse, error)
}
