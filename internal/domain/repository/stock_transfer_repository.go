package repository

import (
	"context"

	"github.com/jhoicas/almacen-core/internal/domain/entity"
)

// StockTransferRepository acceso a traslados realizados.
type StockTransferRepository interface {
	Create(ctx context.Context, tr *entity.StockTransfer) error
	GetByID(ctx context.Context, id string) (*entity.StockTransfer, error)
}
