package repository

import (
	"context"
	"time"

	"github.com/jhoicas/almacen-core/internal/domain/entity"
)

// LotRepository acceso a lotes. Los lotes se crean en la primera recepción
// (GetOrCreate) y nunca se eliminan.
type LotRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Lot, error)
	GetByCode(ctx context.Context, itemID, code string) (*entity.Lot, error)
	// GetOrCreate devuelve el lote (item, code) creándolo si no existe.
	// expiresAt solo aplica en la creación; un lote existente no se modifica.
	GetOrCreate(ctx context.Context, itemID, code string, expiresAt *time.Time) (*entity.Lot, error)
	ListByItem(ctx context.Context, itemID string) ([]*entity.Lot, error)
}
