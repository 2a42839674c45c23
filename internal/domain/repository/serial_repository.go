package repository

import (
	"context"

	"github.com/jhoicas/almacen-core/internal/domain/entity"
)

// SerialRepository acceso a seriales. El número es único por ítem; los
// seriales se crean en la primera recepción y nunca se eliminan.
type SerialRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Serial, error)
	GetByNumber(ctx context.Context, itemID, number string) (*entity.Serial, error)
	// GetOrCreate devuelve el serial (item, number) creándolo si no existe,
	// con asociación opcional a lote en la creación.
	GetOrCreate(ctx context.Context, itemID, number string, lotID *string) (*entity.Serial, error)
}
