package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-core/internal/domain/entity"
)

// ItemDTO representación HTTP de un ítem del catálogo.
type ItemDTO struct {
	ID           string          `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	TrackingMode string          `json:"tracking_mode"`
	TotalQty     decimal.Decimal `json:"total_qty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// FromItem mapea la entidad al DTO de respuesta.
func FromItem(it *entity.Item) ItemDTO {
	return ItemDTO{
		ID:           it.ID,
		SKU:          it.SKU,
		Name:         it.Name,
		TrackingMode: it.TrackingMode,
		TotalQty:     it.TotalQty,
		CreatedAt:    it.CreatedAt,
		UpdatedAt:    it.UpdatedAt,
	}
}

// WarehouseDTO representación HTTP de una bodega.
type WarehouseDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FromWarehouse mapea la entidad al DTO de respuesta.
func FromWarehouse(wh *entity.Warehouse) WarehouseDTO {
	return WarehouseDTO{ID: wh.ID, Name: wh.Name, Address: wh.Address, CreatedAt: wh.CreatedAt}
}

// LotDTO representación HTTP de un lote.
type LotDTO struct {
	ID        string     `json:"id"`
	ItemID    string     `json:"item_id"`
	Code      string     `json:"code"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// FromLot mapea la entidad al DTO de respuesta.
func FromLot(lot *entity.Lot) LotDTO {
	return LotDTO{ID: lot.ID, ItemID: lot.ItemID, Code: lot.Code, ExpiresAt: lot.ExpiresAt, CreatedAt: lot.CreatedAt}
}
