package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiveRequest cuerpo para registrar una recepción de stock.
// LotCode/LotExpiresAt aplican a ítems LOT; SerialNumber a ítems SERIAL.
type ReceiveRequest struct {
	ItemID       string          `json:"item_id"`
	WarehouseID  string          `json:"warehouse_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	LotCode      string          `json:"lot_code,omitempty"`
	LotExpiresAt *time.Time      `json:"lot_expires_at,omitempty"`
	SerialNumber string          `json:"serial_number,omitempty"`
	RefTable     string          `json:"ref_table,omitempty"`
	RefID        string          `json:"ref_id,omitempty"`
}

// TransferRequest cuerpo para un traslado inmediato entre bodegas.
type TransferRequest struct {
	ItemID          string          `json:"item_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	FromWarehouseID string          `json:"from_warehouse_id"`
	ToWarehouseID   string          `json:"to_warehouse_id"`
	LotCode         string          `json:"lot_code,omitempty"`
	SerialNumber    string          `json:"serial_number,omitempty"`
	RefTable        string          `json:"ref_table,omitempty"`
	RefID           string          `json:"ref_id,omitempty"`
}

// IssueFEFORequest cuerpo para emitir stock de un ítem por lote vía FEFO.
type IssueFEFORequest struct {
	ItemID       string          `json:"item_id"`
	WarehouseID  string          `json:"warehouse_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	AllowExpired bool            `json:"allow_expired,omitempty"`
	RefTable     string          `json:"ref_table,omitempty"`
	RefID        string          `json:"ref_id,omitempty"`
}

// IssueSerialRequest cuerpo para emitir una unidad serializada.
type IssueSerialRequest struct {
	ItemID       string `json:"item_id"`
	WarehouseID  string `json:"warehouse_id"`
	SerialNumber string `json:"serial_number"`
	RefTable     string `json:"ref_table,omitempty"`
	RefID        string `json:"ref_id,omitempty"`
}

// AllocationDTO un lote consumido (o sugerido) por una emisión FEFO.
type AllocationDTO struct {
	LotID    string          `json:"lot_id"`
	LotCode  string          `json:"lot_code"`
	Quantity decimal.Decimal `json:"quantity"`
}

// LotBalanceDTO balance neto de un lote en una bodega, en orden FEFO.
type LotBalanceDTO struct {
	LotID     string          `json:"lot_id"`
	LotCode   string          `json:"lot_code"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
}

// DriftDTO discrepancia snapshot/ledger detectada por la reconciliación.
type DriftDTO struct {
	ItemID      string          `json:"item_id"`
	WarehouseID string          `json:"warehouse_id"`
	Snapshot    decimal.Decimal `json:"snapshot"`
	Ledger      decimal.Decimal `json:"ledger"`
}

// CreateItemRequest cuerpo para crear un ítem del catálogo.
type CreateItemRequest struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	TrackingMode string `json:"tracking_mode"` // NONE | LOT | SERIAL
}

// CreateWarehouseRequest cuerpo para crear una bodega.
type CreateWarehouseRequest struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}
