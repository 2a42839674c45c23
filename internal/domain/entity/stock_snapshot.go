package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockSnapshot es el balance materializado de un ítem en una bodega.
// Es una proyección del ledger: solo se muta dentro de la misma transacción
// que inserta los movimientos, de modo que snapshot y ledger no divergen.
type StockSnapshot struct {
	ItemID      string
	WarehouseID string
	Quantity    decimal.Decimal
	UpdatedAt   time.Time
}
