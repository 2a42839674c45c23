package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockTransfer es el registro de un traslado realizado entre bodegas.
// Un traslado programado ejecutado referencia exactamente uno; la ejecución
// manual por lotes (FEFO) consolida todos los lotes consumidos en uno solo.
type StockTransfer struct {
	ID              string
	ItemID          string
	Quantity        decimal.Decimal
	FromWarehouseID string
	ToWarehouseID   string
	ExecutedAt      time.Time
	CreatedBy       string
}
