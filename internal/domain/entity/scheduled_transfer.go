package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un traslado programado. Las transiciones son monótonas:
// PENDING→SENT→{EXECUTED|FAILED}, o PENDING→CANCELED antes de SENT.
const (
	TransferPending  = "PENDING"
	TransferSent     = "SENT"
	TransferExecuted = "EXECUTED"
	TransferFailed   = "FAILED"
	TransferCanceled = "CANCELED"
)

// Origen del traslado programado: creado a mano o generado por reposición automática.
const (
	TransferOriginManual = "MANUAL"
	TransferOriginAuto   = "AUTO"
)

// ScheduledTransfer es un traslado diferido a una fecha futura. El scheduler
// lo reclama (SENT) y lo publica a la cola; el worker lo ejecuta (EXECUTED)
// o lo agota (FAILED). Attempts y LastError dejan la fila inspeccionable.
type ScheduledTransfer struct {
	ID              string
	ItemID          string
	Quantity        decimal.Decimal
	FromWarehouseID string
	ToWarehouseID   string
	ExecuteAt       time.Time
	Status          string
	Origin          string // MANUAL | AUTO
	Attempts        int
	LastError       string
	TransferID      *string // StockTransfer realizado, al ejecutarse
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CreatedBy       string
}

// IsTerminal indica si el estado no admite más transiciones.
func (t *ScheduledTransfer) IsTerminal() bool {
	switch t.Status {
	case TransferExecuted, TransferFailed, TransferCanceled:
		return true
	}
	return false
}

// CanCancel indica si el traslado aún puede cancelarse (solo mientras PENDING;
// una vez SENT el job en vuelo no se retira, lo neutraliza el guard del worker).
func (t *ScheduledTransfer) CanCancel() bool {
	return t.Status == TransferPending
}
