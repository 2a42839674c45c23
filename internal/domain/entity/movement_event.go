package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de evento de movimiento. TRANSF_OUT/TRANSF_IN siempre se crean en
// pareja dentro de la misma transacción, compartiendo TransactionID.
const (
	EventIN        = "IN"
	EventOUT       = "OUT"
	EventTransfIn  = "TRANSF_IN"
	EventTransfOut = "TRANSF_OUT"
	EventAdjust    = "ADJUST"
)

// MovementEvent es un registro inmutable del ledger: un cambio de cantidad
// de un ítem, con lote/serial opcionales y bodegas de origen/destino según
// el tipo. Quantity es siempre estrictamente positiva; el signo lo da Type.
type MovementEvent struct {
	ID              string
	TransactionID   string
	ItemID          string
	LotID           *string
	SerialID        *string
	FromWarehouseID *string
	ToWarehouseID   *string
	Type            string
	Quantity        decimal.Decimal
	RefTable        string
	RefID           string
	OccurredAt      time.Time
	CreatedAt       time.Time
	CreatedBy       string
}

// IsOutflow indica si el evento resta balance en su bodega. IN/TRANSF_IN
// suman en destino, OUT/TRANSF_OUT restan en origen; un ADJUST resta cuando
// lleva bodega de origen y suma cuando lleva destino.
func (m *MovementEvent) IsOutflow() bool {
	switch m.Type {
	case EventOUT, EventTransfOut:
		return true
	case EventAdjust:
		return m.FromWarehouseID != nil
	}
	return false
}

// SignedQuantity devuelve la cantidad con signo para agregaciones de balance.
func (m *MovementEvent) SignedQuantity() decimal.Decimal {
	if m.IsOutflow() {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// WarehouseID devuelve la bodega afectada por el evento: origen para
// salidas, destino para entradas.
func (m *MovementEvent) WarehouseID() string {
	if m.IsOutflow() {
		if m.FromWarehouseID != nil {
			return *m.FromWarehouseID
		}
		return ""
	}
	if m.ToWarehouseID != nil {
		return *m.ToWarehouseID
	}
	return ""
}
