package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Modos de trazabilidad de un ítem.
const (
	TrackingNone   = "NONE"   // sin trazabilidad: solo cantidades
	TrackingLot    = "LOT"    // por lote (código + vencimiento opcional)
	TrackingSerial = "SERIAL" // por número de serie (unidades individuales)
)

// Item representa un equipo o insumo administrado por el inventario.
// TotalQty es un agregado denormalizado sobre todas las bodegas.
type Item struct {
	ID           string
	SKU          string
	Name         string
	TrackingMode string // NONE, LOT, SERIAL
	TotalQty     decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsValidTrackingMode indica si el modo de trazabilidad es uno de los soportados.
func IsValidTrackingMode(mode string) bool {
	switch mode {
	case TrackingNone, TrackingLot, TrackingSerial:
		return true
	}
	return false
}
