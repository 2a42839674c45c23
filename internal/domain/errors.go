package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound              = errors.New("recurso no encontrado")
	ErrInvalidInput          = errors.New("entrada inválida")
	ErrDuplicate             = errors.New("recurso duplicado")
	ErrSameWarehouse         = errors.New("bodega origen y destino deben ser distintas")
	ErrTrackingMode          = errors.New("lote/serial no corresponde al modo de trazabilidad del ítem")
	ErrExpiredLot            = errors.New("el lote está vencido")
	ErrSerialNotInStock      = errors.New("el serial no está disponible en la bodega")
	ErrSerialLocated         = errors.New("el serial ya se encuentra ubicado en una bodega")
	ErrTransferNotPending    = errors.New("el traslado ya no está pendiente")
	ErrSerialAutoUnsupported = errors.New("ejecución automática no soportada para ítems serializados")
	// ErrTxConflict envuelve fallos de serialización (40001): la operación es
	// reintentable por el caller, no indica corrupción.
	ErrTxConflict = errors.New("conflicto de concurrencia, reintentar")
)

// Código de motivo registrado en ScheduledTransfer.LastError para el rechazo
// de ejecución automática de ítems serializados.
const ReasonSerialAutoUnsupported = "SERIAL_AUTO_UNSUPPORTED"

// InsufficientBalanceError reporta cuánto se pidió y cuánto había disponible.
// Se retorna completo (sin efectos parciales) en FEFO y traslados.
type InsufficientBalanceError struct {
	ItemID      string
	WarehouseID string
	Requested   decimal.Decimal
	Available   decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("balance insuficiente para ítem %s en bodega %s: solicitado=%s disponible=%s",
		e.ItemID, e.WarehouseID, e.Requested, e.Available)
}

// IsInsufficientBalance es azúcar para errors.As sobre InsufficientBalanceError.
func IsInsufficientBalance(err error) (*InsufficientBalanceError, bool) {
	var ib *InsufficientBalanceError
	if errors.As(err, &ib) {
		return ib, true
	}
	return nil, false
}
