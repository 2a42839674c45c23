package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/almacen-core/internal/application/dto"
	"github.com/jhoicas/almacen-core/internal/domain"
)

// respondError mapea errores de dominio a códigos HTTP:
// validación → 400/422, no encontrado → 404, balance/conflicto → 409.
func respondError(c *fiber.Ctx, err error) error {
	if ib, ok := domain.IsInsufficientBalance(err); ok {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"code":         "INSUFFICIENT_BALANCE",
			"message":      "balance insuficiente",
			"item_id":      ib.ItemID,
			"warehouse_id": ib.WarehouseID,
			"requested":    ib.Requested,
			"available":    ib.Available,
		})
	}
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrSameWarehouse):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "SAME_WAREHOUSE", Message: "origen y destino deben ser distintos"})
	case errors.Is(err, domain.ErrTrackingMode):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "TRACKING_MODE", Message: "lote/serial inconsistente con el modo de trazabilidad del ítem"})
	case errors.Is(err, domain.ErrExpiredLot):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "EXPIRED_LOT", Message: "el lote está vencido"})
	case errors.Is(err, domain.ErrSerialAutoUnsupported):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: domain.ReasonSerialAutoUnsupported, Message: "ítems serializados no admiten traslado automático"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "el recurso ya existe"})
	case errors.Is(err, domain.ErrSerialNotInStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "SERIAL_NOT_IN_STOCK", Message: "el serial no está en la bodega"})
	case errors.Is(err, domain.ErrSerialLocated):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "SERIAL_LOCATED", Message: "el serial ya está ubicado en una bodega"})
	case errors.Is(err, domain.ErrTransferNotPending):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NOT_PENDING", Message: "el traslado ya no está pendiente"})
	case errors.Is(err, domain.ErrTxConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "TX_CONFLICT", Message: "conflicto de concurrencia, reintente"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
