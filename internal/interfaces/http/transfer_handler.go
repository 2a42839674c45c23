package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/almacen-core/internal/application/dto"
	"github.com/jhoicas/almacen-core/internal/application/transfer"
	"github.com/jhoicas/almacen-core/internal/domain/entity"
)

// TransferHandler maneja las peticiones HTTP de traslados programados (protegido).
type TransferHandler struct {
	orch *transfer.Orchestrator
}

// NewTransferHandler construye el handler.
func NewTransferHandler(orch *transfer.Orchestrator) *TransferHandler {
	return &TransferHandler{orch: orch}
}

// Create programa un traslado diferido en estado PENDING.
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	var in dto.ScheduleTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	origin := in.Origin
	if origin == "" {
		origin = entity.TransferOriginManual
	}
	st, err := h.orch.Create(c.Context(), transfer.CreateInput{
		ItemID:          in.ItemID,
		Quantity:        in.Quantity,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		ExecuteAt:       in.ExecuteAt,
		Origin:          origin,
		UserID:          GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromScheduledTransfer(st))
}

// Get devuelve un traslado programado por ID.
func (h *TransferHandler) Get(c *fiber.Ctx) error {
	st, err := h.orch.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromScheduledTransfer(st))
}

// Cancel cancela un traslado que sigue PENDING.
func (h *TransferHandler) Cancel(c *fiber.Ctx) error {
	if err := h.orch.Cancel(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "traslado cancelado"})
}

// Execute ejecuta un traslado PENDING de inmediato, sin pasar por la cola.
func (h *TransferHandler) Execute(c *fiber.Ctx) error {
	if err := h.orch.ExecuteNow(c.Context(), c.Params("id"), GetUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "traslado ejecutado"})
}

// ExecuteOverdue ejecuta en lote los traslados PENDING ya vencidos.
func (h *TransferHandler) ExecuteOverdue(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	executed, err := h.orch.ExecuteOverdueBatch(c.Context(), GetUserID(c), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"executed": executed})
}

// ListPendingAuto lista los traslados PENDING generados automáticamente.
func (h *TransferHandler) ListPendingAuto(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	list, err := h.orch.ListPendingAuto(c.Context(), limit)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.ScheduledTransferDTO, 0, len(list))
	for _, st := range list {
		out = append(out, dto.FromScheduledTransfer(st))
	}
	return c.JSON(fiber.Map{"total": len(out), "transfers": out})
}
