package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-core/internal/application/dto"
	"github.com/jhoicas/almacen-core/internal/application/inventory"
	"github.com/jhoicas/almacen-core/internal/domain"
)

// InventoryHandler maneja las peticiones HTTP del motor de movimientos (protegido).
type InventoryHandler struct {
	engine *inventory.MovementEngine
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(engine *inventory.MovementEngine) *InventoryHandler {
	return &InventoryHandler{engine: engine}
}

// Receive registra una recepción de stock (evento IN + snapshot).
func (h *InventoryHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	err := h.engine.Receive(c.Context(), inventory.ReceiveInput{
		ItemID:       in.ItemID,
		WarehouseID:  in.WarehouseID,
		Quantity:     in.Quantity,
		LotCode:      in.LotCode,
		LotExpiresAt: in.LotExpiresAt,
		SerialNumber: in.SerialNumber,
		Ref:          inventory.Ref{Table: in.RefTable, ID: in.RefID},
		UserID:       GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "recepción registrada"})
}

// Transfer realiza un traslado inmediato entre bodegas.
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	err := h.engine.Transfer(c.Context(), inventory.TransferInput{
		ItemID:          in.ItemID,
		Quantity:        in.Quantity,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		LotCode:         in.LotCode,
		SerialNumber:    in.SerialNumber,
		Ref:             inventory.Ref{Table: in.RefTable, ID: in.RefID},
		UserID:          GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "traslado realizado"})
}

// IssueFEFO emite stock de un ítem por lote, consumiendo en orden FEFO.
func (h *InventoryHandler) IssueFEFO(c *fiber.Ctx) error {
	var in dto.IssueFEFORequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	allocs, err := h.engine.IssueByFEFO(c.Context(), inventory.IssueFEFOInput{
		ItemID:       in.ItemID,
		WarehouseID:  in.WarehouseID,
		Quantity:     in.Quantity,
		AllowExpired: in.AllowExpired,
		Ref:          inventory.Ref{Table: in.RefTable, ID: in.RefID},
		UserID:       GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.AllocationDTO, 0, len(allocs))
	for _, a := range allocs {
		out = append(out, dto.AllocationDTO{LotID: a.LotID, LotCode: a.LotCode, Quantity: a.Quantity})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"allocations": out})
}

// IssueSerial emite una unidad serializada.
func (h *InventoryHandler) IssueSerial(c *fiber.Ctx) error {
	var in dto.IssueSerialRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	err := h.engine.IssueBySerial(c.Context(), inventory.IssueSerialInput{
		ItemID:       in.ItemID,
		WarehouseID:  in.WarehouseID,
		SerialNumber: in.SerialNumber,
		Ref:          inventory.Ref{Table: in.RefTable, ID: in.RefID},
		UserID:       GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "serial emitido"})
}

// LotBalances devuelve los balances por lote del ítem en la bodega, en orden FEFO.
func (h *InventoryHandler) LotBalances(c *fiber.Ctx) error {
	itemID := c.Query("item_id")
	warehouseID := c.Query("warehouse_id")
	if itemID == "" || warehouseID == "" {
		return respondError(c, domain.ErrInvalidInput)
	}
	balances, err := h.engine.ResolveLotBalances(c.Context(), itemID, warehouseID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.LotBalanceDTO, 0, len(balances))
	for _, b := range balances {
		out = append(out, dto.LotBalanceDTO{LotID: b.LotID, LotCode: b.LotCode, ExpiresAt: b.ExpiresAt, Balance: b.Balance})
	}
	return c.JSON(fiber.Map{"total": len(out), "balances": out})
}

// SuggestAllocation calcula, sin efectos, qué lotes consumiría una emisión
// FEFO de la cantidad dada. Consultivo: la asignación real puede diferir.
func (h *InventoryHandler) SuggestAllocation(c *fiber.Ctx) error {
	itemID := c.Query("item_id")
	warehouseID := c.Query("warehouse_id")
	qty, err := decimal.NewFromString(c.Query("quantity"))
	if itemID == "" || warehouseID == "" || err != nil {
		return respondError(c, domain.ErrInvalidInput)
	}
	allocs, err := h.engine.SuggestAllocation(c.Context(), itemID, warehouseID, qty, c.QueryBool("allow_expired"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.AllocationDTO, 0, len(allocs))
	for _, a := range allocs {
		out = append(out, dto.AllocationDTO{LotID: a.LotID, LotCode: a.LotCode, Quantity: a.Quantity})
	}
	return c.JSON(fiber.Map{"allocations": out})
}

// Reconcile compara snapshots contra el ledger; con repair=true corrige en caliente.
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	repair := c.QueryBool("repair")
	drifts, err := h.engine.ReconcileSnapshots(c.Context(), repair)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.DriftDTO, 0, len(drifts))
	for _, d := range drifts {
		out = append(out, dto.DriftDTO{ItemID: d.ItemID, WarehouseID: d.WarehouseID, Snapshot: d.Snapshot, Ledger: d.Ledger})
	}
	return c.JSON(fiber.Map{"total": len(out), "repaired": repair, "drifts": out})
}
