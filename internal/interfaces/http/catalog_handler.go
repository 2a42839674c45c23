package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/almacen-core/internal/application/dto"
	"github.com/jhoicas/almacen-core/internal/domain"
	"github.com/jhoicas/almacen-core/internal/domain/entity"
	"github.com/jhoicas/almacen-core/internal/domain/repository"
)

// CatalogHandler maneja el catálogo base: ítems y bodegas.
type CatalogHandler struct {
	items      repository.ItemRepository
	warehouses repository.WarehouseRepository
	lots       repository.LotRepository
}

// NewCatalogHandler construye el handler.
func NewCatalogHandler(items repository.ItemRepository, warehouses repository.WarehouseRepository, lots repository.LotRepository) *CatalogHandler {
	return &CatalogHandler{items: items, warehouses: warehouses, lots: lots}
}

// CreateItem da de alta un ítem con su modo de trazabilidad.
func (h *CatalogHandler) CreateItem(c *fiber.Ctx) error {
	var in dto.CreateItemRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.SKU == "" || in.Name == "" || !entity.IsValidTrackingMode(in.TrackingMode) {
		return respondError(c, domain.ErrInvalidInput)
	}
	item := &entity.Item{SKU: in.SKU, Name: in.Name, TrackingMode: in.TrackingMode}
	if err := h.items.Create(c.Context(), item); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": item.ID})
}

// GetItem devuelve un ítem por ID.
func (h *CatalogHandler) GetItem(c *fiber.Ctx) error {
	item, err := h.items.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if item == nil {
		return respondError(c, domain.ErrNotFound)
	}
	return c.JSON(dto.FromItem(item))
}

// ListItemLots lista los lotes registrados de un ítem.
func (h *CatalogHandler) ListItemLots(c *fiber.Ctx) error {
	lots, err := h.lots.ListByItem(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.LotDTO, 0, len(lots))
	for _, lot := range lots {
		out = append(out, dto.FromLot(lot))
	}
	return c.JSON(fiber.Map{"total": len(out), "lots": out})
}

// CreateWarehouse da de alta una bodega.
func (h *CatalogHandler) CreateWarehouse(c *fiber.Ctx) error {
	var in dto.CreateWarehouseRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Name == "" {
		return respondError(c, domain.ErrInvalidInput)
	}
	wh := &entity.Warehouse{Name: in.Name, Address: in.Address}
	if err := h.warehouses.Create(c.Context(), wh); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": wh.ID})
}

// ListWarehouses lista las bodegas.
func (h *CatalogHandler) ListWarehouses(c *fiber.Ctx) error {
	list, err := h.warehouses.List(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.WarehouseDTO, 0, len(list))
	for _, wh := range list {
		out = append(out, dto.FromWarehouse(wh))
	}
	return c.JSON(fiber.Map{"total": len(out), "warehouses": out})
}
