package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/almacen-core/internal/application/inventory"
	"github.com/jhoicas/almacen-core/internal/application/transfer"
	"github.com/jhoicas/almacen-core/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	JWTSecret  string
	Items      repository.ItemRepository
	Warehouses repository.WarehouseRepository
	Lots       repository.LotRepository
}

// Router registra las rutas de la API. Todas las operaciones de inventario
// van detrás del middleware de auth; el UserID del token alimenta la auditoría.
func Router(app *fiber.App, engine *inventory.MovementEngine, orch *transfer.Orchestrator, deps RouterDeps) {
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Catálogo base
	catalogHandler := NewCatalogHandler(deps.Items, deps.Warehouses, deps.Lots)
	items := protected.Group("/items")
	items.Post("/", catalogHandler.CreateItem)
	items.Get("/:id", catalogHandler.GetItem)
	items.Get("/:id/lots", catalogHandler.ListItemLots)

	warehouses := protected.Group("/warehouses")
	warehouses.Post("/", catalogHandler.CreateWarehouse)
	warehouses.Get("/", catalogHandler.ListWarehouses)

	// Motor de movimientos
	invGroup := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(engine)
	invGroup.Post("/receive", inventoryHandler.Receive)
	invGroup.Post("/transfer", inventoryHandler.Transfer)
	invGroup.Post("/issue-fefo", inventoryHandler.IssueFEFO)
	invGroup.Post("/issue-serial", inventoryHandler.IssueSerial)
	invGroup.Get("/lot-balances", inventoryHandler.LotBalances)
	invGroup.Get("/suggest-allocation", inventoryHandler.SuggestAllocation)
	invGroup.Post("/reconcile", inventoryHandler.Reconcile)

	// Traslados programados
	transfers := protected.Group("/transfers")
	transferHandler := NewTransferHandler(orch)
	transfers.Post("/", transferHandler.Create)
	transfers.Get("/pending-auto", transferHandler.ListPendingAuto)
	transfers.Post("/execute-overdue", transferHandler.ExecuteOverdue)
	transfers.Get("/:id", transferHandler.Get)
	transfers.Delete("/:id", transferHandler.Cancel)
	transfers.Post("/:id/execute", transferHandler.Execute)
}
