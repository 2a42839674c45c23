package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/almacen-core/internal/application/inventory"
	"github.com/jhoicas/almacen-core/internal/application/transfer"
	"github.com/jhoicas/almacen-core/internal/infrastructure/notify"
	"github.com/jhoicas/almacen-core/internal/infrastructure/postgres"
	"github.com/jhoicas/almacen-core/internal/infrastructure/redisq"
	"github.com/jhoicas/almacen-core/internal/interfaces/http"
	"github.com/jhoicas/almacen-core/internal/worker"
	"github.com/jhoicas/almacen-core/pkg/config"
	"github.com/jhoicas/almacen-core/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	rdb, err := redisq.NewClient(ctx, cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a Redis")
	}
	defer rdb.Close()

	itemRepo := postgres.NewItemRepository(pool)
	warehouseRepo := postgres.NewWarehouseRepository(pool)
	lotRepo := postgres.NewLotRepository(pool)
	serialRepo := postgres.NewSerialRepository(pool)
	eventRepo := postgres.NewMovementEventRepository(pool)
	snapshotRepo := postgres.NewStockSnapshotRepository(pool)
	scheduledRepo := postgres.NewScheduledTransferRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	notifier := notify.NewLogNotifier(log.Zerolog())

	engine := inventory.NewMovementEngine(
		txRunner, itemRepo, warehouseRepo, lotRepo, serialRepo,
		eventRepo, snapshotRepo, notifier,
	)
	orch := transfer.NewOrchestrator(txRunner, itemRepo, warehouseRepo, scheduledRepo, notifier)

	// Cola durable de traslados: lista principal + DLQ emparejada.
	queue := redisq.NewQueue(rdb)
	if err := queue.Declare(ctx, transfer.QueueTransfers); err != nil {
		log.Fatal().Err(err).Msg("declarar cola de traslados")
	}
	delays := redisq.NewDelayScheduler(rdb)

	// Pipeline de fondo: scheduler → outbox → relay → cola → workers.
	worker.StartScheduler(ctx, orch, cfg.Scheduler.Tick, cfg.Scheduler.BatchSize)
	worker.StartRelay(ctx, transfer.NewRelay(outboxRepo, queue), cfg.Scheduler.Tick/2, cfg.Scheduler.BatchSize)
	worker.StartPromoter(ctx, delays, time.Second)
	var retryPolicy worker.RetryPolicy = worker.ExponentialPolicy{
		Base:        cfg.Worker.BackoffBase,
		Cap:         cfg.Worker.BackoffCap,
		MaxAttempts: cfg.Worker.MaxAttempts,
	}
	if cfg.Worker.RetryPolicy == "immediate" {
		retryPolicy = worker.ImmediatePolicy{MaxAttempts: cfg.Worker.MaxAttempts}
	}
	worker.StartTransferWorkers(ctx, queue, delays, orch, cfg.Worker.Concurrency, retryPolicy)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	http.Router(app, engine, orch, http.RouterDeps{
		JWTSecret:  cfg.JWT.Secret,
		Items:      itemRepo,
		Warehouses: warehouseRepo,
		Lots:       lotRepo,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando...")
	stop() // detiene scheduler, relay, promoter y workers

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
