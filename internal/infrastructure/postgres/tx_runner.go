package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/almacen-core/internal/application/inventory"
	"github.com/jhoicas/almacen-core/internal/domain"
)

// Ensure TxRunner implements inventory.TxRunner.
var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL, con todos
// los repositorios atados a esa tx.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción con el aislamiento por defecto, ejecuta fn con
// repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(repos inventory.Repos) error) error {
	return r.run(ctx, pgx.TxOptions{}, fn)
}

// RunSerializable hace lo mismo bajo SERIALIZABLE. Un fallo de serialización
// (40001) se traduce a domain.ErrTxConflict para que el caller reintente.
func (r *TxRunner) RunSerializable(ctx context.Context, fn func(repos inventory.Repos) error) error {
	return r.run(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
}

func (r *TxRunner) run(ctx context.Context, opts pgx.TxOptions, fn func(repos inventory.Repos) error) error {
	tx, err := r.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	repos := bindRepos(tx)
	if err := fn(repos); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("%w: %v", domain.ErrTxConflict, err)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("%w: %v", domain.ErrTxConflict, err)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// bindRepos ata el juego completo de repositorios a un Querier (tx o pool).
func bindRepos(q Querier) inventory.Repos {
	return inventory.Repos{
		Items:     NewItemRepository(q),
		Lots:      NewLotRepository(q),
		Serials:   NewSerialRepository(q),
		Snapshots: NewStockSnapshotRepository(q),
		Events:    NewMovementEventRepository(q),
		Scheduled: NewScheduledTransferRepository(q),
		Transfers: NewStockTransferRepository(q),
		Outbox:    NewOutboxRepository(q),
	}
}
