package transfer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/almacen-core/internal/application/inventory"
	"github.com/jhoicas/almacen-core/internal/application/transfer"
	"github.com/jhoicas/almacen-core/internal/domain"
	"github.com/jhoicas/almacen-core/internal/domain/entity"
	"github.com/jhoicas/almacen-core/internal/testutil"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type fixture struct {
	orch     *transfer.Orchestrator
	engine   *appinv.MovementEngine
	store    *testutil.Store
	notifier *testutil.NotifyRecorder
	itemID   string
	whA      string
	whB      string
}

func newFixture(t *testing.T, trackingMode string) *fixture {
	t.Helper()
	store := testutil.NewStore()
	notifier := &testutil.NotifyRecorder{}
	engine := appinv.NewMovementEngine(
		store,
		store.ItemRepo(), store.WarehouseRepo(), store.LotRepo(), store.SerialRepo(),
		store.EventRepo(), store.SnapshotRepo(), notifier,
	)
	orch := transfer.NewOrchestrator(
		store,
		store.ItemRepo(), store.WarehouseRepo(), store.ScheduledRepo(), notifier,
	)
	return &fixture{
		orch:     orch,
		engine:   engine,
		store:    store,
		notifier: notifier,
		itemID:   store.SeedItem("SKU-1", trackingMode),
		whA:      store.SeedWarehouse("A"),
		whB:      store.SeedWarehouse("B"),
	}
}

func (f *fixture) schedule(t *testing.T, qty int64, executeAt time.Time) *entity.ScheduledTransfer {
	t.Helper()
	st, err := f.orch.Create(context.Background(), transfer.CreateInput{
		ItemID:          f.itemID,
		Quantity:        dec(qty),
		FromWarehouseID: f.whA,
		ToWarehouseID:   f.whB,
		ExecuteAt:       executeAt,
		Origin:          entity.TransferOriginManual,
		UserID:          "tester",
	})
	require.NoError(t, err)
	return st
}

func (f *fixture) receive(t *testing.T, qty int64) {
	t.Helper()
	require.NoError(t, f.engine.Receive(context.Background(), appinv.ReceiveInput{
		ItemID: f.itemID, WarehouseID: f.whA, Quantity: dec(qty), UserID: "tester",
	}))
}

func TestCreate_Validaciones(t *testing.T) {
	f := newFixture(t, entity.TrackingNone)
	ctx := context.Background()

	_, err := f.orch.Create(ctx, transfer.CreateInput{
		ItemID: f.itemID, Quantity: decimal.Zero,
		FromWarehouseID: f.whA, ToWarehouseID: f.whB,
		ExecuteAt: time.Now(), Origin: entity.TransferOriginManual,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "cantidad cero")

	_, err = f.orch.Create(ctx, transfer.CreateInput{
		ItemID: f.itemID, Quantity: dec(1),
		FromWarehouseID: f.whA, ToWarehouseID: f.whA,
		ExecuteAt: time.Now(), Origin: entity.TransferOriginManual,
	})
	assert.ErrorIs(t, err, domain.ErrSameWarehouse)

	_, err = f.orch.Create(ctx, transfer.CreateInput{
		ItemID: f.itemID, Quantity: dec(1),
		FromWarehouseID: f.whA, ToWarehouseID: f.whB,
		ExecuteAt: time.Now(), Origin: "IMPORT",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "origen desconocido")

	_, err = f.orch.Create(ctx, transfer.CreateInput{
		ItemID: "no-existe", Quantity: dec(1),
		FromWarehouseID: f.whA, ToWarehouseID: f.whB,
		ExecuteAt: time.Now(), Origin: entity.TransferOriginManual,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	st := f.schedule(t, 3, time.Now().Add(time.Hour))
	assert.Equal(t, entity.TransferPending, st.Status)
	assert.NotEmpty(t, st.ID)
}

func TestCancel_SoloPending(t *testing.T) {
	f := newFixture(t, entity.TrackingNone)
	ctx := context.Background()

	st := f.schedule(t, 3, time.Now().Add(time.Hour))
	require.NoError(t, f.orch.Cancel(ctx, st.ID))
	assert.Equal(t, entity.TransferCanceled, f.store.Scheduled[st.ID].Status)

	// Una fila ya reclamada (SENT) no puede cancelarse.
	sent := f.schedule(t, 3, time.Now().Add(time.Hour))
	f.store.Scheduled[sent.ID].Status = entity.TransferSent
	err := f.orch.Cancel(ctx, sent.ID)
	assert.ErrorIs(t, err, domain.ErrTransferNotPending)

	err = f.orch.Cancel(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClaimAndEnqueue(t *testing.T) {
	f := newFixture(t, entity.TrackingNone)
	ctx := context.Background()

	due := f.schedule(t, 3, time.Now().Add(10*time.Second))
	future := f.schedule(t, 3, time.Now().Add(24*time.Hour))
	canceled := f.schedule(t, 3, time.Now().Add(10*time.Second))
	require.NoError(t, f.orch.Cancel(ctx, canceled.ID))

	claimed, err := f.orch.ClaimAndEnqueue(ctx, time.Minute, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, claimed)

	assert.Equal(t, entity.TransferSent, f.store.Scheduled[due.ID].Status)
	assert.Equal(t, entity.TransferPending, f.store.Scheduled[future.ID].Status,
		"fuera de ventana no se reclama")
	assert.Equal(t, entity.TransferCanceled, f.store.Scheduled[canceled.ID].Status)

	require.Len(t, f.store.Outbox, 1)
	job, err := transfer.DecodeJob(f.store.Outbox[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, due.ID, job.ScheduledID)
	assert.Equal(t, transfer.QueueTransfers, f.store.Outbox[0].Queue)

	// Un segundo tick no vuelve a reclamar la misma fila.
	claimed, err = f.orch.ClaimAndEnqueue(ctx, time.Minute, 100)
	require.NoError(t, err)
	assert.Zero(t, claimed)
	assert.Len(t, f.store.Outbox, 1)
}

type recordingPublisher struct {
	published []string
	failWith  error
}

func (p *recordingPublisher) Publish(_ context.Context, queue string, payload []byte) error {
	if p.failWith != nil {
		return p.failWith
	}
	p.published = append(p.published, queue)
	return nil
}

func TestRelay_RunOnce(t *testing.T) {
	f := newFixture(t, entity.TrackingNone)
	ctx := context.Background()

	f.schedule(t, 3, time.Now().Add(time.Second))
	f.schedule(t, 2, time.Now().Add(time.Second))
	_, err := f.orch.ClaimAndEnqueue(ctx, time.Minute, 100)
	require.NoError(t, err)
	require.Len(t, f.store.Outbox, 2)

	pub := &recordingPublisher{}
	relay := transfer.NewRelay(f.store.OutboxRepo(), pub)

	sent, err := relay.RunOnce(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, []string{transfer.QueueTransfers, transfer.QueueTransfers}, pub.published)
	for _, msg := range f.store.Outbox {
		assert.NotNil(t, msg.DispatchedAt)
	}

	// Ya despachados: el siguiente ciclo no publica nada.
	sent, err = relay.RunOnce(ctx, 100)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestRelay_FalloDePublicacion(t *testing.T) {
	f := newFixture(t, entity.TrackingNone)
	ctx := context.Background()

	f.schedule(t, 3, time.Now().Add(time.Second))
	_, err := f.orch.ClaimAndEnqueue(ctx, time.Minute, 100)
	require.NoError(t, err)

	pub := &recordingPublisher{failWith: errors.New("broker caído")}
	relay := transfer.NewRelay(f.store.OutboxRepo(), pub)

	sent, err := relay.RunOnce(ctx, 100)
	require.Error(t, err)
	assert.Zero(t, sent)
	assert.Nil(t, f.store.Outbox[0].DispatchedAt, "queda en outbox para reintento")
}

func TestHandleJob_Ejecucion(t *testing.T) {
	f := newFixture(t, entity.TrackingNone)
	ctx := context.Background()

	f.receive(t, 10)
	st := f.schedule(t, 4, time.Now())
	f.store.Scheduled[st.ID].Status = entity.TransferSent

	payload, err := transfer.Job{ScheduledID: st.ID}.Encode()
	require.NoError(t, err)
	require.NoError(t, f.orch.HandleJob(ctx, payload))

	assert.True(t, f.store.Snapshot(f.itemID, f.whA).Equal(dec(6)))
	assert.True(t, f.store.Snapshot(f.itemID, f.whB).Equal(dec(4)))

	row := f.store.Scheduled[st.ID]
	assert.Equal(t, entity.TransferExecuted, row.Status)
	require.NotNil(t, row.TransferID)
	tr := f.store.Transfers[*row.TransferID]
	require.NotNil(t, tr, "el StockTransfer consolidado debe existir")
	assert.True(t, tr.Quantity.Equal(dec(4)))

	outs := f.store.EventsOfType(entity.EventTransfOut)
	ins := f.store.EventsOfType(entity.EventTransfIn)
	require.Len(t, outs, 1)
	require.Len(t, ins, 1)
	assert.Equal(t, outs[0].TransactionID, ins[0].TransactionID)
}

func TestHandleJob_RedeliveryTerminalEsNoOp(t *testing.T) {
	f := newFixture(t, entity.TrackingNone)
	ctx := context.Background()

	f.receive(t, 10)
	st := f.schedule(t, 4, time.Now())
	f.store.Scheduled[st.ID].Status = entity.TransferSent

	payload, err := transfer.Job{ScheduledID: st.ID}.Encode()
	require.NoError(t, err)
	require.NoError(t, f.orch.HandleJob(ctx, payload))
	require.NoError(t, f.orch.HandleJob(ctx, payload), "la redelivery no debe fallar")

	// Sin doble ejecución: los snapshots no se mueven dos veces.
	assert.True(t, f.store.Snapshot(f.itemID, f.whA).Equal(dec(6)))
	assert.True(t, f.store.Snapshot(f.itemID, f.whB).Equal(dec(4)))
	assert.Len(t, f.store.Transfers, 1)
}

func TestHandleJob_BalanceInsuficiente(t *testing.T) {
	f := newFixture(t, entity.TrackingNone)
	ctx := context.Background()

	f.receive(t, 2)
	st := f.schedule(t, 5, time.Now())
	f.store.Scheduled[st.ID].Status = entity.TransferSent

	payload, err := transfer.Job{ScheduledID: st.ID}.Encode()
	require.NoError(t, err)

	err = f.orch.HandleJob(ctx, payload)
	ib, ok := domain.IsInsufficientBalance(err)
	require.True(t, ok)
	assert.True(t, ib.Available.Equal(dec(2)))

	row := f.store.Scheduled[st.ID]
	assert.Equal(t, entity.TransferSent, row.Status, "la fila sigue SENT para reintento")
	assert.Equal(t, 1, row.Attempts)
	assert.NotEmpty(t, row.LastError)
	assert.True(t, f.store.Snapshot(f.itemID, f.whA).Equal(dec(2)), "sin efectos")
}

func TestHandleJob_PayloadIlegible(t *testing.T) {
	f := newFixture(t, entity.TrackingNone)
	err := f.orch.HandleJob(context.Background(), []byte("{no-json"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExecuteNow_LotePorFEFO(t *testing.T) {
	f := newFixture(t, entity.TrackingLot)
	ctx := context.Background()

	soon := time.Now().Add(24 * time.Hour)
	later := time.Now().Add(30 * 24 * time.Hour)
	require.NoError(t, f.engine.Receive(ctx, appinv.ReceiveInput{
		ItemID: f.itemID, WarehouseID: f.whA, Quantity: dec(5), LotCode: "L2", LotExpiresAt: &later,
	}))
	require.NoError(t, f.engine.Receive(ctx, appinv.ReceiveInput{
		ItemID: f.itemID, WarehouseID: f.whA, Quantity: dec(5), LotCode: "L1", LotExpiresAt: &soon,
	}))

	st := f.schedule(t, 8, time.Now())
	require.NoError(t, f.orch.ExecuteNow(ctx, st.ID, "tester"))

	assert.Equal(t, entity.TransferExecuted, f.store.Scheduled[st.ID].Status)
	assert.True(t, f.store.Snapshot(f.itemID, f.whA).Equal(dec(2)))
	assert.True(t, f.store.Snapshot(f.itemID, f.whB).Equal(dec(8)))
	// Un traslado por lote consumido: dos parejas de eventos.
	assert.Len(t, f.store.EventsOfType(entity.EventTransfOut), 2)
	assert.Len(t, f.store.EventsOfType(entity.EventTransfIn), 2)
	assert.Len(t, f.store.Transfers, 1, "pero un solo StockTransfer consolidado")
}

func TestExecuteNow_SerialNoSoportado(t *testing.T) {
	f := newFixture(t, entity.TrackingSerial)
	ctx := context.Background()

	st := f.schedule(t, 1, time.Now())
	err := f.orch.ExecuteNow(ctx, st.ID, "tester")
	assert.ErrorIs(t, err, domain.ErrSerialAutoUnsupported)

	row := f.store.Scheduled[st.ID]
	assert.Equal(t, entity.TransferPending, row.Status, "queda PENDING para intervención manual")
	assert.Equal(t, 1, row.Attempts)
	assert.Equal(t, domain.ReasonSerialAutoUnsupported, row.LastError)
}

func TestExecuteNow_SoloPending(t *testing.T) {
	f := newFixture(t, entity.TrackingNone)
	ctx := context.Background()

	st := f.schedule(t, 1, time.Now())
	f.store.Scheduled[st.ID].Status = entity.TransferExecuted
	err := f.orch.ExecuteNow(ctx, st.ID, "tester")
	assert.ErrorIs(t, err, domain.ErrTransferNotPending)
}

func TestExecuteOverdueBatch(t *testing.T) {
	f := newFixture(t, entity.TrackingNone)
	ctx := context.Background()

	f.receive(t, 10)
	overdue := f.schedule(t, 3, time.Now().Add(-time.Hour))
	future := f.schedule(t, 3, time.Now().Add(time.Hour))

	executed, err := f.orch.ExecuteOverdueBatch(ctx, "tester", 50)
	require.NoError(t, err)
	assert.Equal(t, 1, executed)
	assert.Equal(t, entity.TransferExecuted, f.store.Scheduled[overdue.ID].Status)
	assert.Equal(t, entity.TransferPending, f.store.Scheduled[future.ID].Status)
}

func TestFailPermanently(t *testing.T) {
	f := newFixture(t, entity.TrackingNone)
	ctx := context.Background()

	st := f.schedule(t, 3, time.Now())
	f.store.Scheduled[st.ID].Status = entity.TransferSent

	payload, err := transfer.Job{ScheduledID: st.ID}.Encode()
	require.NoError(t, err)
	f.orch.FailPermanently(ctx, payload, "balance insuficiente tras 5 intentos")

	row := f.store.Scheduled[st.ID]
	assert.Equal(t, entity.TransferFailed, row.Status)
	assert.Equal(t, "balance insuficiente tras 5 intentos", row.LastError)
}
