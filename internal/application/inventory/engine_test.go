package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/almacen-core/internal/application/inventory"
	"github.com/jhoicas/almacen-core/internal/domain"
	"github.com/jhoicas/almacen-core/internal/domain/entity"
	"github.com/jhoicas/almacen-core/internal/testutil"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newTestEngine(t *testing.T) (*appinv.MovementEngine, *testutil.Store, *testutil.NotifyRecorder) {
	t.Helper()
	store := testutil.NewStore()
	notifier := &testutil.NotifyRecorder{}
	engine := appinv.NewMovementEngine(
		store,
		store.ItemRepo(), store.WarehouseRepo(), store.LotRepo(), store.SerialRepo(),
		store.EventRepo(), store.SnapshotRepo(), notifier,
	)
	return engine, store, notifier
}

func receiveLot(t *testing.T, engine *appinv.MovementEngine, itemID, whID, lotCode string, qty int64, expiresAt *time.Time) {
	t.Helper()
	require.NoError(t, engine.Receive(context.Background(), appinv.ReceiveInput{
		ItemID:       itemID,
		WarehouseID:  whID,
		Quantity:     dec(qty),
		LotCode:      lotCode,
		LotExpiresAt: expiresAt,
		UserID:       "tester",
	}))
}

func TestReceive_SinTrazabilidad(t *testing.T) {
	engine, store, notifier := newTestEngine(t)
	itemID := store.SeedItem("SKU-1", entity.TrackingNone)
	whID := store.SeedWarehouse("central")

	err := engine.Receive(context.Background(), appinv.ReceiveInput{
		ItemID: itemID, WarehouseID: whID, Quantity: dec(5), UserID: "tester",
	})
	require.NoError(t, err)

	assert.True(t, store.Snapshot(itemID, whID).Equal(dec(5)), "el snapshot debe quedar en 5")
	assert.True(t, store.Items[itemID].TotalQty.Equal(dec(5)), "el total denormalizado debe quedar en 5")

	ins := store.EventsOfType(entity.EventIN)
	require.Len(t, ins, 1)
	assert.True(t, ins[0].Quantity.Equal(dec(5)))
	require.NotNil(t, ins[0].ToWarehouseID)
	assert.Equal(t, whID, *ins[0].ToWarehouseID)
	assert.Contains(t, notifier.Events, "stock.received")
}

func TestReceive_CantidadInvalida(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	itemID := store.SeedItem("SKU-1", entity.TrackingNone)
	whID := store.SeedWarehouse("central")

	err := engine.Receive(context.Background(), appinv.ReceiveInput{
		ItemID: itemID, WarehouseID: whID, Quantity: decimal.Zero,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "cantidad cero debe rechazarse")
}

func TestReceive_ModoTrazabilidad(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	whID := store.SeedWarehouse("central")
	none := store.SeedItem("SKU-NONE", entity.TrackingNone)
	lot := store.SeedItem("SKU-LOT", entity.TrackingLot)
	serial := store.SeedItem("SKU-SER", entity.TrackingSerial)

	// NONE no admite lote ni serial.
	err := engine.Receive(context.Background(), appinv.ReceiveInput{
		ItemID: none, WarehouseID: whID, Quantity: dec(1), LotCode: "L1",
	})
	assert.ErrorIs(t, err, domain.ErrTrackingMode)

	// LOT exige código de lote.
	err = engine.Receive(context.Background(), appinv.ReceiveInput{
		ItemID: lot, WarehouseID: whID, Quantity: dec(1),
	})
	assert.ErrorIs(t, err, domain.ErrTrackingMode)

	// SERIAL exige serial y cantidad exactamente 1.
	err = engine.Receive(context.Background(), appinv.ReceiveInput{
		ItemID: serial, WarehouseID: whID, Quantity: dec(1),
	})
	assert.ErrorIs(t, err, domain.ErrTrackingMode)

	err = engine.Receive(context.Background(), appinv.ReceiveInput{
		ItemID: serial, WarehouseID: whID, Quantity: dec(2), SerialNumber: "S-1",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReceive_SerialYaUbicado(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	itemID := store.SeedItem("SKU-SER", entity.TrackingSerial)
	whA := store.SeedWarehouse("A")
	whB := store.SeedWarehouse("B")

	err := engine.Receive(context.Background(), appinv.ReceiveInput{
		ItemID: itemID, WarehouseID: whA, Quantity: dec(1), SerialNumber: "S-1",
	})
	require.NoError(t, err)

	// El serial ya tiene ubicación: una segunda recepción (en cualquier
	// bodega) debe rechazarse mientras no haya una salida.
	err = engine.Receive(context.Background(), appinv.ReceiveInput{
		ItemID: itemID, WarehouseID: whB, Quantity: dec(1), SerialNumber: "S-1",
	})
	assert.ErrorIs(t, err, domain.ErrSerialLocated)
}

func TestTransfer_ParejaDeEventos(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	itemID := store.SeedItem("SKU-1", entity.TrackingNone)
	whA := store.SeedWarehouse("A")
	whB := store.SeedWarehouse("B")

	require.NoError(t, engine.Receive(context.Background(), appinv.ReceiveInput{
		ItemID: itemID, WarehouseID: whA, Quantity: dec(10),
	}))

	err := engine.Transfer(context.Background(), appinv.TransferInput{
		ItemID: itemID, Quantity: dec(4), FromWarehouseID: whA, ToWarehouseID: whB,
	})
	require.NoError(t, err)

	assert.True(t, store.Snapshot(itemID, whA).Equal(dec(6)))
	assert.True(t, store.Snapshot(itemID, whB).Equal(dec(4)))

	outs := store.EventsOfType(entity.EventTransfOut)
	ins := store.EventsOfType(entity.EventTransfIn)
	require.Len(t, outs, 1)
	require.Len(t, ins, 1)
	assert.Equal(t, outs[0].TransactionID, ins[0].TransactionID,
		"la pareja TRANSF_OUT/TRANSF_IN debe compartir TransactionID")
	assert.True(t, outs[0].Quantity.Equal(dec(4)))
	assert.True(t, ins[0].Quantity.Equal(dec(4)))
}

func TestTransfer_MismaBodega(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	itemID := store.SeedItem("SKU-1", entity.TrackingNone)
	whA := store.SeedWarehouse("A")

	err := engine.Transfer(context.Background(), appinv.TransferInput{
		ItemID: itemID, Quantity: dec(1), FromWarehouseID: whA, ToWarehouseID: whA,
	})
	assert.ErrorIs(t, err, domain.ErrSameWarehouse)
}

func TestTransfer_BalanceInsuficiente(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	itemID := store.SeedItem("SKU-1", entity.TrackingLot)
	whA := store.SeedWarehouse("A")
	whB := store.SeedWarehouse("B")
	receiveLot(t, engine, itemID, whA, "L1", 6, nil)

	err := engine.Transfer(context.Background(), appinv.TransferInput{
		ItemID: itemID, Quantity: dec(100), FromWarehouseID: whA, ToWarehouseID: whB, LotCode: "L1",
	})
	ib, ok := domain.IsInsufficientBalance(err)
	require.True(t, ok, "debe reportar balance insuficiente")
	assert.True(t, ib.Requested.Equal(dec(100)))
	assert.True(t, ib.Available.Equal(dec(6)))

	// Sin efectos: el snapshot de origen queda intacto.
	assert.True(t, store.Snapshot(itemID, whA).Equal(dec(6)))
	assert.True(t, store.Snapshot(itemID, whB).Equal(decimal.Zero))
}

func TestTransfer_LoteVencido(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	itemID := store.SeedItem("SKU-1", entity.TrackingLot)
	whA := store.SeedWarehouse("A")
	whB := store.SeedWarehouse("B")
	expired := time.Now().Add(-48 * time.Hour)
	receiveLot(t, engine, itemID, whA, "L-VENCIDO", 5, &expired)

	err := engine.Transfer(context.Background(), appinv.TransferInput{
		ItemID: itemID, Quantity: dec(1), FromWarehouseID: whA, ToWarehouseID: whB, LotCode: "L-VENCIDO",
	})
	assert.ErrorIs(t, err, domain.ErrExpiredLot)
}

func TestIssueByFEFO_ConsumoEnOrden(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	itemID := store.SeedItem("SKU-1", entity.TrackingLot)
	whID := store.SeedWarehouse("central")

	soon := time.Now().Add(24 * time.Hour)
	later := time.Now().Add(30 * 24 * time.Hour)
	// Se recibe primero el lote que vence después, para verificar que el
	// consumo no sigue el orden de llegada sino el de vencimiento.
	receiveLot(t, engine, itemID, whID, "L2", 5, &later)
	receiveLot(t, engine, itemID, whID, "L1", 5, &soon)

	allocs, err := engine.IssueByFEFO(context.Background(), appinv.IssueFEFOInput{
		ItemID: itemID, WarehouseID: whID, Quantity: dec(8),
	})
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, "L1", allocs[0].LotCode, "primero el lote que vence antes")
	assert.True(t, allocs[0].Quantity.Equal(dec(5)))
	assert.Equal(t, "L2", allocs[1].LotCode)
	assert.True(t, allocs[1].Quantity.Equal(dec(3)))

	assert.True(t, store.Snapshot(itemID, whID).Equal(dec(2)))
	assert.True(t, store.Items[itemID].TotalQty.Equal(dec(2)))
	assert.Len(t, store.EventsOfType(entity.EventOUT), 2, "un OUT por lote consumido")
}

func TestIssueByFEFO_InsuficienteSinEfectos(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	itemID := store.SeedItem("SKU-1", entity.TrackingLot)
	whID := store.SeedWarehouse("central")
	receiveLot(t, engine, itemID, whID, "L1", 6, nil)

	_, err := engine.IssueByFEFO(context.Background(), appinv.IssueFEFOInput{
		ItemID: itemID, WarehouseID: whID, Quantity: dec(100),
	})
	ib, ok := domain.IsInsufficientBalance(err)
	require.True(t, ok)
	assert.True(t, ib.Requested.Equal(dec(100)))
	assert.True(t, ib.Available.Equal(dec(6)))

	assert.True(t, store.Snapshot(itemID, whID).Equal(dec(6)), "sin asignación parcial")
	assert.Empty(t, store.EventsOfType(entity.EventOUT))
}

func TestIssueByFEFO_OmiteVencidosSalvoAllowExpired(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	itemID := store.SeedItem("SKU-1", entity.TrackingLot)
	whID := store.SeedWarehouse("central")

	expired := time.Now().Add(-48 * time.Hour)
	fresh := time.Now().Add(24 * time.Hour)
	receiveLot(t, engine, itemID, whID, "L-VENCIDO", 5, &expired)
	receiveLot(t, engine, itemID, whID, "L-FRESCO", 3, &fresh)

	// Solo 3 elegibles: pedir 4 debe fallar.
	_, err := engine.IssueByFEFO(context.Background(), appinv.IssueFEFOInput{
		ItemID: itemID, WarehouseID: whID, Quantity: dec(4),
	})
	_, ok := domain.IsInsufficientBalance(err)
	require.True(t, ok)

	// Con AllowExpired el vencido vuelve a ser elegible y va primero.
	allocs, err := engine.IssueByFEFO(context.Background(), appinv.IssueFEFOInput{
		ItemID: itemID, WarehouseID: whID, Quantity: dec(4), AllowExpired: true,
	})
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, "L-VENCIDO", allocs[0].LotCode)
}

func TestIssueByFEFO_RequiereModoLote(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	itemID := store.SeedItem("SKU-1", entity.TrackingNone)
	whID := store.SeedWarehouse("central")

	_, err := engine.IssueByFEFO(context.Background(), appinv.IssueFEFOInput{
		ItemID: itemID, WarehouseID: whID, Quantity: dec(1),
	})
	assert.ErrorIs(t, err, domain.ErrTrackingMode)
}

func TestIssueBySerial_ExactamenteUno(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	itemID := store.SeedItem("SKU-SER", entity.TrackingSerial)
	whA := store.SeedWarehouse("A")
	whB := store.SeedWarehouse("B")

	require.NoError(t, engine.Receive(context.Background(), appinv.ReceiveInput{
		ItemID: itemID, WarehouseID: whA, Quantity: dec(1), SerialNumber: "S-1",
	}))

	// En otra bodega el balance del serial es 0: no se puede emitir.
	err := engine.IssueBySerial(context.Background(), appinv.IssueSerialInput{
		ItemID: itemID, WarehouseID: whB, SerialNumber: "S-1",
	})
	assert.ErrorIs(t, err, domain.ErrSerialNotInStock)

	require.NoError(t, engine.IssueBySerial(context.Background(), appinv.IssueSerialInput{
		ItemID: itemID, WarehouseID: whA, SerialNumber: "S-1",
	}))
	assert.True(t, store.Snapshot(itemID, whA).Equal(decimal.Zero))

	// Ya emitido: una segunda emisión debe rechazarse.
	err = engine.IssueBySerial(context.Background(), appinv.IssueSerialInput{
		ItemID: itemID, WarehouseID: whA, SerialNumber: "S-1",
	})
	assert.ErrorIs(t, err, domain.ErrSerialNotInStock)
}

func TestSerial_RecibirTrasEmitir(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	itemID := store.SeedItem("SKU-SER", entity.TrackingSerial)
	whA := store.SeedWarehouse("A")
	whB := store.SeedWarehouse("B")

	require.NoError(t, engine.Receive(context.Background(), appinv.ReceiveInput{
		ItemID: itemID, WarehouseID: whA, Quantity: dec(1), SerialNumber: "S-1",
	}))
	require.NoError(t, engine.IssueBySerial(context.Background(), appinv.IssueSerialInput{
		ItemID: itemID, WarehouseID: whA, SerialNumber: "S-1",
	}))

	// Con balance global en cero, el serial puede reingresar en otra bodega.
	require.NoError(t, engine.Receive(context.Background(), appinv.ReceiveInput{
		ItemID: itemID, WarehouseID: whB, Quantity: dec(1), SerialNumber: "S-1",
	}))
	assert.True(t, store.Snapshot(itemID, whB).Equal(dec(1)))
}

func TestTransfer_SerialMueveUbicacion(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	itemID := store.SeedItem("SKU-SER", entity.TrackingSerial)
	whA := store.SeedWarehouse("A")
	whB := store.SeedWarehouse("B")

	require.NoError(t, engine.Receive(context.Background(), appinv.ReceiveInput{
		ItemID: itemID, WarehouseID: whA, Quantity: dec(1), SerialNumber: "S-1",
	}))
	require.NoError(t, engine.Transfer(context.Background(), appinv.TransferInput{
		ItemID: itemID, Quantity: dec(1), FromWarehouseID: whA, ToWarehouseID: whB, SerialNumber: "S-1",
	}))

	// Tras el traslado: balance 0 en origen, 1 en destino.
	err := engine.IssueBySerial(context.Background(), appinv.IssueSerialInput{
		ItemID: itemID, WarehouseID: whA, SerialNumber: "S-1",
	})
	assert.ErrorIs(t, err, domain.ErrSerialNotInStock)
	require.NoError(t, engine.IssueBySerial(context.Background(), appinv.IssueSerialInput{
		ItemID: itemID, WarehouseID: whB, SerialNumber: "S-1",
	}))
}

// serializedRunner emula el aislamiento SERIALIZABLE del Store real: cada
// transacción serializable corre completa bajo un mutex, así dos operaciones
// concurrentes no pueden observar ambas el mismo estado previo.
type serializedRunner struct {
	*testutil.Store
	mu sync.Mutex
}

func (r *serializedRunner) RunSerializable(ctx context.Context, fn func(appinv.Repos) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Store.RunSerializable(ctx, fn)
}

func TestReceive_SerialConcurrenteUnaSolaUbicacion(t *testing.T) {
	store := testutil.NewStore()
	runner := &serializedRunner{Store: store}
	engine := appinv.NewMovementEngine(
		runner,
		store.ItemRepo(), store.WarehouseRepo(), store.LotRepo(), store.SerialRepo(),
		store.EventRepo(), store.SnapshotRepo(), nil,
	)
	itemID := store.SeedItem("SKU-SER", entity.TrackingSerial)
	whs := []string{store.SeedWarehouse("A"), store.SeedWarehouse("B")}

	// Dos recepciones simultáneas del mismo serial hacia bodegas distintas:
	// como el guard corre bajo SERIALIZABLE, solo una puede confirmar.
	var wg sync.WaitGroup
	errs := make([]error, len(whs))
	for i, wh := range whs {
		wg.Add(1)
		go func(i int, wh string) {
			defer wg.Done()
			errs[i] = engine.Receive(context.Background(), appinv.ReceiveInput{
				ItemID: itemID, WarehouseID: wh, Quantity: dec(1), SerialNumber: "S-RACE",
			})
		}(i, wh)
	}
	wg.Wait()

	oks := 0
	for _, err := range errs {
		if err == nil {
			oks++
		} else {
			assert.ErrorIs(t, err, domain.ErrSerialLocated)
		}
	}
	assert.Equal(t, 1, oks, "exactamente una recepción debe ganar")

	global := store.Snapshot(itemID, whs[0]).Add(store.Snapshot(itemID, whs[1]))
	assert.True(t, global.Equal(dec(1)), "el serial queda en una sola bodega")
}

// conflictingRunner simula fallos de serialización (40001): los primeros N
// RunSerializable abortan con ErrTxConflict sin ejecutar nada.
type conflictingRunner struct {
	*testutil.Store
	conflicts int
}

func (r *conflictingRunner) RunSerializable(ctx context.Context, fn func(appinv.Repos) error) error {
	if r.conflicts > 0 {
		r.conflicts--
		return domain.ErrTxConflict
	}
	return r.Store.RunSerializable(ctx, fn)
}

func TestTransfer_ConflictoDeSerializacionEsReintentable(t *testing.T) {
	store := testutil.NewStore()
	runner := &conflictingRunner{Store: store, conflicts: 1}
	engine := appinv.NewMovementEngine(
		runner,
		store.ItemRepo(), store.WarehouseRepo(), store.LotRepo(), store.SerialRepo(),
		store.EventRepo(), store.SnapshotRepo(), nil,
	)
	itemID := store.SeedItem("SKU-1", entity.TrackingNone)
	whA := store.SeedWarehouse("A")
	whB := store.SeedWarehouse("B")
	require.NoError(t, engine.Receive(context.Background(), appinv.ReceiveInput{
		ItemID: itemID, WarehouseID: whA, Quantity: dec(5),
	}))

	in := appinv.TransferInput{
		ItemID: itemID, Quantity: dec(2), FromWarehouseID: whA, ToWarehouseID: whB,
	}
	// El perdedor de la carrera aborta sin efectos y el error es reintentable.
	err := engine.Transfer(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrTxConflict)
	assert.True(t, store.Snapshot(itemID, whA).Equal(dec(5)), "el conflicto no deja efectos")
	assert.Empty(t, store.EventsOfType(entity.EventTransfOut))

	// El reintento del caller confirma con normalidad.
	require.NoError(t, engine.Transfer(context.Background(), in))
	assert.True(t, store.Snapshot(itemID, whA).Equal(dec(3)))
	assert.True(t, store.Snapshot(itemID, whB).Equal(dec(2)))
}

func TestTransfer_CarreraPorLaUltimaUnidad(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	itemID := store.SeedItem("SKU-1", entity.TrackingNone)
	whA := store.SeedWarehouse("A")
	whB := store.SeedWarehouse("B")
	require.NoError(t, engine.Receive(context.Background(), appinv.ReceiveInput{
		ItemID: itemID, WarehouseID: whA, Quantity: dec(1),
	}))

	in := appinv.TransferInput{
		ItemID: itemID, Quantity: dec(1), FromWarehouseID: whA, ToWarehouseID: whB,
	}
	require.NoError(t, engine.Transfer(context.Background(), in))

	// El segundo contendiente por la última unidad falla por balance y el
	// balance jamás queda negativo.
	err := engine.Transfer(context.Background(), in)
	_, ok := domain.IsInsufficientBalance(err)
	require.True(t, ok)
	assert.True(t, store.Snapshot(itemID, whA).Equal(decimal.Zero))
	assert.True(t, store.Snapshot(itemID, whB).Equal(dec(1)))
	assert.Len(t, store.EventsOfType(entity.EventTransfOut), 1, "solo un traslado confirmó")
}

func TestResolveLotBalances_OrdenFEFO(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	itemID := store.SeedItem("SKU-1", entity.TrackingLot)
	whID := store.SeedWarehouse("central")

	soon := time.Now().Add(24 * time.Hour)
	later := time.Now().Add(30 * 24 * time.Hour)
	receiveLot(t, engine, itemID, whID, "L-SIN-VENC", 2, nil)
	receiveLot(t, engine, itemID, whID, "L-TARDE", 3, &later)
	receiveLot(t, engine, itemID, whID, "L-PRONTO", 4, &soon)

	balances, err := engine.ResolveLotBalances(context.Background(), itemID, whID)
	require.NoError(t, err)
	require.Len(t, balances, 3)
	assert.Equal(t, "L-PRONTO", balances[0].LotCode)
	assert.Equal(t, "L-TARDE", balances[1].LotCode)
	assert.Equal(t, "L-SIN-VENC", balances[2].LotCode, "sin vencimiento va al final")
}

func TestReconcileSnapshots(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	itemID := store.SeedItem("SKU-1", entity.TrackingNone)
	whID := store.SeedWarehouse("central")

	require.NoError(t, engine.Receive(context.Background(), appinv.ReceiveInput{
		ItemID: itemID, WarehouseID: whID, Quantity: dec(10),
	}))

	// Simular una divergencia manual del snapshot frente al ledger.
	store.Snapshots[itemID+"|"+whID].Quantity = dec(7)

	drifts, err := engine.ReconcileSnapshots(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.True(t, drifts[0].Snapshot.Equal(dec(7)))
	assert.True(t, drifts[0].Ledger.Equal(dec(10)))
	assert.True(t, store.Snapshot(itemID, whID).Equal(dec(7)), "sin repair no debe mutar")

	_, err = engine.ReconcileSnapshots(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, store.Snapshot(itemID, whID).Equal(dec(10)), "repair deja el snapshot igual al ledger")
}
