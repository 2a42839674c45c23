package inventory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-core/internal/domain"
	"github.com/jhoicas/almacen-core/internal/domain/inventory"
)

var testNow = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

func datePtr(t time.Time) *time.Time { return &t }

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func balance(lotID string, exp *time.Time, n int64) inventory.LotBalance {
	return inventory.LotBalance{LotID: lotID, LotCode: lotID, ExpiresAt: exp, Balance: qty(n)}
}

func TestSortFEFO_VencimientoAscendenteNulosAlFinal(t *testing.T) {
	soon := datePtr(testNow.AddDate(0, 0, 5))
	later := datePtr(testNow.AddDate(0, 0, 30))
	balances := []inventory.LotBalance{
		balance("L3", nil, 10),
		balance("L2", later, 10),
		balance("L1", soon, 10),
		balance("L4", nil, 10),
	}
	inventory.SortFEFO(balances)

	got := []string{balances[0].LotID, balances[1].LotID, balances[2].LotID, balances[3].LotID}
	assert.Equal(t, []string{"L1", "L2", "L3", "L4"}, got,
		"vencimiento ascendente, sin vencimiento al final, LotID como desempate")
}

func TestSortFEFO_DesempatePorLotID(t *testing.T) {
	exp := datePtr(testNow.AddDate(0, 0, 7))
	balances := []inventory.LotBalance{
		balance("LB", exp, 1),
		balance("LA", exp, 1),
	}
	inventory.SortFEFO(balances)
	assert.Equal(t, "LA", balances[0].LotID)
}

func TestPick_ConsumeEnOrdenHastaCubrir(t *testing.T) {
	soon := datePtr(testNow.AddDate(0, 0, 5))
	later := datePtr(testNow.AddDate(0, 0, 30))
	balances := []inventory.LotBalance{
		balance("L2", later, 8),
		balance("L1", soon, 6),
	}

	allocs, err := inventory.Pick("item5", "wh1", balances, qty(10), false, testNow)
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, "L1", allocs[0].LotID)
	assert.True(t, allocs[0].Quantity.Equal(qty(6)), "primero se agota el lote que vence antes")
	assert.Equal(t, "L2", allocs[1].LotID)
	assert.True(t, allocs[1].Quantity.Equal(qty(4)))
}

func TestPick_InsuficienteSinEfectoParcial(t *testing.T) {
	balances := []inventory.LotBalance{
		balance("L1", datePtr(testNow.AddDate(0, 0, 30)), 6),
	}

	allocs, err := inventory.Pick("item5", "wh1", balances, qty(100), false, testNow)
	require.Error(t, err)
	assert.Nil(t, allocs, "sin asignación parcial cuando el balance no alcanza")

	ib, ok := domain.IsInsufficientBalance(err)
	require.True(t, ok)
	assert.True(t, ib.Requested.Equal(qty(100)))
	assert.True(t, ib.Available.Equal(qty(6)), "reporta solicitado=100 disponible=6")
}

func TestPick_OmiteVencidosSalvoAllowExpired(t *testing.T) {
	expired := datePtr(testNow.AddDate(0, 0, -1))
	valid := datePtr(testNow.AddDate(0, 0, 10))
	balances := []inventory.LotBalance{
		balance("LEXP", expired, 5),
		balance("LOK", valid, 5),
	}

	// Sin allowExpired: el lote vencido no cuenta como disponible.
	_, err := inventory.Pick("item1", "wh1", balances, qty(8), false, testNow)
	ib, ok := domain.IsInsufficientBalance(err)
	require.True(t, ok)
	assert.True(t, ib.Available.Equal(qty(5)))

	// Con allowExpired: el vencido participa y va primero (vence antes).
	allocs, err := inventory.Pick("item1", "wh1", balances, qty(8), true, testNow)
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, "LEXP", allocs[0].LotID)
	assert.True(t, allocs[0].Quantity.Equal(qty(5)))
	assert.True(t, allocs[1].Quantity.Equal(qty(3)))
}

func TestPick_LoteQueVenceHoyEsElegible(t *testing.T) {
	today := datePtr(time.Date(testNow.Year(), testNow.Month(), testNow.Day(), 0, 0, 0, 0, time.UTC))
	balances := []inventory.LotBalance{balance("LHOY", today, 3)}

	allocs, err := inventory.Pick("item1", "wh1", balances, qty(3), false, testNow)
	require.NoError(t, err)
	require.Len(t, allocs, 1)
}

func TestPick_CantidadInvalida(t *testing.T) {
	_, err := inventory.Pick("item1", "wh1", nil, qty(0), false, testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = inventory.Pick("item1", "wh1", nil, qty(-5), false, testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
