package inventory

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-core/internal/domain"
)

// LotBalance es el balance neto positivo de un lote en una bodega,
// resuelto a partir del ledger.
type LotBalance struct {
	LotID     string
	LotCode   string
	ExpiresAt *time.Time
	Balance   decimal.Decimal
}

// Allocation es la cantidad a consumir de un lote según FEFO.
type Allocation struct {
	LotID    string
	LotCode  string
	Quantity decimal.Decimal
}

// SortFEFO ordena los balances en el orden FEFO canónico: vencimiento
// ascendente, lotes sin vencimiento al final, y LotID como desempate
// determinista. El mismo orden respalda el picking y la sugerencia de
// asignación, para resultados reproducibles.
func SortFEFO(balances []LotBalance) {
	sort.SliceStable(balances, func(i, j int) bool {
		a, b := balances[i], balances[j]
		switch {
		case a.ExpiresAt == nil && b.ExpiresAt == nil:
			return a.LotID < b.LotID
		case a.ExpiresAt == nil:
			return false
		case b.ExpiresAt == nil:
			return true
		case a.ExpiresAt.Equal(*b.ExpiresAt):
			return a.LotID < b.LotID
		default:
			return a.ExpiresAt.Before(*b.ExpiresAt)
		}
	})
}

// Pick consume lotes en orden FEFO hasta cubrir requested. Los lotes vencidos
// a la fecha now se omiten salvo allowExpired. Si el balance elegible total no
// alcanza, no hay asignación parcial: retorna InsufficientBalanceError con
// solicitado y disponible.
func Pick(itemID, warehouseID string, balances []LotBalance, requested decimal.Decimal, allowExpired bool, now time.Time) ([]Allocation, error) {
	if !requested.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}

	ordered := make([]LotBalance, len(balances))
	copy(ordered, balances)
	SortFEFO(ordered)

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	eligible := ordered[:0]
	available := decimal.Zero
	for _, b := range ordered {
		if !b.Balance.GreaterThan(decimal.Zero) {
			continue
		}
		if !allowExpired && b.ExpiresAt != nil && b.ExpiresAt.Before(today) {
			continue
		}
		eligible = append(eligible, b)
		available = available.Add(b.Balance)
	}

	if available.LessThan(requested) {
		return nil, &domain.InsufficientBalanceError{
			ItemID:      itemID,
			WarehouseID: warehouseID,
			Requested:   requested,
			Available:   available,
		}
	}

	remaining := requested
	allocs := make([]Allocation, 0, len(eligible))
	for _, b := range eligible {
		if !remaining.GreaterThan(decimal.Zero) {
			break
		}
		take := decimal.Min(b.Balance, remaining)
		allocs = append(allocs, Allocation{LotID: b.LotID, LotCode: b.LotCode, Quantity: take})
		remaining = remaining.Sub(take)
	}
	return allocs, nil
}
