package entity

import "time"

// Serial representa una unidad individual numerada de un ítem serializado.
// El número es único por ítem; la asociación a lote es opcional.
// El balance de un serial en cualquier bodega es siempre 0 o 1.
type Serial struct {
	ID        string
	ItemID    string
	Number    string
	LotID     *string
	CreatedAt time.Time
}
