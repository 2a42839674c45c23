package entity

import "time"

// Lot representa un lote de un ítem: (item, código) es único y el vencimiento
// es opcional. Los lotes se crean de forma perezosa en la primera recepción y
// nunca se eliminan.
type Lot struct {
	ID        string
	ItemID    string
	Code      string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// IsExpired indica si el lote está vencido en la fecha dada (vencimiento
// estrictamente anterior al día de hoy; un lote que vence hoy aún es elegible).
func (l *Lot) IsExpired(now time.Time) bool {
	if l.ExpiresAt == nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return l.ExpiresAt.Before(today)
}
