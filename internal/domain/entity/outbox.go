package entity

import "time"

// OutboxMessage es la intención de publicar un mensaje a la cola, escrita en
// la misma transacción que reclama el traslado (SENT). El relay la publica y
// la marca despachada; una republicación es inocua porque el worker es idempotente.
type OutboxMessage struct {
	ID           string
	Queue        string
	Payload      []byte
	CreatedAt    time.Time
	DispatchedAt *time.Time
}
