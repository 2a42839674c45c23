package transfer

import "encoding/json"

// QueueTransfers es la cola principal de jobs de traslado programado.
// Su dead-letter queue se declara junto a ella al arranque.
const QueueTransfers = "jobs:transfers"

// Job es el payload publicado a la cola por cada traslado reclamado.
type Job struct {
	ScheduledID string `json:"scheduled_id"`
}

// Encode serializa el job para la outbox / la cola.
func (j Job) Encode() ([]byte, error) {
	return json.Marshal(j)
}

// DecodeJob deserializa un payload de la cola.
func DecodeJob(payload []byte) (Job, error) {
	var j Job
	err := json.Unmarshal(payload, &j)
	return j, err
}
