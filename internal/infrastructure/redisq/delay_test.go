package redisq

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayKey(t *testing.T) {
	assert.Equal(t, "delay:jobs:transfers:2000", delayKey("jobs:transfers", 2*time.Second))
	assert.Equal(t, "delay:jobs:transfers:300000", delayKey("jobs:transfers", 5*time.Minute))
}

func TestMainQueueOf(t *testing.T) {
	// El nombre de la cola principal puede contener ':' (jobs:transfers);
	// el TTL es siempre el último segmento.
	queue, ok := mainQueueOf("delay:jobs:transfers:2000")
	require.True(t, ok)
	assert.Equal(t, "jobs:transfers", queue)

	queue, ok = mainQueueOf("delay:simple:500")
	require.True(t, ok)
	assert.Equal(t, "simple", queue)

	_, ok = mainQueueOf("delay:sin-ttl")
	assert.False(t, ok)
}

func TestMessage_AttemptsViajanEnElSobre(t *testing.T) {
	msg := Message{
		ID:         "m-1",
		Attempts:   3,
		Body:       json.RawMessage(`{"scheduled_id":"st-1"}`),
		EnqueuedAt: time.Now().UTC(),
	}
	data, err := marshalMessage(msg)
	require.NoError(t, err)

	var out Message
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, 3, out.Attempts, "el contador sobrevive la republicación")
	assert.Equal(t, "m-1", out.ID)
	assert.JSONEq(t, `{"scheduled_id":"st-1"}`, string(out.Body))
}
