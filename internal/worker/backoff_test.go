package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialPolicy_NoDecrecienteHastaElTope(t *testing.T) {
	p := ExponentialPolicy{Base: time.Second, Cap: 30 * time.Second, MaxAttempts: 8}

	prev := time.Duration(0)
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		delay, ok := p.NextDelay(attempt)
		require.True(t, ok, "intento %d aún dentro del máximo", attempt)

		assert.GreaterOrEqual(t, delay, prev-prev/10,
			"el retraso no decrece con el número de intento (módulo jitter)")
		assert.LessOrEqual(t, delay, p.Cap+p.Cap/10, "nunca supera el tope más su jitter")
		prev = delay
	}
}

func TestExponentialPolicy_BaseYDuplicacion(t *testing.T) {
	p := ExponentialPolicy{Base: 2 * time.Second, Cap: time.Minute, MaxAttempts: 5}

	d1, ok := p.NextDelay(1)
	require.True(t, ok)
	assert.GreaterOrEqual(t, d1, 2*time.Second, "primer fallo espera al menos la base")
	assert.LessOrEqual(t, d1, 2*time.Second+200*time.Millisecond, "jitter máximo 10%")

	d3, ok := p.NextDelay(3)
	require.True(t, ok)
	assert.GreaterOrEqual(t, d3, 8*time.Second, "tercer fallo: base*2^2")
	assert.LessOrEqual(t, d3, 8*time.Second+800*time.Millisecond)
}

func TestExponentialPolicy_AgotaIntentos(t *testing.T) {
	p := ExponentialPolicy{Base: time.Second, Cap: 10 * time.Second, MaxAttempts: 3}

	_, ok := p.NextDelay(3)
	assert.True(t, ok)
	_, ok = p.NextDelay(4)
	assert.False(t, ok, "superado el máximo, el mensaje va a la DLQ")
}

func TestImmediatePolicy(t *testing.T) {
	p := ImmediatePolicy{MaxAttempts: 2}

	delay, ok := p.NextDelay(1)
	assert.True(t, ok)
	assert.Zero(t, delay, "reencola de inmediato")

	_, ok = p.NextDelay(2)
	assert.True(t, ok)
	_, ok = p.NextDelay(3)
	assert.False(t, ok)
}
