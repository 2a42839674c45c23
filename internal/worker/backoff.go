package worker

import (
	"math/rand"
	"time"
)

// RetryPolicy es la abstracción única de reintentos, parametrizada por
// política. attempt es el número de fallos acumulados (1 = primer fallo).
// ok=false significa que los intentos se agotaron y el mensaje debe ir a la
// dead-letter queue, exactamente una vez.
type RetryPolicy interface {
	NextDelay(attempt int) (delay time.Duration, ok bool)
}

// ImmediatePolicy reencola de inmediato con el contador en la metadata del
// mensaje, hasta MaxAttempts.
type ImmediatePolicy struct {
	MaxAttempts int
}

// NextDelay retorna retraso cero mientras queden intentos.
func (p ImmediatePolicy) NextDelay(attempt int) (time.Duration, bool) {
	if attempt > p.MaxAttempts {
		return 0, false
	}
	return 0, true
}

// ExponentialPolicy calcula min(Base * 2^(attempt-1), Cap) más hasta un 10%
// de jitter aleatorio. El retraso es no-decreciente en el número de intento
// hasta el tope.
type ExponentialPolicy struct {
	Base        time.Duration
	Cap         time.Duration
	MaxAttempts int
}

// NextDelay retorna el retraso exponencial con jitter para el intento dado.
func (p ExponentialPolicy) NextDelay(attempt int) (time.Duration, bool) {
	if attempt > p.MaxAttempts {
		return 0, false
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := p.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.Cap {
			delay = p.Cap
			break
		}
	}
	if delay > p.Cap {
		delay = p.Cap
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/10 + 1))
	return delay + jitter, true
}
