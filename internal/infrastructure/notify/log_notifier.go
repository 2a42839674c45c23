package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier publica notificaciones de negocio como entradas de log
// estructuradas. Es best-effort: nunca retorna error ni bloquea un commit.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier construye el notificador con un sublogger propio.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notify").Logger()}
}

// Notify emite la notificación con sus campos como entrada info.
func (n *LogNotifier) Notify(_ context.Context, event string, fields map[string]string) {
	e := n.log.Info().Str("event", event)
	for k, v := range fields {
		e = e.Str(k, v)
	}
	e.Msg("notificación")
}
