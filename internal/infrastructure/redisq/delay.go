package redisq

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Las colas de retraso se nombran por TTL (delay:{cola}:{ttl_ms}) y se crean
// de forma perezosa la primera vez que se usa ese retraso; cada una enruta de
// vuelta a su cola principal cuando el mensaje vence. Son sorted sets con
// score = instante de vencimiento en unix ms.
const delayPrefix = "delay:"

// DelayScheduler administra las colas de retraso de una cola principal.
type DelayScheduler struct {
	rdb *redis.Client

	mu   sync.Mutex
	keys map[string]struct{} // claves de retraso ya creadas, cacheadas
}

// NewDelayScheduler construye el planificador de retrasos.
func NewDelayScheduler(rdb *redis.Client) *DelayScheduler {
	return &DelayScheduler{rdb: rdb, keys: make(map[string]struct{})}
}

func delayKey(queue string, ttl time.Duration) string {
	return delayPrefix + queue + ":" + strconv.FormatInt(ttl.Milliseconds(), 10)
}

// Delay publica el mensaje en la cola de retraso del TTL dado, creándola y
// cacheándola si es la primera vez que se usa ese retraso.
func (d *DelayScheduler) Delay(ctx context.Context, queue string, ttl time.Duration, msg Message) error {
	data, err := marshalMessage(msg)
	if err != nil {
		return err
	}
	key := delayKey(queue, ttl)

	d.mu.Lock()
	if _, ok := d.keys[key]; !ok {
		d.keys[key] = struct{}{}
		log.Debug().Str("delay_queue", key).Dur("ttl", ttl).Msg("cola de retraso creada")
	}
	d.mu.Unlock()

	readyAt := float64(time.Now().Add(ttl).UnixMilli())
	if err := d.rdb.ZAdd(ctx, key, redis.Z{Score: readyAt, Member: data}).Err(); err != nil {
		return fmt.Errorf("delay publish to %s: %w", key, err)
	}
	return nil
}

// Promote mueve a sus colas principales todos los mensajes retrasados cuyo
// TTL ya venció. Devuelve cuántos promovió.
func (d *DelayScheduler) Promote(ctx context.Context) (int, error) {
	keys, err := d.rdb.Keys(ctx, delayPrefix+"*").Result()
	if err != nil {
		return 0, fmt.Errorf("scan delay queues: %w", err)
	}
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	promoted := 0
	for _, key := range keys {
		queue, ok := mainQueueOf(key)
		if !ok {
			continue
		}
		members, err := d.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
		if err != nil {
			return promoted, err
		}
		for _, raw := range members {
			// LPUSH antes de ZREM: ante un corte a mitad, el mensaje se
			// duplica en vez de perderse; el worker idempotente lo absorbe.
			if err := d.rdb.LPush(ctx, queue, raw).Err(); err != nil {
				return promoted, err
			}
			if err := d.rdb.ZRem(ctx, key, raw).Err(); err != nil {
				return promoted, err
			}
			promoted++
		}
	}
	return promoted, nil
}

// mainQueueOf extrae la cola principal del nombre delay:{cola}:{ttl_ms}.
func mainQueueOf(delayQueueKey string) (string, bool) {
	rest := delayQueueKey[len(delayPrefix):]
	for i := len(rest) - 1; i >= 0; i-- {
		if rest[i] == ':' {
			return rest[:i], rest[:i] != ""
		}
	}
	return "", false
}
