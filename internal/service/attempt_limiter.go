package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter acota cuantas veces una clave (ip + accion) puede tocar el servicio remoto.
// Cuando niega, devuelve cuanto falta para que se libere un lugar.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration)
}

type memoryAttemptLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	now    func() time.Time
	hits   map[string][]time.Time

	lastSweep time.Time
}

// NewMemoryAttemptLimiter crea un limitador de ventana deslizante en memoria.
func NewMemoryAttemptLimiter(window time.Duration, max int) AttemptLimiter {
	return newMemoryAttemptLimiter(window, max, time.Now)
}

func newMemoryAttemptLimiter(window time.Duration, max int, now func() time.Time) *memoryAttemptLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &memoryAttemptLimiter{
		window: window,
		max:    max,
		now:    now,
		hits:   make(map[string][]time.Time),
	}
}

func (l *memoryAttemptLimiter) Allow(_ context.Context, key string) (bool, time.Duration) {
	key = normalizeLimitKey(key)
	if key == "" {
		return false, l.window
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	if now.Sub(l.lastSweep) >= l.window {
		l.sweepLocked(cutoff)
		l.lastSweep = now
	}
	kept := l.hits[key][:0]
	for _, ts := range l.hits[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false, kept[0].Add(l.window).Sub(now)
	}
	l.hits[key] = append(kept, now)
	return true, 0
}

// sweepLocked borra las claves cuyo ultimo intento ya salio de la ventana.
func (l *memoryAttemptLimiter) sweepLocked(cutoff time.Time) {
	for key, hits := range l.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(l.hits, key)
		}
	}
}

const redisAttemptScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisAttemptLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

// NewRedisAttemptLimiter comparte el conteo entre procesos con una ventana fija por clave.
// Si redis no responde el limitador deja pasar.
func NewRedisAttemptLimiter(client *redis.Client, prefix string, window time.Duration, max int) AttemptLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	if prefix == "" {
		prefix = "admin-panel:attempts:"
	}
	return &redisAttemptLimiter{client: client, window: window, max: max, prefix: prefix}
}

func (l *redisAttemptLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	if l == nil || l.client == nil {
		return true, 0
	}
	key = normalizeLimitKey(key)
	if key == "" {
		return false, l.window
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	res, err := l.client.Eval(ctx, redisAttemptScript, []string{l.prefix + key}, l.window.Milliseconds()).Slice()
	if err != nil || len(res) != 2 {
		return true, 0
	}
	count, _ := res[0].(int64)
	ttl, _ := res[1].(int64)
	if count <= int64(l.max) {
		return true, 0
	}
	if ttl <= 0 {
		ttl = l.window.Milliseconds()
	}
	return false, time.Duration(ttl) * time.Millisecond
}

func normalizeLimitKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
