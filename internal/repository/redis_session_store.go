package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisSessionBackend guarda blobs de sesion en Redis bajo un prefijo.
type RedisSessionBackend struct {
	client redisKV
	prefix string
	ttl    time.Duration
}

// NewRedisSessionBackend crea el backend; ttl <= 0 significa sin expiracion.
func NewRedisSessionBackend(client *redis.Client, prefix string, ttl time.Duration) *RedisSessionBackend {
	if client == nil {
		return nil
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisSessionBackend{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (b *RedisSessionBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (b *RedisSessionBackend) Put(ctx context.Context, key string, value []byte) error {
	return b.client.Set(ctx, b.prefix+key, value, b.ttl).Err()
}

func (b *RedisSessionBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, b.prefix+key).Err()
}
