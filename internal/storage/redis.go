package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures a RedisBackend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Timeout bounds connect, read and write on every command.
	Timeout time.Duration
}

// RedisBackend stores values in Redis with SET/GET.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to Redis and pings it once. The driver's own
// retries are disabled; Client owns the retry policy.
func NewRedisBackend(ctx context.Context, opts RedisOptions) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
		MaxRetries:   -1,
	})

	b := &RedisBackend{client: client}
	if err := b.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}
	return b, nil
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return v, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return classify(b.client.Set(ctx, key, value, ttl).Err())
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return classify(b.client.Ping(ctx).Err())
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
