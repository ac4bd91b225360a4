package storage

import (
	"context"
	"errors"
	"time"
)

// Backend is a remote key-value store reached over the network.
//
// Get returns (nil, nil) for an absent key. Errors are tagged with
// ErrConnectivity when retrying may help and ErrBackend otherwise.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// MemoryBackend serves a local Store through the Backend contract. It backs
// the service when no external store is configured, and tests.
type MemoryBackend struct {
	store Store
}

// NewMemoryBackend wraps store; a nil store gets a fresh MemoryStore.
func NewMemoryBackend(store Store) *MemoryBackend {
	if store == nil {
		store = NewMemoryStore()
	}
	return &MemoryBackend{store: store}
}

func (b *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(err)
	}
	v, err := b.store.Get(key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	return v, classify(err)
}

func (b *MemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return classify(err)
	}
	return classify(b.store.PutTTL(key, value, ttl))
}

func (b *MemoryBackend) Ping(ctx context.Context) error {
	return classify(ctx.Err())
}

func (b *MemoryBackend) Close() error { return nil }
