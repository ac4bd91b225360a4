package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryStore tests the in-memory store implementation
func TestMemoryStore(t *testing.T) {
	t.Run("new store is empty", func(t *testing.T) {
		store := NewMemoryStore()

		assert.Empty(t, store.List())
		_, err := store.Get("nonexistent")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("put overwrite delete", func(t *testing.T) {
		store := NewMemoryStore()

		require.NoError(t, store.Put("key1", []byte("value1")))
		require.NoError(t, store.Put("key1", []byte("value2")))

		value, err := store.Get("key1")
		require.NoError(t, err)
		assert.Equal(t, []byte("value2"), value)

		require.NoError(t, store.Delete("key1"))
		require.NoError(t, store.Delete("key1"), "delete is idempotent")
		_, err = store.Get("key1")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("values are copied", func(t *testing.T) {
		store := NewMemoryStore()
		original := []byte("abc")
		require.NoError(t, store.Put("k", original))

		original[0] = 'x'
		got, _ := store.Get("k")
		assert.Equal(t, []byte("abc"), got)

		got[1] = 'y'
		again, _ := store.Get("k")
		assert.Equal(t, []byte("abc"), again)
	})

	t.Run("ttl expiry", func(t *testing.T) {
		store := NewMemoryStore()
		clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		store.now = func() time.Time { return clock }

		require.NoError(t, store.PutTTL("short", []byte("v"), time.Minute))
		require.NoError(t, store.Put("forever", []byte("v")))

		_, err := store.Get("short")
		require.NoError(t, err)

		clock = clock.Add(time.Minute)
		_, err = store.Get("short")
		assert.ErrorIs(t, err, ErrKeyNotFound)
		assert.Equal(t, []string{"forever"}, store.List())
		assert.Equal(t, StoreStats{Keys: 1, Bytes: 1}, store.Stats())

		// The next write sweeps the expired entry out.
		require.NoError(t, store.Put("other", nil))
		store.mu.RLock()
		_, present := store.data["short"]
		store.mu.RUnlock()
		assert.False(t, present)
	})
}

// TestMemoryStoreConcurrency tests thread-safe concurrent access
func TestMemoryStoreConcurrency(t *testing.T) {
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = store.PutTTL(fmt.Sprintf("key-%d-%d", id, j), []byte("v"), time.Hour)
			}
		}(i)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = store.Get(fmt.Sprintf("key-%d-%d", id, j))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				store.List()
				store.Stats()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, store.List(), 50*100)
}

// TestStoreInterface verifies the Store interface contract
func TestStoreInterface(t *testing.T) {
	var _ Store = (*MemoryStore)(nil)
	var _ Backend = (*MemoryBackend)(nil)
	var _ Backend = (*RedisBackend)(nil)
	var _ Backend = (*NodeBackend)(nil)
}

// TestMemoryStoreStats tests the statistics functionality
func TestMemoryStoreStats(t *testing.T) {
	store := NewMemoryStore()
	assert.Equal(t, StoreStats{}, store.Stats())

	store.Put("key1", []byte("value1"))
	store.Put("key2", []byte("value22"))
	store.Put("key3", []byte("value333"))
	assert.Equal(t, StoreStats{Keys: 3, Bytes: 6 + 7 + 8}, store.Stats())

	store.Delete("key2")
	assert.Equal(t, StoreStats{Keys: 2, Bytes: 6 + 8}, store.Stats())
}
