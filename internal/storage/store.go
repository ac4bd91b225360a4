package storage

import (
	"sync"
	"time"
)

// Store defines the interface for local key-value storage
// All implementations must be thread-safe for concurrent access
type Store interface {
	// Get retrieves a value by key
	// Returns ErrKeyNotFound if the key doesn't exist or has expired
	Get(key string) ([]byte, error)

	// Put stores a value with the given key and no expiry
	Put(key string, value []byte) error

	// PutTTL stores a value that expires after ttl; ttl <= 0 never expires
	PutTTL(key string, value []byte, ttl time.Duration) error

	// Delete removes a key-value pair
	// No error if key doesn't exist
	Delete(key string) error

	// List returns all live keys in the store
	// Order is not guaranteed
	List() []string

	// Stats returns storage statistics
	Stats() StoreStats
}

// StoreStats contains statistics about the store
type StoreStats struct {
	Keys  int `json:"keys"`  // Number of live keys
	Bytes int `json:"bytes"` // Total size of all live values in bytes
}

type entry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// MemoryStore implements Store with in-memory storage
// Expired entries are hidden from reads and dropped lazily on write
type MemoryStore struct {
	mu   sync.RWMutex     // Protects concurrent access
	data map[string]entry // Key-value storage
	now  func() time.Time // Clock, replaceable in tests
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]entry),
		now:  time.Now,
	}
}

// Get retrieves a value by key
// Returns a copy of the value to prevent external modification
func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.data[key]
	if !exists || e.expired(m.now()) {
		return nil, ErrKeyNotFound
	}

	result := make([]byte, len(e.value))
	copy(result, e.value)
	return result, nil
}

// Put stores a value with the given key
func (m *MemoryStore) Put(key string, value []byte) error {
	return m.PutTTL(key, value, 0)
}

// PutTTL stores a copy of value, expiring it after ttl when ttl > 0
func (m *MemoryStore) PutTTL(key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)

	e := entry{value: stored}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.data[key] = e
	m.sweepLocked()

	return nil
}

// Delete removes a key-value pair
// No error if key doesn't exist (idempotent)
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// List returns all live keys in the store
func (m *MemoryStore) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	keys := make([]string, 0, len(m.data))
	for key, e := range m.data {
		if !e.expired(now) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Stats returns storage statistics for live entries
func (m *MemoryStore) Stats() StoreStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	stats := StoreStats{}
	for _, e := range m.data {
		if e.expired(now) {
			continue
		}
		stats.Keys++
		stats.Bytes += len(e.value)
	}
	return stats
}

// sweepLocked drops expired entries. Caller must hold the write lock.
func (m *MemoryStore) sweepLocked() {
	now := m.now()
	for key, e := range m.data {
		if e.expired(now) {
			delete(m.data, key)
		}
	}
}
