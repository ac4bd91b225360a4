package shard

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slices"

	"github.com/dreamware/scoring/internal/storage"
)

// ShardState represents the current state of a shard
type ShardState string

const (
	// ShardStateActive means the shard is serving requests
	ShardStateActive ShardState = "active"
	// ShardStateDraining means the shard serves reads but rejects writes
	ShardStateDraining ShardState = "draining"
)

// ErrReadOnly is returned by writes to a draining shard.
var ErrReadOnly = errors.New("shard is read-only")

// Shard is one partition of a store node's keyspace.
// Each shard owns the keys that ShardForKey maps to its ID.
type Shard struct {
	ID      int           // Shard identifier
	Store   storage.Store // Local storage for this shard
	Created time.Time     // When the shard was first touched

	state ShardState
	ops   OperationStats
	mu    sync.RWMutex // Protects state
}

// ShardStats tracks operational statistics for a shard
type ShardStats struct {
	Ops     OperationStats     `json:"operations"`
	Storage storage.StoreStats `json:"storage"`
}

// OperationStats tracks operation counts
type OperationStats struct {
	Gets    uint64 `json:"gets"`
	Misses  uint64 `json:"misses"`
	Puts    uint64 `json:"puts"`
	Deletes uint64 `json:"deletes"`
}

// ShardInfo contains metadata about a shard
type ShardInfo struct {
	ID       int        `json:"id"`
	State    ShardState `json:"state"`
	KeyCount int        `json:"keys"`
	ByteSize int        `json:"bytes"`
}

// NewShard creates a new active shard with in-memory storage
func NewShard(id int) *Shard {
	return &Shard{
		ID:      id,
		Store:   storage.NewMemoryStore(),
		Created: time.Now(),
		state:   ShardStateActive,
	}
}

// Get retrieves a value from the shard
func (s *Shard) Get(key string) ([]byte, error) {
	atomic.AddUint64(&s.ops.Gets, 1)
	v, err := s.Store.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		atomic.AddUint64(&s.ops.Misses, 1)
	}
	return v, err
}

// Put stores a value in the shard; ttl <= 0 keeps it forever
func (s *Shard) Put(key string, value []byte, ttl time.Duration) error {
	if s.State() != ShardStateActive {
		return ErrReadOnly
	}
	atomic.AddUint64(&s.ops.Puts, 1)
	return s.Store.PutTTL(key, value, ttl)
}

// Delete removes a key from the shard
func (s *Shard) Delete(key string) error {
	if s.State() != ShardStateActive {
		return ErrReadOnly
	}
	atomic.AddUint64(&s.ops.Deletes, 1)
	return s.Store.Delete(key)
}

// ListKeys returns the shard's live keys in sorted order
func (s *Shard) ListKeys() []string {
	keys := s.Store.List()
	slices.Sort(keys)
	return keys
}

// OwnsKey reports whether this shard owns key among numShards shards
func (s *Shard) OwnsKey(key string, numShards int) bool {
	if numShards <= 0 {
		return false
	}
	return storage.ShardForKey(key, numShards) == s.ID
}

// GetStats returns current shard statistics
func (s *Shard) GetStats() ShardStats {
	return ShardStats{
		Ops: OperationStats{
			Gets:    atomic.LoadUint64(&s.ops.Gets),
			Misses:  atomic.LoadUint64(&s.ops.Misses),
			Puts:    atomic.LoadUint64(&s.ops.Puts),
			Deletes: atomic.LoadUint64(&s.ops.Deletes),
		},
		Storage: s.Store.Stats(),
	}
}

// Info returns metadata about the shard
func (s *Shard) Info() ShardInfo {
	stats := s.Store.Stats()
	return ShardInfo{
		ID:       s.ID,
		State:    s.State(),
		KeyCount: stats.Keys,
		ByteSize: stats.Bytes,
	}
}

// State returns the shard state
func (s *Shard) State() ShardState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState updates the shard state
func (s *Shard) SetState(state ShardState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}
