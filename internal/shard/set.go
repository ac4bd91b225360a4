package shard

import (
	"sync"

	"golang.org/x/exp/slices"
)

// Set holds the shards of one store node. Shards are created on first use.
type Set struct {
	mu     sync.RWMutex
	shards map[int]*Shard

	// OnCreate, when set, is called once per newly created shard.
	OnCreate func(id int)
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{shards: make(map[int]*Shard)}
}

// Get returns the shard with id, or nil.
func (s *Set) Get(id int) *Shard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shards[id]
}

// GetOrCreate returns the shard with id, creating it when missing.
func (s *Set) GetOrCreate(id int) *Shard {
	if sh := s.Get(id); sh != nil {
		return sh
	}

	s.mu.Lock()
	sh, ok := s.shards[id]
	if !ok {
		sh = NewShard(id)
		s.shards[id] = sh
	}
	s.mu.Unlock()

	if !ok && s.OnCreate != nil {
		s.OnCreate(id)
	}
	return sh
}

// Infos describes every shard, ordered by id.
func (s *Set) Infos() []ShardInfo {
	s.mu.RLock()
	infos := make([]ShardInfo, 0, len(s.shards))
	for _, sh := range s.shards {
		infos = append(infos, sh.Info())
	}
	s.mu.RUnlock()

	slices.SortFunc(infos, func(a, b ShardInfo) int { return a.ID - b.ID })
	return infos
}

// Len returns the number of shards.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.shards)
}
