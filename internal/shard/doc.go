// Package shard implements the storage unit of a store node: a thread-safe
// partition of the keyspace with its own local Store and operation counters.
//
// # Overview
//
// The scoring service can keep its cache and interests data on a store node
// instead of Redis. A node serves any number of shards; the client picks the
// shard for a key with storage.ShardForKey, so a node never has to be told
// about shard assignments. Shards are created on first use through Set.
//
//	┌─────────────────────────────────────┐
//	│            SHARD                    │
//	├─────────────────────────────────────┤
//	│  Key-Value Store                    │
//	│    - storage.MemoryStore            │
//	│    - per-key expiry                 │
//	│  Counters                           │
//	│    - gets, misses, puts, deletes    │
//	│  State                              │
//	│    - active or draining             │
//	└─────────────────────────────────────┘
//
// # States
//
// An active shard accepts reads and writes. A draining shard keeps serving
// reads and rejects writes with ErrReadOnly, which lets an operator empty a
// node before taking it down.
//
// # Usage
//
//	shards := shard.NewSet()
//	s := shards.GetOrCreate(storage.ShardForKey("i:42", 4))
//	_ = s.Put("i:42", []byte(`["cars","pets"]`), 0)
//	value, err := s.Get("i:42")
package shard
