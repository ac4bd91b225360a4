// Package storage provides the key-value persistence used by the scoring
// service: a local Store, remote Backends, and the resilient Client that the
// request handlers talk to.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│        Request handlers             │
//	│   (score cache, interests lookup)   │
//	└─────────────────────────────────────┘
//	                 │
//	                 ▼
//	┌─────────────────────────────────────┐
//	│              Client                 │
//	│  retry policy, throttle, metrics    │
//	└─────────────────────────────────────┘
//	                 │
//	    ┌────────────┼────────────┐
//	    ▼            ▼            ▼
//	┌────────┐  ┌────────┐  ┌────────┐
//	│ Memory │  │ Redis  │  │  Node  │
//	│Backend │  │Backend │  │Backend │
//	└────────┘  └────────┘  └────────┘
//
// # Store
//
// Store is the local, synchronous contract served by MemoryStore and used by
// the shards of a store node. Values are copied on the way in and out.
// PutTTL attaches an expiry; expired entries are invisible to Get, List and
// Stats and are dropped on the next write.
//
// # Backend
//
// A Backend reaches a store over the network. Get returns (nil, nil) when
// the key is absent. Every error is tagged:
//
//   - ErrConnectivity: refused or reset connections, timeouts, closed
//     streams, 502/503/504 from a node. Retrying may help.
//   - ErrBackend: anything the store itself rejected. Never retried.
//
// # Client
//
// Client runs Backend calls under a retry.Policy (20 attempts, exponential
// backoff from 100ms to 15m with Gaussian jitter by default). Once the budget
// is spent, or the caller's context ends, the error wraps ErrExhausted along
// with the last connectivity failure. Get and Set surface errors; CacheGet
// and CacheSet use a smaller budget and never fail the caller.
//
// Usage:
//
//	backend, err := storage.NewRedisBackend(ctx, storage.RedisOptions{Addr: "localhost:6379"})
//	if err != nil {
//	    return err
//	}
//	store := storage.NewClient(backend, storage.Options{Logger: log})
//	defer store.Close()
//
//	raw, err := store.Get(ctx, "i:42")
package storage
