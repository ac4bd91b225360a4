package main

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/dreamware/scoring/internal/metrics"
	"github.com/dreamware/scoring/internal/shard"
	"github.com/dreamware/scoring/internal/storage"
)

// maxValueBytes caps a stored value.
const maxValueBytes = 1 << 20

// maxTTLSeconds is the longest TTL a time.Duration can hold.
const maxTTLSeconds = math.MaxInt64 / int64(time.Second)

// Node is the runtime state of a store node: its identity and the shards it
// has served so far.
type Node struct {
	ID     string
	shards *shard.Set
	log    logrus.FieldLogger
}

// NewNode creates a node with no shards. Shards are created on the first
// request that names them.
func NewNode(id string, log logrus.FieldLogger) *Node {
	if log == nil {
		log = logrus.StandardLogger()
	}
	n := &Node{
		ID:     id,
		shards: shard.NewSet(),
		log:    log.WithField("node", id),
	}
	n.shards.OnCreate = func(shardID int) {
		n.log.WithField("shard", shardID).Info("creating shard on demand")
	}
	return n
}

// routes wires the node's HTTP API:
//
//	GET    /health
//	GET    /info
//	GET    /metrics
//	GET    /shard/{id}/store          list keys
//	GET    /shard/{id}/store/{key}    read
//	PUT    /shard/{id}/store/{key}    write, optional X-TTL-Seconds
//	DELETE /shard/{id}/store/{key}    delete
//	GET    /shard/{id}/stats
//	PUT    /shard/{id}/state          {"state": "active"|"draining"}
func (n *Node) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	r.HandleFunc("/info", n.handleInfo).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	s := r.PathPrefix("/shard/{id:[0-9]+}").Subrouter()
	s.Handle("/store", n.instrument("/shard/store", n.handleListKeys)).Methods(http.MethodGet)
	s.Handle("/store/", n.instrument("/shard/store", n.handleListKeys)).Methods(http.MethodGet)
	s.Handle("/store/{key:.+}", n.instrument("/shard/store/key", n.handleGet)).Methods(http.MethodGet)
	s.Handle("/store/{key:.+}", n.instrument("/shard/store/key", n.handlePut)).Methods(http.MethodPut)
	s.Handle("/store/{key:.+}", n.instrument("/shard/store/key", n.handleDelete)).Methods(http.MethodDelete)
	s.HandleFunc("/stats", n.withShard(n.handleStats)).Methods(http.MethodGet)
	s.HandleFunc("/state", n.withShard(n.handleState)).Methods(http.MethodPut)

	return r
}

type shardHandler func(w http.ResponseWriter, r *http.Request, s *shard.Shard)

// withShard resolves {id} to its shard, creating it on demand.
func (n *Node) withShard(h shardHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(mux.Vars(r)["id"])
		if err != nil {
			http.Error(w, "invalid shard ID", http.StatusBadRequest)
			return
		}
		h(w, r, n.shards.GetOrCreate(id))
	}
}

func (n *Node) instrument(path string, h shardHandler) http.Handler {
	return metrics.InstrumentHandler(path, n.withShard(h))
}

func (n *Node) handleGet(w http.ResponseWriter, r *http.Request, s *shard.Shard) {
	value, err := s.Get(mux.Vars(r)["key"])
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			http.Error(w, "key not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := w.Write(value); err != nil {
		n.log.WithError(err).Warn("write response")
	}
}

func (n *Node) handlePut(w http.ResponseWriter, r *http.Request, s *shard.Shard) {
	var ttl time.Duration
	if raw := r.Header.Get(storage.TTLHeader); raw != "" {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || secs < 0 || secs > maxTTLSeconds {
			http.Error(w, "invalid "+storage.TTLHeader, http.StatusBadRequest)
			return
		}
		ttl = time.Duration(secs) * time.Second
	}

	value, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxValueBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := s.Put(mux.Vars(r)["key"], value, ttl); err != nil {
		n.writeStoreError(w, s, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (n *Node) handleDelete(w http.ResponseWriter, r *http.Request, s *shard.Shard) {
	if err := s.Delete(mux.Vars(r)["key"]); err != nil {
		n.writeStoreError(w, s, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeStoreError answers a failed write. A draining shard is temporarily
// unavailable, so callers may retry it.
func (n *Node) writeStoreError(w http.ResponseWriter, s *shard.Shard, err error) {
	if errors.Is(err, shard.ErrReadOnly) {
		w.Header().Set("Retry-After", "1")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	n.log.WithField("shard", s.ID).WithError(err).Error("store write failed")
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (n *Node) handleListKeys(w http.ResponseWriter, _ *http.Request, s *shard.Shard) {
	keys := s.ListKeys()
	writeJSON(w, http.StatusOK, struct {
		Keys  []string `json:"keys"`
		Count int      `json:"count"`
	}{
		Keys:  keys,
		Count: len(keys),
	})
}

func (n *Node) handleStats(w http.ResponseWriter, _ *http.Request, s *shard.Shard) {
	stats := s.GetStats()
	writeJSON(w, http.StatusOK, struct {
		ShardID int                  `json:"shard_id"`
		State   shard.ShardState     `json:"state"`
		Created time.Time            `json:"created"`
		Ops     shard.OperationStats `json:"operations"`
		Storage storage.StoreStats   `json:"storage"`
	}{
		ShardID: s.ID,
		State:   s.State(),
		Created: s.Created,
		Ops:     stats.Ops,
		Storage: stats.Storage,
	})
}

func (n *Node) handleState(w http.ResponseWriter, r *http.Request, s *shard.Shard) {
	var req struct {
		State shard.ShardState `json:"state"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1024)).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	switch req.State {
	case shard.ShardStateActive, shard.ShardStateDraining:
	default:
		http.Error(w, "unknown state", http.StatusBadRequest)
		return
	}

	if prev := s.State(); prev != req.State {
		s.SetState(req.State)
		n.log.WithFields(logrus.Fields{"shard": s.ID, "from": prev, "to": req.State}).Info("shard state changed")
	}
	writeJSON(w, http.StatusOK, s.Info())
}

func (n *Node) handleInfo(w http.ResponseWriter, _ *http.Request) {
	infos := n.shards.Infos()
	writeJSON(w, http.StatusOK, struct {
		NodeID string            `json:"node_id"`
		Shards []shard.ShardInfo `json:"shards"`
		Count  int               `json:"shard_count"`
	}{
		NodeID: n.ID,
		Shards: infos,
		Count:  len(infos),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
