package storage

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// TTLHeader carries the expiry, in whole seconds, of a value written to a
// store node.
const TTLHeader = "X-TTL-Seconds"

// ShardForKey maps key onto one of numShards shards with FNV-1a.
func ShardForKey(key string, numShards int) int {
	if numShards <= 0 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(numShards))
}

// NodeOptions configures a NodeBackend.
type NodeOptions struct {
	// Addr is the node's base URL, e.g. http://127.0.0.1:8081.
	Addr string

	// Shards is the number of shards keys are spread across.
	Shards int

	// Timeout bounds every HTTP round trip.
	Timeout time.Duration
}

// NodeBackend talks to a storenode over its shard HTTP API.
type NodeBackend struct {
	base   string
	shards int
	client *http.Client
}

// NewNodeBackend builds a client for the node at opts.Addr and checks its
// /health endpoint once.
func NewNodeBackend(ctx context.Context, opts NodeOptions) (*NodeBackend, error) {
	if opts.Shards <= 0 {
		opts.Shards = 1
	}
	b := &NodeBackend{
		base:   strings.TrimRight(opts.Addr, "/"),
		shards: opts.Shards,
		client: &http.Client{Timeout: opts.Timeout},
	}
	if err := b.Ping(ctx); err != nil {
		return nil, fmt.Errorf("connect store node %s: %w", opts.Addr, err)
	}
	return b, nil
}

func (b *NodeBackend) keyURL(key string) string {
	return fmt.Sprintf("%s/shard/%d/store/%s", b.base, ShardForKey(key, b.shards), url.PathEscape(key))
}

func (b *NodeBackend) Get(ctx context.Context, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.keyURL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackend, err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, statusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err)
	}
	return body, nil
}

func (b *NodeBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.keyURL(key), bytes.NewReader(value))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}
	if ttl > 0 {
		secs := int64(ttl / time.Second)
		if secs < 1 {
			secs = 1
		}
		req.Header.Set(TTLHeader, strconv.FormatInt(secs, 10))
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError(resp)
	}
	return nil
}

func (b *NodeBackend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.base+"/health", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

func (b *NodeBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

// statusError maps gateway and availability statuses to ErrConnectivity and
// everything else to ErrBackend.
func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	text := strings.TrimSpace(string(msg))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		return fmt.Errorf("%w: node returned %d: %s", ErrConnectivity, resp.StatusCode, text)
	}
	return fmt.Errorf("%w: node returned %d: %s", ErrBackend, resp.StatusCode, text)
}
