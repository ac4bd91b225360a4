package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/dreamware/scoring/internal/metrics"
	"github.com/dreamware/scoring/internal/retry"
)

// DefaultCacheAttempts is the attempt ceiling for CacheGet and CacheSet.
const DefaultCacheAttempts = 3

// Options tunes a Client. The zero value gives the reference retry policy,
// a three-attempt cache budget, no throttling and concurrent access.
type Options struct {
	// Policy governs Get and Set. Its Retryable predicate is replaced with
	// IsConnectivity.
	Policy retry.Policy

	// CacheAttempts caps attempts for cache operations.
	CacheAttempts int

	// MaxQPS throttles backend calls across the client; 0 disables it.
	MaxQPS float64

	// Serialize makes backend calls mutually exclusive, for backends whose
	// connections cannot be shared.
	Serialize bool

	Logger logrus.FieldLogger
}

// Client is the resilient front of a Backend. Connectivity failures are
// retried under the policy; backend failures return at once.
type Client struct {
	backend     Backend
	policy      retry.Policy
	cachePolicy retry.Policy
	limiter     *rate.Limiter
	mu          *sync.Mutex
	log         logrus.FieldLogger
}

// NewClient wraps an already connected backend.
func NewClient(backend Backend, opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	policy := opts.Policy
	policy.Retryable = IsConnectivity

	cachePolicy := policy
	cachePolicy.MaxAttempts = opts.CacheAttempts
	if cachePolicy.MaxAttempts <= 0 {
		cachePolicy.MaxAttempts = DefaultCacheAttempts
	}

	c := &Client{
		backend:     backend,
		policy:      policy,
		cachePolicy: cachePolicy,
		log:         log.WithField("component", "store"),
	}
	if opts.MaxQPS > 0 {
		burst := int(opts.MaxQPS)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.MaxQPS), burst)
	}
	if opts.Serialize {
		c.mu = &sync.Mutex{}
	}

	c.policy.OnRetry = c.onRetry("store")
	c.cachePolicy.OnRetry = c.onRetry("cache")
	return c
}

func (c *Client) onRetry(kind string) func(int, error, time.Duration) {
	return func(attempt int, err error, delay time.Duration) {
		c.log.WithFields(logrus.Fields{
			"kind":    kind,
			"attempt": attempt,
			"delay":   delay,
		}).WithError(err).Warn("store unreachable, retrying")
	}
}

// Get returns the value under key, or nil when absent.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := retry.Value(ctx, c.policy, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, "get", key)
	})
	return v, wrap("get", key, err)
}

// Set stores value under key and reports whether the write was acknowledged.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		return c.set(ctx, "set", key, value, ttl)
	})
	if err != nil {
		return false, wrap("set", key, err)
	}
	return true, nil
}

// CacheGet is Get for values that may be recomputed; any failure is logged
// and reported as a miss.
func (c *Client) CacheGet(ctx context.Context, key string) []byte {
	v, err := retry.Value(ctx, c.cachePolicy, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, "cache_get", key)
	})
	if err != nil {
		c.log.WithField("key", key).WithError(err).Warn("cache read failed")
		return nil
	}
	return v
}

// CacheSet writes a recomputable value. Failures are logged and swallowed.
func (c *Client) CacheSet(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	err := c.cachePolicy.Do(ctx, func(ctx context.Context) error {
		return c.set(ctx, "cache_set", key, value, ttl)
	})
	if err != nil {
		c.log.WithField("key", key).WithError(err).Warn("cache write failed")
		return false
	}
	return true
}

// Ping checks the backend once, without retries.
func (c *Client) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}

// Close releases the backend connection.
func (c *Client) Close() error {
	return c.backend.Close()
}

func (c *Client) get(ctx context.Context, op, key string) ([]byte, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	if c.mu != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
	}
	v, err := c.backend.Get(ctx, key)
	record(op, err)
	return v, err
}

func (c *Client) set(ctx context.Context, op, key string, value []byte, ttl time.Duration) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	if c.mu != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
	}
	err := c.backend.Set(ctx, key, value, ttl)
	record(op, err)
	return err
}

// acquire waits for the rate limiter. A wait that cannot finish before the
// deadline counts as a connectivity failure.
func (c *Client) acquire(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: throttled: %w", ErrConnectivity, err)
	}
	return nil
}

func record(op string, err error) {
	switch {
	case err == nil:
		metrics.RecordStoreAttempt(op, "ok")
	case IsConnectivity(err):
		metrics.RecordStoreAttempt(op, "retryable")
	default:
		metrics.RecordStoreAttempt(op, "failed")
	}
}

// wrap names the operation and turns retry exhaustion into ErrExhausted.
func wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, retry.ErrExhausted) {
		return fmt.Errorf("%w: %s %q: %w", ErrExhausted, op, key, err)
	}
	if !errors.Is(err, ErrBackend) {
		err = fmt.Errorf("%w: %w", ErrBackend, err)
	}
	return fmt.Errorf("%s %q: %w", op, key, err)
}
