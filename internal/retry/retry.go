// Package retry runs operations under a bounded-attempt exponential backoff
// with Gaussian jitter.
//
// The delay before the second attempt is MinDelay. After each failed attempt
// the delay is multiplied by Factor, capped at MaxDelay, perturbed by a
// normally distributed offset with standard deviation Jitter, and floored back
// to MinDelay. Only errors accepted by the Retryable predicate are retried;
// any other error ends the call at once.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Defaults match the store client's reference policy.
const (
	DefaultMaxAttempts = 20
	DefaultMinDelay    = 100 * time.Millisecond
	DefaultMaxDelay    = 15 * time.Minute
	DefaultFactor      = 2.0
	DefaultJitter      = 100 * time.Millisecond
)

// ErrExhausted is wrapped by the error returned when every attempt failed
// with a retryable error or the context ended between attempts.
var ErrExhausted = errors.New("retry budget exhausted")

// ExhaustedError carries the attempt count and the last retryable failure.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error { return []error{ErrExhausted, e.Last} }

// Policy configures a retry loop. The zero value is usable and takes the
// defaults above, retrying every error.
type Policy struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
	Factor      float64
	Jitter      time.Duration

	// Retryable decides whether an error may be retried. Nil retries all.
	Retryable func(error) bool

	// Norm draws a standard normal sample; defaults to rand.NormFloat64.
	Norm func() float64

	// Timer drives the waits between attempts; nil uses real time.
	Timer backoff.Timer

	// OnRetry is called before each wait with the failed attempt number,
	// its error and the upcoming delay.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Default returns the reference policy with the given retryable predicate.
func Default(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		MinDelay:    DefaultMinDelay,
		MaxDelay:    DefaultMaxDelay,
		Factor:      DefaultFactor,
		Jitter:      DefaultJitter,
		Retryable:   retryable,
	}
}

// Do calls op until it succeeds, returns a non-retryable error, the attempt
// ceiling is reached or ctx is done. Exhaustion and cancellation both return
// an *ExhaustedError; a non-retryable error is returned unchanged.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	p = p.withDefaults()

	attempts := 0
	permanent := false
	var last error
	operation := func() error {
		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() == nil && p.Retryable != nil && !p.Retryable(err) {
			permanent = true
			return backoff.Permanent(err)
		}
		last = err
		return err
	}

	var b backoff.BackOff = p.NewBackOff()
	b = backoff.WithContext(b, ctx)
	b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))

	notify := func(err error, d time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempts, err, d)
		}
	}

	err := backoff.RetryNotifyWithTimer(operation, b, notify, p.Timer)
	if err == nil {
		return nil
	}
	if permanent {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		switch {
		case last == nil:
			last = ctxErr
		case !errors.Is(last, ctxErr):
			last = fmt.Errorf("%w (last error: %v)", ctxErr, last)
		}
	}
	return &ExhaustedError{Attempts: attempts, Last: last}
}

// Value runs op under the policy and returns its result.
func Value[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// NewBackOff returns a fresh delay sequence for the policy.
func (p Policy) NewBackOff() backoff.BackOff {
	p = p.withDefaults()
	b := &gaussianBackOff{
		min:    p.MinDelay,
		max:    p.MaxDelay,
		factor: p.Factor,
		jitter: p.Jitter,
		norm:   p.Norm,
	}
	b.Reset()
	return b
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.MinDelay <= 0 {
		p.MinDelay = DefaultMinDelay
	}
	if p.MaxDelay < p.MinDelay {
		p.MaxDelay = DefaultMaxDelay
		if p.MaxDelay < p.MinDelay {
			p.MaxDelay = p.MinDelay
		}
	}
	if p.Factor < 1 {
		p.Factor = DefaultFactor
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Norm == nil {
		p.Norm = rand.NormFloat64
	}
	return p
}

// gaussianBackOff implements backoff.BackOff. Not safe for concurrent use;
// every Do call builds its own.
type gaussianBackOff struct {
	min, max time.Duration
	factor   float64
	jitter   time.Duration
	norm     func() float64
	current  time.Duration
}

func (b *gaussianBackOff) Reset() { b.current = b.min }

func (b *gaussianBackOff) NextBackOff() time.Duration {
	d := b.current

	next := time.Duration(float64(b.current) * b.factor)
	if next > b.max {
		next = b.max
	}
	next += time.Duration(b.norm() * float64(b.jitter))
	if next < b.min {
		next = b.min
	}
	b.current = next

	return d
}
