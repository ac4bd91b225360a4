package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// instantTimer fires immediately and records every requested delay.
type instantTimer struct {
	delays []time.Duration
	c      chan time.Time
}

func (t *instantTimer) Start(d time.Duration) {
	t.delays = append(t.delays, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

var errTransient = errors.New("connection refused")

func TestDoExhaustsAttempts(t *testing.T) {
	timer := &instantTimer{}
	p := Default(func(err error) bool { return errors.Is(err, errTransient) })
	p.Timer = timer
	p.Norm = func() float64 { return 0 }

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errTransient
	})

	require.Error(t, err)
	assert.Equal(t, 20, calls)
	assert.Len(t, timer.delays, 19)

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 20, ex.Attempts)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errTransient)

	// Without noise the sequence doubles from the floor up to the cap.
	assert.Equal(t, 100*time.Millisecond, timer.delays[0])
	assert.Equal(t, 200*time.Millisecond, timer.delays[1])
	assert.Equal(t, 400*time.Millisecond, timer.delays[2])
	for i := 1; i < len(timer.delays); i++ {
		assert.GreaterOrEqual(t, timer.delays[i], timer.delays[i-1])
		assert.LessOrEqual(t, timer.delays[i], DefaultMaxDelay)
	}
	assert.Equal(t, DefaultMaxDelay, timer.delays[len(timer.delays)-1])
}

func TestDoJitterNeverBelowFloor(t *testing.T) {
	timer := &instantTimer{}
	samples := []float64{-50, 3, -1, 0.5, -100}
	i := 0
	p := Policy{
		MaxAttempts: 8,
		Jitter:      DefaultJitter,
		Timer:       timer,
		Norm: func() float64 {
			v := samples[i%len(samples)]
			i++
			return v
		},
	}

	_ = p.Do(context.Background(), func(context.Context) error { return errTransient })

	require.Len(t, timer.delays, 7)
	for _, d := range timer.delays {
		assert.GreaterOrEqual(t, d, DefaultMinDelay)
	}
	// -50 standard deviations drags the second delay to the floor.
	assert.Equal(t, DefaultMinDelay, timer.delays[1])
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	timer := &instantTimer{}
	p := Policy{MaxAttempts: 5, Timer: timer}

	var retried []int
	p.OnRetry = func(attempt int, err error, _ time.Duration) {
		retried = append(retried, attempt)
		assert.ErrorIs(t, err, errTransient)
	}

	calls := 0
	got, err := Value(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errTransient
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoNonRetryableStopsImmediately(t *testing.T) {
	timer := &instantTimer{}
	errFatal := errors.New("syntax error")
	p := Default(func(err error) bool { return errors.Is(err, errTransient) })
	p.Timer = timer

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return errTransient
		}
		return errFatal
	})

	assert.Equal(t, 2, calls)
	assert.Same(t, errFatal, err)
	assert.NotErrorIs(t, err, ErrExhausted)
}

func TestDoCancelledContextCountsAsExhausted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	timer := &instantTimer{}
	p := Policy{MaxAttempts: 20, Timer: timer, Retryable: func(error) bool { return false }}

	calls := 0
	err := p.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return ctx.Err()
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicyDefaults(t *testing.T) {
	p := Policy{}.withDefaults()
	assert.Equal(t, DefaultMaxAttempts, p.MaxAttempts)
	assert.Equal(t, DefaultMinDelay, p.MinDelay)
	assert.Equal(t, DefaultMaxDelay, p.MaxDelay)
	assert.Equal(t, DefaultFactor, p.Factor)
	assert.NotNil(t, p.Norm)
}
