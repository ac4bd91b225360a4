package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

var (
	// ErrKeyNotFound is returned by Store.Get when the key is absent or expired.
	ErrKeyNotFound = errors.New("key not found")

	// ErrConnectivity marks transient transport failures: refused or reset
	// connections, timeouts, closed streams. The client retries these.
	ErrConnectivity = errors.New("store connectivity error")

	// ErrBackend marks failures the backend reported itself. Never retried.
	ErrBackend = errors.New("store backend error")

	// ErrExhausted is returned once the retry budget ran out or the caller's
	// context ended while still failing with connectivity errors.
	ErrExhausted = errors.New("store retries exhausted")
)

// IsConnectivity reports whether err is a retryable transport failure.
func IsConnectivity(err error) bool {
	return errors.Is(err, ErrConnectivity)
}

// classify tags a raw driver error as ErrConnectivity or ErrBackend.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConnectivity) || errors.Is(err, ErrBackend) {
		return err
	}
	if isTransport(err) {
		return fmt.Errorf("%w: %w", ErrConnectivity, err)
	}
	return fmt.Errorf("%w: %w", ErrBackend, err)
}

func isTransport(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
