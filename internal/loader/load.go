package loader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"
)

// ErrLoadTimeout is returned when a single load attempt exceeds its timeout.
var ErrLoadTimeout = errors.New("stem load timed out")

// Load runs decode(path) with a per-attempt timeout. decode itself is not
// interrupted; a result that arrives after the timeout is closed if it has
// a Close method.
func Load[T any](ctx context.Context, path string, timeout time.Duration, decode func(string) (T, error)) (T, error) {
	var zero T
	if timeout <= 0 {
		return decode(path)
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := decode(path)
		done <- result{v, err}
	}()

	// abandon closes a result that arrives after the caller gave up on it.
	abandon := func() {
		go func() {
			r := <-done
			if r.err != nil {
				return
			}
			if c, ok := any(r.v).(interface{ Close() }); ok {
				log.Printf("closing late result for %s", filepath.Base(path))
				c.Close()
			}
		}()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-done:
		return r.v, r.err
	case <-timer.C:
		abandon()
		return zero, fmt.Errorf("%w: %s after %v", ErrLoadTimeout, filepath.Base(path), timeout)
	case <-ctx.Done():
		abandon()
		return zero, ctx.Err()
	}
}

// Retry calls fn up to attempts times, sleeping backoff before the second
// attempt and doubling it each time after.
func Retry(ctx context.Context, attempts int, backoff time.Duration, fn func(attempt int) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		log.Printf("attempt %d/%d failed: %v, retrying in %v", attempt, attempts, err, backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return err
}

// Options configures LoadWithRetry.
type Options struct {
	Timeout  time.Duration
	Attempts int
	Backoff  time.Duration
}

// LoadWithRetry combines Load and Retry.
func LoadWithRetry[T any](ctx context.Context, path string, opts Options, decode func(string) (T, error)) (T, error) {
	var v T
	err := Retry(ctx, opts.Attempts, opts.Backoff, func(attempt int) error {
		log.Printf("loading %s (attempt %d)", filepath.Base(path), attempt)
		var err error
		v, err = Load(ctx, path, opts.Timeout, decode)
		return err
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("loading %s: %w", filepath.Base(path), err)
	}
	return v, nil
}
