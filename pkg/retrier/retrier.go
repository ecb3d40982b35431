// Package retrier retries transient failures with exponential backoff
// and jitter. An error wrapped in Permanent stops the loop immediately
// and propagates unchanged; resolver clients use that for failures no
// retry can fix, like an unresolvable place name.
package retrier

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultBase     = 500 * time.Millisecond
	defaultCap      = 15 * time.Second
	defaultFactor   = 2.0
	defaultAttempts = 4
	defaultJitter   = 0.2
)

// Retrier runs a function until it succeeds, returns a permanent error
// or exhausts its attempts.
type Retrier struct {
	base     time.Duration
	cap      time.Duration
	factor   float64
	attempts int
	jitter   float64
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithBase sets the first backoff interval.
func WithBase(d time.Duration) Option {
	return func(r *Retrier) { r.base = d }
}

// WithCap bounds the backoff interval.
func WithCap(d time.Duration) Option {
	return func(r *Retrier) { r.cap = d }
}

// WithFactor sets the backoff growth factor.
func WithFactor(f float64) Option {
	return func(r *Retrier) { r.factor = f }
}

// WithAttempts sets the total attempt count, first try included.
func WithAttempts(n int) Option {
	return func(r *Retrier) { r.attempts = n }
}

// WithJitter sets the jitter fraction of the interval, 0 to 1.
func WithJitter(j float64) Option {
	return func(r *Retrier) { r.jitter = j }
}

// New builds a Retrier from the defaults and the given options.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		base:     defaultBase,
		cap:      defaultCap,
		factor:   defaultFactor,
		attempts: defaultAttempts,
		jitter:   defaultJitter,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not retryable. Do unwraps it before
// returning, so callers never see the marker.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn until success, a permanent error, context cancellation or
// attempt exhaustion, whichever comes first.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	interval := r.base
	var err error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			wait := float64(interval)
			wait += (rand.Float64()*2 - 1) * r.jitter * wait
			if wait < 0 {
				wait = 0
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(wait)):
			}
			interval = time.Duration(float64(interval) * r.factor)
			if interval > r.cap {
				interval = r.cap
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if perm, ok := err.(*permanentError); ok {
			return perm.err
		}
	}
	return err
}

// DoWithData is Do for functions that return a value.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}
