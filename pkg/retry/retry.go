package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Common errors
var (
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	ErrContextCanceled    = errors.New("context canceled during retry")
)

// Config contains retry configuration
type Config struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int
	// InitialInterval is the first backoff interval (default: 100ms)
	InitialInterval time.Duration
	// MaxInterval caps the backoff interval (default: 5s)
	MaxInterval time.Duration
	// Multiplier grows the interval after each retry (default: 2.0)
	Multiplier float64
	// JitterFactor is the ±fraction of random jitter (0-1)
	JitterFactor float64
	// RetryIf decides whether an error is worth another attempt.
	// Nil retries everything except PermanentError.
	RetryIf func(error) bool
}

// DefaultConfig returns default retry configuration: 100ms, 200ms, 400ms
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// Operation is the function to be retried
type Operation func(ctx context.Context) error

// PermanentError wraps an error indicating it should NOT be retried
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks an error as permanent (not retryable)
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Result describes how a retried operation ended
type Result struct {
	Err       error
	Attempts  int
	LastError error
}

// Retrier handles retry logic with exponential backoff
type Retrier struct {
	config Config
}

// New creates a new Retrier with the given configuration
func New(config *Config) *Retrier {
	if config == nil {
		config = DefaultConfig()
	}
	c := *config

	if c.InitialInterval <= 0 {
		c.InitialInterval = 100 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 5 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	c.JitterFactor = math.Max(0, math.Min(1, c.JitterFactor))

	return &Retrier{config: c}
}

// RetryCallback is called before each retry attempt
type RetryCallback func(attempt int, err error, nextInterval time.Duration)

// Do executes the operation with retry logic
func (r *Retrier) Do(ctx context.Context, op Operation) *Result {
	return r.DoWithCallback(ctx, op, nil)
}

// DoWithCallback executes the operation with retry logic and a callback
func (r *Retrier) DoWithCallback(ctx context.Context, op Operation, callback RetryCallback) *Result {
	result := &Result{}

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		if ctx.Err() != nil {
			result.Err = ErrContextCanceled
			return result
		}

		err := op(ctx)
		if err == nil {
			result.Err = nil
			result.LastError = nil
			return result
		}
		result.LastError = err

		if !r.shouldRetry(err) {
			var permErr *PermanentError
			if errors.As(err, &permErr) {
				err = permErr.Err
			}
			result.Err = err
			result.LastError = err
			return result
		}

		if attempt == r.config.MaxRetries {
			break
		}

		interval := r.interval(attempt)
		if callback != nil {
			callback(attempt+1, err, interval)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			result.Err = ErrContextCanceled
			return result
		case <-timer.C:
		}
	}

	result.Err = fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, result.LastError)
	return result
}

func (r *Retrier) shouldRetry(err error) bool {
	var permErr *PermanentError
	if errors.As(err, &permErr) {
		return false
	}
	if r.config.RetryIf != nil {
		return r.config.RetryIf(err)
	}
	return true
}

// interval returns initial * multiplier^attempt with jitter, capped at MaxInterval
func (r *Retrier) interval(attempt int) time.Duration {
	interval := float64(r.config.InitialInterval) * math.Pow(r.config.Multiplier, float64(attempt))

	if r.config.JitterFactor > 0 {
		jitter := interval * r.config.JitterFactor
		interval += (rand.Float64()*2 - 1) * jitter
	}

	if interval > float64(r.config.MaxInterval) {
		interval = float64(r.config.MaxInterval)
	}
	if interval < 0 {
		interval = float64(r.config.InitialInterval)
	}

	return time.Duration(interval)
}

// Do is a convenience function that creates a retrier and executes the operation
func Do(ctx context.Context, config *Config, op Operation) error {
	return New(config).Do(ctx, op).Err
}
