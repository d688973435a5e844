// Package backoff provides an exponential backoff schedule with optional
// positive jitter, plus a small retry loop built on top of it.
package backoff

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Defaults and limits, in milliseconds.
const (
	DefaultBaseMs = 1000
	DefaultFactor = 2
	DefaultMaxMs  = 30000
	DefaultJitter = 0.2

	MinBaseMs = 50
)

type config struct {
	baseMs float64
	factor float64
	maxMs  float64
	jitter float64
	random func() float64
}

// Option customizes a Backoff.
type Option func(*config)

// WithBase sets the first delay. NaN or values below 50ms clamp to 50ms.
func WithBase(ms float64) Option { return func(c *config) { c.baseMs = ms } }

// WithFactor sets the growth factor. Values below 1 or non-finite fall back
// to 2.
func WithFactor(f float64) Option { return func(c *config) { c.factor = f } }

// WithMax caps every delay. Non-finite values, or values below the base,
// clamp to the base.
func WithMax(ms float64) Option { return func(c *config) { c.maxMs = ms } }

// WithJitter sets the jitter ratio. Jitter only ever adds delay; negative or
// non-finite ratios mean no jitter.
func WithJitter(ratio float64) Option { return func(c *config) { c.jitter = ratio } }

// WithRandom replaces the [0,1) random source used for jitter.
func WithRandom(fn func() float64) Option { return func(c *config) { c.random = fn } }

// Backoff yields successive delays. It is not safe for concurrent use.
type Backoff struct {
	cfg     config
	attempt int
}

// New creates a Backoff. Options are normalized once here.
func New(opts ...Option) *Backoff {
	cfg := config{
		baseMs: DefaultBaseMs,
		factor: DefaultFactor,
		maxMs:  DefaultMaxMs,
		jitter: DefaultJitter,
		random: rand.Float64,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if math.IsNaN(cfg.baseMs) || cfg.baseMs < MinBaseMs {
		cfg.baseMs = MinBaseMs
	}
	if math.IsInf(cfg.baseMs, 0) {
		cfg.baseMs = DefaultBaseMs
	}
	if !finite(cfg.factor) || cfg.factor < 1 {
		cfg.factor = DefaultFactor
	}
	if !finite(cfg.maxMs) || cfg.maxMs < cfg.baseMs {
		cfg.maxMs = cfg.baseMs
	}
	if !finite(cfg.jitter) || cfg.jitter < 0 {
		cfg.jitter = 0
	}
	if cfg.random == nil {
		cfg.random = rand.Float64
	}
	return &Backoff{cfg: cfg}
}

// NextDelayMs returns the delay for the current attempt in milliseconds and
// advances the attempt counter.
func (b *Backoff) NextDelayMs() int64 {
	c := b.cfg
	normalized := math.Min(c.baseMs*math.Pow(c.factor, float64(b.attempt)), c.maxMs)
	delay := normalized
	if c.jitter > 0 {
		delay += math.Floor(c.random() * c.jitter * normalized)
	}
	b.attempt++
	return int64(math.Min(delay, c.maxMs))
}

// Next is NextDelayMs as a time.Duration.
func (b *Backoff) Next() time.Duration {
	return time.Duration(b.NextDelayMs()) * time.Millisecond
}

// Attempt returns how many delays have been handed out since the last Reset.
func (b *Backoff) Attempt() int { return b.attempt }

// Reset restarts the schedule from the base delay.
func (b *Backoff) Reset() { b.attempt = 0 }

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Retry calls fn until it succeeds, returns an error retryable rejects, or
// maxRetries retries have been spent. It waits b.Next() between attempts and
// stops early when ctx is done. The last error is returned.
func Retry(ctx context.Context, b *Backoff, maxRetries int, retryable func(error) bool, fn func(context.Context) error) error {
	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if b.Attempt() >= maxRetries || (retryable != nil && !retryable(err)) {
			return err
		}
		timer := time.NewTimer(b.Next())
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}
