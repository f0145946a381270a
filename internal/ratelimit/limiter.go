// Package ratelimit provides the process-wide token bucket that admits calls to the shared, rate-limited
// upstream capability (AI-backed document generation and similar).
package ratelimit

import (
	"errors"
	"math"
	"sync"
	"time"
)

// Config is the bucket policy.
type Config struct {
	// MaxTokens is the bucket capacity.
	MaxTokens int `mapstructure:"maxTokens"`
	// RefillRate is the number of tokens added per elapsed interval.
	RefillRate int `mapstructure:"refillRate"`
	// RefillIntervalMs is the refill tick in milliseconds.
	RefillIntervalMs int64 `mapstructure:"refillIntervalMs"`
}

// DefaultConfig admits about five calls per minute.
func DefaultConfig() Config {
	return Config{MaxTokens: 5, RefillRate: 1, RefillIntervalMs: 12000}
}

// Validate returns an error if any field is not positive.
func (c Config) Validate() error {
	if c.MaxTokens <= 0 {
		return errors.New("ratelimit: maxTokens must be positive")
	}
	if c.RefillRate <= 0 {
		return errors.New("ratelimit: refillRate must be positive")
	}
	if c.RefillIntervalMs <= 0 {
		return errors.New("ratelimit: refillIntervalMs must be positive")
	}
	return nil
}

func (c Config) interval() time.Duration {
	return time.Duration(c.RefillIntervalMs) * time.Millisecond
}

// TokenBucket is a discretized, interval-aligned token bucket. Tokens are added in whole intervals only and
// the refill clock advances by exactly the intervals consumed, so partial-interval time carries over.
// All methods refill and act under one lock; it is safe for concurrent use.
type TokenBucket struct {
	cfg Config

	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
	nowF       func() time.Time
}

// New returns a full bucket for cfg.
func New(cfg Config) (*TokenBucket, error) {
	return NewWithClock(cfg, time.Now)
}

// NewWithClock is New with an injected clock.
func NewWithClock(cfg Config, nowF func() time.Time) (*TokenBucket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if nowF == nil {
		nowF = time.Now
	}
	return &TokenBucket{
		cfg:        cfg,
		tokens:     cfg.MaxTokens,
		lastRefill: nowF(),
		nowF:       nowF,
	}, nil
}

// Config returns the bucket policy.
func (b *TokenBucket) Config() Config {
	return b.cfg
}

// CanMakeRequest reports whether a token is available without consuming it.
func (b *TokenBucket) CanMakeRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked(b.nowF())
	return b.tokens > 0
}

// ConsumeToken takes one token if available and reports whether it did.
func (b *TokenBucket) ConsumeToken() bool {
	ok, _, _ := b.Take()
	return ok
}

// Take consumes one token if available. It also returns the tokens left and, when nothing could be taken,
// the seconds until the next refill tick, all observed under the same lock.
func (b *TokenBucket) Take() (ok bool, remaining int, retryAfterSeconds int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.nowF()
	b.refillLocked(now)
	if b.tokens > 0 {
		b.tokens--
		return true, b.tokens, 0
	}
	return false, 0, b.secondsUntilNextLocked(now)
}

// TokensRemaining returns the current token count.
func (b *TokenBucket) TokensRemaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked(b.nowF())
	return b.tokens
}

// SecondsUntilNextToken returns the ceiling of the time left until the next refill tick, or 0 if a token is
// already available.
func (b *TokenBucket) SecondsUntilNextToken() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.nowF()
	b.refillLocked(now)
	if b.tokens > 0 {
		return 0
	}
	return b.secondsUntilNextLocked(now)
}

// Reset refills the bucket and restarts the refill clock.
func (b *TokenBucket) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = b.cfg.MaxTokens
	b.lastRefill = b.nowF()
}

func (b *TokenBucket) refillLocked(now time.Time) {
	elapsedMs := now.Sub(b.lastRefill).Milliseconds()
	if elapsedMs < b.cfg.RefillIntervalMs {
		return
	}
	intervals := elapsedMs / b.cfg.RefillIntervalMs
	add := intervals * int64(b.cfg.RefillRate)
	if add > int64(b.cfg.MaxTokens-b.tokens) {
		b.tokens = b.cfg.MaxTokens
	} else {
		b.tokens += int(add)
	}
	b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * b.cfg.interval())
}

func (b *TokenBucket) secondsUntilNextLocked(now time.Time) int {
	wait := b.lastRefill.Add(b.cfg.interval()).Sub(now)
	if wait <= 0 {
		return 0
	}
	return int(math.Ceil(wait.Seconds()))
}
