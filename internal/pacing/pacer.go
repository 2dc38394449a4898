package pacing

import (
	"context"
	"math"
	"sync"
	"time"
)

// Default pacing parameters for outbound YouTube requests
const (
	DefaultBaseDelay  = 500 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second
	DefaultMultiplier = 1.5
)

// Pacer throttles outbound requests with a backoff that grows with
// consecutive resolution failures and decays back toward the base
// delay as successes occur. Each resolver owns its own Pacer; sharing
// one across resolvers shares the budget intentionally.
type Pacer struct {
	mu          sync.Mutex
	lastRequest time.Time
	failures    int

	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64
}

// Config holds pacing parameters
type Config struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// NewPacer creates a pacer with the given parameters, falling back to
// defaults for zero values
func NewPacer(cfg Config) *Pacer {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = DefaultMultiplier
	}

	return &Pacer{
		baseDelay:  cfg.BaseDelay,
		maxDelay:   cfg.MaxDelay,
		multiplier: cfg.Multiplier,
	}
}

// Wait blocks until enough time has passed since the last dispatched
// attempt, then records the current time as the last attempt. The
// required gap is baseDelay scaled by multiplier^failures, capped at
// maxDelay. Returns early with the context error if ctx is cancelled
// while waiting.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	delay := p.dynamicDelay()
	elapsed := time.Since(p.lastRequest)

	if !p.lastRequest.IsZero() && elapsed < delay {
		remaining := delay - elapsed
		p.mu.Unlock()

		timer := time.NewTimer(remaining)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		p.mu.Lock()
	}

	p.lastRequest = time.Now()
	p.mu.Unlock()
	return nil
}

// dynamicDelay computes the current required gap. Caller must hold mu.
func (p *Pacer) dynamicDelay() time.Duration {
	scaled := float64(p.baseDelay) * math.Pow(p.multiplier, float64(p.failures))
	if scaled > float64(p.maxDelay) {
		return p.maxDelay
	}
	return time.Duration(scaled)
}

// RecordFailure increments the consecutive-failure counter
func (p *Pacer) RecordFailure() {
	p.mu.Lock()
	p.failures++
	p.mu.Unlock()
}

// RecordSuccess decrements the consecutive-failure counter, floored at 0
func (p *Pacer) RecordSuccess() {
	p.mu.Lock()
	if p.failures > 0 {
		p.failures--
	}
	p.mu.Unlock()
}

// Failures returns the current consecutive-failure count
func (p *Pacer) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

// Delay returns the gap the next Wait would enforce
func (p *Pacer) Delay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dynamicDelay()
}
