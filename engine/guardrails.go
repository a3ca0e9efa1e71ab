package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// GuardrailResult is the verdict for one request.
type GuardrailResult struct {
	Allowed bool
	Warning string
}

// Guardrails protects the model provider from abusive or failing traffic.
type Guardrails interface {
	Check(ctx context.Context, userID string) (*GuardrailResult, error)
	RecordSuccess(ctx context.Context, userID string)
	RecordFailure(ctx context.Context, userID string)
}

// GuardrailConfig configures RateGuardrails.
type GuardrailConfig struct {
	// PerMinute is the sustained number of messages a user may send. Default: 20.
	PerMinute int

	// Burst is how many messages may arrive back to back. Default: 5.
	Burst int

	// FailureThreshold consecutive provider failures open the circuit. Default: 5.
	FailureThreshold int

	// Cooldown is how long the circuit stays open. Default: 30s.
	Cooldown time.Duration
}

// RateGuardrails applies a token bucket per user and a global circuit
// breaker over provider failures.
type RateGuardrails struct {
	cfg GuardrailConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	failures  int
	openUntil time.Time
	now       func() time.Time
}

// NewRateGuardrails creates guardrails with cfg, filling zero fields with defaults.
func NewRateGuardrails(cfg GuardrailConfig) *RateGuardrails {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &RateGuardrails{
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
		now:      time.Now,
	}
}

// Check consumes one token for userID.
func (g *RateGuardrails) Check(ctx context.Context, userID string) (*GuardrailResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now.Before(g.openUntil) {
		return &GuardrailResult{
			Allowed: false,
			Warning: fmt.Sprintf("assistant unavailable, retry after %s", g.openUntil.Sub(now).Round(time.Second)),
		}, nil
	}

	limiter, ok := g.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(g.cfg.PerMinute)), g.cfg.Burst)
		g.limiters[userID] = limiter
	}
	if !limiter.AllowN(now, 1) {
		return &GuardrailResult{Allowed: false, Warning: "rate limit exceeded"}, nil
	}
	return &GuardrailResult{Allowed: true}, nil
}

// RecordSuccess closes the circuit.
func (g *RateGuardrails) RecordSuccess(ctx context.Context, userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = 0
}

// RecordFailure counts a provider failure and opens the circuit at the threshold.
func (g *RateGuardrails) RecordFailure(ctx context.Context, userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures++
	if g.failures >= g.cfg.FailureThreshold {
		g.openUntil = g.now().Add(g.cfg.Cooldown)
		g.failures = 0
	}
}
