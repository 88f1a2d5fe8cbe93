package rate_limiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rom8726/clinicflow"
)

var _ clinicflow.Plugin = (*RateLimiterPlugin)(nil)

var ErrRateLimited = errors.New("rate limit exceeded")

type bucket struct {
	tokens   int
	refilled time.Time
}

// RateLimiterPlugin vetoes workflow starts once a workflow name has used up
// its tokens. One token is returned per refill interval, up to maxTokens.
type RateLimiterPlugin struct {
	clinicflow.BasePlugin

	buckets    map[string]*bucket
	maxTokens  int
	refillRate time.Duration
	clock      clock.Clock
	mu         sync.Mutex
}

type Option func(p *RateLimiterPlugin)

func WithClock(clk clock.Clock) Option {
	return func(p *RateLimiterPlugin) {
		p.clock = clk
	}
}

func New(maxTokens int, refillRate time.Duration, opts ...Option) *RateLimiterPlugin {
	p := &RateLimiterPlugin{
		BasePlugin: clinicflow.NewBasePlugin("rate_limiter", clinicflow.PriorityHigh),
		buckets:    make(map[string]*bucket),
		maxTokens:  maxTokens,
		refillRate: refillRate,
		clock:      clock.New(),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *RateLimiterPlugin) OnWorkflowStart(_ context.Context, instance *clinicflow.WorkflowInstance) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	b, exists := p.buckets[instance.Name]
	if !exists {
		b = &bucket{tokens: p.maxTokens, refilled: now}
		p.buckets[instance.Name] = b
	}
	p.refill(b, now)

	if b.tokens <= 0 {
		return fmt.Errorf("%w for %s", ErrRateLimited, instance.Name)
	}

	b.tokens--

	return nil
}

// Tokens reports the tokens left for name.
func (p *RateLimiterPlugin) Tokens(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, exists := p.buckets[name]
	if !exists {
		return p.maxTokens
	}
	p.refill(b, p.clock.Now())

	return b.tokens
}

func (p *RateLimiterPlugin) refill(b *bucket, now time.Time) {
	if p.refillRate <= 0 {
		return
	}

	intervals := int(now.Sub(b.refilled) / p.refillRate)
	if intervals <= 0 {
		return
	}

	b.tokens = min(p.maxTokens, b.tokens+intervals)
	b.refilled = b.refilled.Add(time.Duration(intervals) * p.refillRate)
}
