// Package ratelimit throttles outbound calls per provider so a burst of plans
// cannot exceed an upstream API's quota.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Quota is a token bucket: PerSecond sustained calls with Burst in reserve.
type Quota struct {
	PerSecond float64
	Burst     int
}

func (q Quota) limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(q.PerSecond), q.Burst)
}

func DefaultQuota() Quota {
	return Quota{PerSecond: 5, Burst: 10}
}

// ProviderQuotas reflects the published free-tier limits: the Amadeus test
// environment allows 10 calls per second, RapidAPI's basic plan far fewer.
func ProviderQuotas() map[string]Quota {
	return map[string]Quota{
		"amadeus": {PerSecond: 10, Burst: 10},
		"booking": {PerSecond: 2, Burst: 4},
	}
}

// Limiter hands out one bucket per provider name, created on first use.
type Limiter struct {
	mu        sync.RWMutex
	buckets   map[string]*rate.Limiter
	fallback  Quota
	overrides map[string]Quota
}

func New(fallback Quota, overrides map[string]Quota) *Limiter {
	o := make(map[string]Quota, len(overrides))
	for name, q := range overrides {
		o[name] = q
	}
	return &Limiter{
		buckets:   make(map[string]*rate.Limiter),
		fallback:  fallback,
		overrides: o,
	}
}

func NewDefault() *Limiter {
	return New(DefaultQuota(), ProviderQuotas())
}

func (l *Limiter) bucket(provider string) *rate.Limiter {
	l.mu.RLock()
	b, ok := l.buckets[provider]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok = l.buckets[provider]; ok {
		return b
	}
	b = l.quotaFor(provider).limiter()
	l.buckets[provider] = b
	return b
}

// QuotaFor reports the quota a provider is, or will be, limited to.
func (l *Limiter) QuotaFor(provider string) Quota {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.quotaFor(provider)
}

func (l *Limiter) quotaFor(provider string) Quota {
	if q, ok := l.overrides[provider]; ok {
		return q
	}
	return l.fallback
}

// SetQuota replaces a provider's bucket; calls already waiting keep the old one.
func (l *Limiter) SetQuota(provider string, q Quota) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.overrides[provider] = q
	l.buckets[provider] = q.limiter()
}

// Wait blocks until provider may be called or ctx is done.
func (l *Limiter) Wait(ctx context.Context, provider string) error {
	return l.bucket(provider).Wait(ctx)
}
