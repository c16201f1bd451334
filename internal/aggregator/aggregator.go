// Package aggregator fans a search out over every configured provider for a
// leg and merges what comes back into one ordered candidate list.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dharmasatrya/tripplanner/internal/cache"
	"github.com/dharmasatrya/tripplanner/internal/models"
	"github.com/dharmasatrya/tripplanner/internal/obs"
	"github.com/dharmasatrya/tripplanner/internal/providers"
	"github.com/dharmasatrya/tripplanner/internal/ratelimit"
)

type Config struct {
	Timeout     time.Duration // per provider attempt
	MaxRetries  int
	RetryDelays []time.Duration
	RateLimiter *ratelimit.Limiter
	Cache       cache.Cache
	Metrics     *obs.Metrics
	Logger      *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Timeout:     10 * time.Second,
		MaxRetries:  1,
		RetryDelays: []time.Duration{200 * time.Millisecond, 500 * time.Millisecond},
	}
}

type Aggregator struct {
	flights []providers.FlightProvider
	hotels  []providers.HotelProvider
	config  Config
	logger  *slog.Logger
}

type Result[T any] struct {
	Candidates         []T
	ProvidersQueried   int
	ProvidersSucceeded int
	ProvidersFailed    int
	FailedProviders    []string
	SkippedProviders   []string
	Duplicates         int
	Excluded           int
	CacheHit           bool
}

// NoRealData reports whether no provider returned any candidate.
func (r *Result[T]) NoRealData() bool {
	return len(r.Candidates) == 0
}

func (r *Result[T]) Diagnostics(source string) models.LegDiagnostics {
	return models.LegDiagnostics{
		Source:             source,
		ProvidersQueried:   r.ProvidersQueried,
		ProvidersSucceeded: r.ProvidersSucceeded,
		ProvidersFailed:    r.ProvidersFailed,
		FailedProviders:    r.FailedProviders,
		SkippedProviders:   r.SkippedProviders,
		Candidates:         len(r.Candidates),
		Excluded:           r.Excluded + r.Duplicates,
		CacheHit:           r.CacheHit,
	}
}

func NewAggregator(flights []providers.FlightProvider, hotels []providers.HotelProvider, config Config) *Aggregator {
	if config.Cache == nil {
		config.Cache = cache.NewNoOpCache()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		flights: flights,
		hotels:  hotels,
		config:  config,
		logger:  logger.With("component", "aggregator"),
	}
}

func (a *Aggregator) FlightProviders() []string {
	names := make([]string, len(a.flights))
	for i, p := range a.flights {
		names[i] = p.Name()
	}
	return names
}

func (a *Aggregator) HotelProviders() []string {
	names := make([]string, len(a.hotels))
	for i, p := range a.hotels {
		names[i] = p.Name()
	}
	return names
}

func (a *Aggregator) SearchFlights(ctx context.Context, q providers.FlightQuery) *Result[models.FlightCandidate] {
	if cached, ok := a.config.Cache.GetFlights(ctx, q); ok {
		a.config.Metrics.ProviderRequest("cache", obs.OutcomeCacheHit, 0)
		return &Result[models.FlightCandidate]{Candidates: cached, CacheHit: true}
	}

	sources := make([]source[models.FlightCandidate], len(a.flights))
	for i, p := range a.flights {
		sources[i] = source[models.FlightCandidate]{
			name: p.Name(),
			search: func(ctx context.Context) ([]models.FlightCandidate, error) {
				return p.SearchFlights(ctx, q)
			},
		}
	}

	result := fanOut(ctx, a, sources)
	result.Candidates, result.Duplicates = dedupFlights(result.Candidates)

	if len(result.Candidates) > 0 {
		if err := a.config.Cache.SetFlights(ctx, q, result.Candidates); err != nil {
			a.logger.Warn("failed to cache flights", "error", err)
		}
	}
	return result
}

func (a *Aggregator) SearchHotels(ctx context.Context, q providers.HotelQuery) *Result[models.HotelCandidate] {
	if cached, ok := a.config.Cache.GetHotels(ctx, q); ok {
		a.config.Metrics.ProviderRequest("cache", obs.OutcomeCacheHit, 0)
		return &Result[models.HotelCandidate]{Candidates: cached, CacheHit: true}
	}

	sources := make([]source[models.HotelCandidate], len(a.hotels))
	for i, p := range a.hotels {
		sources[i] = source[models.HotelCandidate]{
			name: p.Name(),
			search: func(ctx context.Context) ([]models.HotelCandidate, error) {
				return p.SearchHotels(ctx, q)
			},
		}
	}

	result := fanOut(ctx, a, sources)

	kept := result.Candidates[:0]
	for _, h := range result.Candidates {
		if !matchesDestination(h, q.City, q.CityCode) {
			result.Excluded++
			continue
		}
		kept = append(kept, h)
	}
	result.Candidates = kept

	if len(result.Candidates) > 0 {
		if err := a.config.Cache.SetHotels(ctx, q, result.Candidates); err != nil {
			a.logger.Warn("failed to cache hotels", "error", err)
		}
	}
	return result
}

type source[T any] struct {
	name   string
	search func(ctx context.Context) ([]T, error)
}

// fanOut queries every source concurrently. Candidates keep the configured
// provider order and each provider's own response order.
func fanOut[T any](ctx context.Context, a *Aggregator, sources []source[T]) *Result[T] {
	type providerResult struct {
		candidates []T
		err        error
	}

	results := make([]providerResult, len(sources))
	var wg sync.WaitGroup

	for i, s := range sources {
		wg.Add(1)
		go func(i int, s source[T]) {
			defer wg.Done()
			start := time.Now()

			if a.config.RateLimiter != nil {
				if err := a.config.RateLimiter.Wait(ctx, s.name); err != nil {
					results[i] = providerResult{err: providers.NewProviderError(s.name, err)}
					a.config.Metrics.ProviderRequest(s.name, outcome(err), time.Since(start))
					return
				}
			}

			candidates, err := searchWithRetry(ctx, a, s)
			results[i] = providerResult{candidates: candidates, err: err}
			a.config.Metrics.ProviderRequest(s.name, outcome(err), time.Since(start))
		}(i, s)
	}
	wg.Wait()

	result := &Result[T]{
		Candidates:       make([]T, 0),
		ProvidersQueried: len(sources),
	}
	for i, pr := range results {
		name := sources[i].name
		switch {
		case errors.Is(pr.err, providers.ErrMissingCredentials):
			a.logger.Debug("provider skipped", "provider", name, "reason", "missing credentials")
			result.SkippedProviders = append(result.SkippedProviders, name)
		case pr.err != nil:
			a.logger.Warn("provider failed", "provider", name, "error", pr.err)
			result.ProvidersFailed++
			result.FailedProviders = append(result.FailedProviders, name)
		default:
			result.ProvidersSucceeded++
			result.Candidates = append(result.Candidates, pr.candidates...)
		}
	}
	return result
}

func searchWithRetry[T any](ctx context.Context, a *Aggregator, s source[T]) ([]T, error) {
	var lastErr error

	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, providers.NewProviderError(s.name, ctx.Err())
		default:
		}

		if attempt > 0 {
			select {
			case <-time.After(a.retryDelay(attempt)):
			case <-ctx.Done():
				return nil, providers.NewProviderError(s.name, ctx.Err())
			}
		}

		candidates, err := callOnce(ctx, a.config.Timeout, s)
		if err == nil {
			return candidates, nil
		}

		lastErr = providers.NewProviderError(s.name, err)
		if !retryable(err) {
			break
		}
		a.logger.Debug("provider attempt failed", "provider", s.name, "attempt", attempt+1, "error", err)
	}

	return nil, lastErr
}

func callOnce[T any](ctx context.Context, timeout time.Duration, s source[T]) ([]T, error) {
	if timeout <= 0 {
		return s.search(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.search(callCtx)
}

func (a *Aggregator) retryDelay(attempt int) time.Duration {
	if len(a.config.RetryDelays) == 0 {
		return 0
	}
	idx := attempt - 1
	if idx >= len(a.config.RetryDelays) {
		idx = len(a.config.RetryDelays) - 1
	}
	return a.config.RetryDelays[idx]
}

func retryable(err error) bool {
	if errors.Is(err, providers.ErrMissingCredentials) || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *providers.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	return true
}

func outcome(err error) string {
	switch {
	case err == nil:
		return obs.OutcomeOK
	case errors.Is(err, providers.ErrMissingCredentials):
		return obs.OutcomeSkipped
	case errors.Is(err, context.DeadlineExceeded):
		return obs.OutcomeTimeout
	default:
		return obs.OutcomeError
	}
}

// dedupFlights drops offers that repeat a carrier, departure instant and
// price already seen. The first occurrence wins. Offers without a price or
// departure pass through untouched so that each one is counted when the
// assembler excludes it.
func dedupFlights(flights []models.FlightCandidate) ([]models.FlightCandidate, int) {
	seen := make(map[string]bool, len(flights))
	out := make([]models.FlightCandidate, 0, len(flights))
	dups := 0
	for _, f := range flights {
		if f.Price.Amount <= 0 || f.DepartureTime.IsZero() {
			out = append(out, f)
			continue
		}
		carrier := f.Carrier.Code
		if carrier == "" {
			carrier = f.Carrier.Name
		}
		key := fmt.Sprintf("%s|%s|%.2f|%s",
			strings.ToUpper(carrier),
			f.DepartureTime.UTC().Format(time.RFC3339),
			f.Price.Amount,
			models.NormalizeCurrency(f.Price.Currency),
		)
		if seen[key] {
			dups++
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out, dups
}

// matchesDestination keeps hotels with no city and hotels whose city names
// the destination city or its airport code.
func matchesDestination(h models.HotelCandidate, city, code string) bool {
	hc := strings.ToLower(strings.TrimSpace(h.City))
	if hc == "" {
		return true
	}
	c := strings.ToLower(strings.TrimSpace(city))
	if c == "" && code == "" {
		return true
	}
	if c != "" && (strings.Contains(hc, c) || strings.Contains(c, hc)) {
		return true
	}
	return code != "" && strings.Contains(hc, strings.ToLower(code))
}
