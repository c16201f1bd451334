package main

import (
	"log/slog"

	"github.com/dharmasatrya/tripplanner/internal/aggregator"
	"github.com/dharmasatrya/tripplanner/internal/cache"
	"github.com/dharmasatrya/tripplanner/internal/config"
	"github.com/dharmasatrya/tripplanner/internal/geocode"
	"github.com/dharmasatrya/tripplanner/internal/obs"
	"github.com/dharmasatrya/tripplanner/internal/planner"
	"github.com/dharmasatrya/tripplanner/internal/providers"
	"github.com/dharmasatrya/tripplanner/internal/ratelimit"
)

type app struct {
	planner *planner.Planner
	metrics *obs.Metrics
	cache   cache.Cache
}

func (a *app) Close() error {
	return a.cache.Close()
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	metrics, err := obs.NewMetrics()
	if err != nil {
		return nil, err
	}

	resultCache := newCache(cfg, logger)

	rateLimiter := ratelimit.NewDefault()

	aggConfig := aggregator.DefaultConfig()
	aggConfig.Timeout = cfg.ProviderTimeout
	aggConfig.MaxRetries = cfg.MaxRetries
	aggConfig.RateLimiter = rateLimiter
	aggConfig.Cache = resultCache
	aggConfig.Metrics = metrics
	aggConfig.Logger = logger

	flightProviders, hotelProviders := initializeProviders(cfg)
	agg := aggregator.NewAggregator(flightProviders, hotelProviders, aggConfig)

	logger.Info("providers initialized",
		"flights", agg.FlightProviders(),
		"hotels", agg.HotelProviders(),
		"amadeus", cfg.Credentials.HasAmadeus(),
		"duffel", cfg.Credentials.HasDuffel(),
		"rapidapi", cfg.Credentials.HasRapidAPI(),
		"geocoder", cfg.Credentials.HasGeocoder(),
	)
	if !cfg.Credentials.HasAny() {
		logger.Warn("no provider credentials configured; every plan will use synthetic data")
	}

	p := planner.New(newResolver(cfg, logger), agg, planner.Config{
		DefaultOrigin: cfg.DefaultOrigin,
		DefaultNights: cfg.DefaultNights,
		ResultLimit:   cfg.ResultLimit,
		CandidateCap:  cfg.CandidateCap,
		Currency:      cfg.Currency,
		FXNormalize:   cfg.FXNormalize,
		SearchTimeout: cfg.SearchTimeout,
	}, metrics, logger)

	return &app{planner: p, metrics: metrics, cache: resultCache}, nil
}

// initializeProviders registers every provider whether or not its credentials
// are present, so plans report unconfigured providers as skipped.
func initializeProviders(cfg *config.Config) ([]providers.FlightProvider, []providers.HotelProvider) {
	creds := cfg.Credentials

	amadeus := providers.NewAmadeusProvider(providers.AmadeusConfig{
		ClientID:     creds.AmadeusClientID,
		ClientSecret: creds.AmadeusClientSecret,
		BaseURL:      cfg.AmadeusBaseURL,
		Timeout:      cfg.ProviderTimeout,
	})
	duffel := providers.NewDuffelProvider(providers.DuffelConfig{
		AccessToken: creds.DuffelAccessToken,
		BaseURL:     cfg.DuffelBaseURL,
		Timeout:     cfg.ProviderTimeout,
	})
	booking := providers.NewBookingProvider(providers.BookingConfig{
		RapidAPIKey: creds.RapidAPIKey,
		BaseURL:     cfg.BookingBaseURL,
		Timeout:     cfg.ProviderTimeout,
	})

	return []providers.FlightProvider{amadeus, duffel}, []providers.HotelProvider{amadeus, booking}
}

func newResolver(cfg *config.Config, logger *slog.Logger) geocode.Resolver {
	var resolvers []geocode.Resolver
	if cfg.Credentials.HasGeocoder() {
		resolvers = append(resolvers, geocode.NewOpenCage(cfg.Credentials.GeocodeAPIKey, cfg.OpenCageBaseURL, cfg.ProviderTimeout, logger))
	}
	resolvers = append(resolvers, geocode.NewGazetteer())
	return geocode.NewChain(logger, resolvers...)
}

func newCache(cfg *config.Config, logger *slog.Logger) cache.Cache {
	if !cfg.CacheEnabled {
		logger.Debug("cache disabled")
		return cache.NewNoOpCache()
	}

	if cfg.CacheBackend == "redis" {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Host: cfg.RedisHost,
			Port: cfg.RedisPort,
			TTL:  cfg.RedisTTL,
		})
		if err == nil {
			logger.Info("redis cache enabled", "host", cfg.RedisHost, "port", cfg.RedisPort, "ttl", cfg.RedisTTL)
			return redisCache
		}
		logger.Warn("redis unavailable, using in-memory cache", "error", err)
	}

	memoryCache, err := cache.NewMemoryCache(cache.DefaultMemorySize, cfg.RedisTTL)
	if err != nil {
		logger.Warn("cache disabled", "error", err)
		return cache.NewNoOpCache()
	}
	logger.Info("in-memory cache enabled", "ttl", cfg.RedisTTL)
	return memoryCache
}
