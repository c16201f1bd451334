// Package config loads runtime settings from the environment, an optional
// .env file and an optional config file. It is the only package that reads
// the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string
	LogLevel string
	// LogFormat is "text" or "json".
	LogFormat string

	ProviderTimeout time.Duration
	SearchTimeout   time.Duration
	MaxRetries      int

	CacheEnabled bool
	CacheBackend string
	RedisHost    string
	RedisPort    string
	RedisTTL     time.Duration

	DefaultOrigin string
	DefaultNights int
	ResultLimit   int
	CandidateCap  int
	Currency      string
	FXNormalize   bool

	AmadeusBaseURL  string
	DuffelBaseURL   string
	BookingBaseURL  string
	OpenCageBaseURL string

	Credentials Credentials
}

// Credentials are each optional. A provider whose credentials are missing
// is skipped rather than failed.
type Credentials struct {
	GeocodeAPIKey       string
	AmadeusClientID     string
	AmadeusClientSecret string
	DuffelAccessToken   string
	RapidAPIKey         string
}

func (c Credentials) HasGeocoder() bool { return c.GeocodeAPIKey != "" }
func (c Credentials) HasAmadeus() bool {
	return c.AmadeusClientID != "" && c.AmadeusClientSecret != ""
}
func (c Credentials) HasDuffel() bool   { return c.DuffelAccessToken != "" }
func (c Credentials) HasRapidAPI() bool { return c.RapidAPIKey != "" }

// HasAny reports whether at least one live data source is configured.
func (c Credentials) HasAny() bool {
	return c.HasAmadeus() || c.HasDuffel() || c.HasRapidAPI()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("PROVIDER_TIMEOUT", "10s")
	v.SetDefault("SEARCH_TIMEOUT", "25s")
	v.SetDefault("MAX_RETRIES", 1)
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("CACHE_BACKEND", "memory")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_TTL", "15m")
	v.SetDefault("DEFAULT_ORIGIN", "DEL")
	v.SetDefault("DEFAULT_NIGHTS", 3)
	v.SetDefault("RESULT_LIMIT", 5)
	v.SetDefault("CANDIDATE_CAP", 10)
	v.SetDefault("CURRENCY", "USD")
	v.SetDefault("FX_NORMALIZE", false)
	v.SetDefault("AMADEUS_BASE_URL", "https://test.api.amadeus.com")
	v.SetDefault("DUFFEL_BASE_URL", "https://api.duffel.com")
	v.SetDefault("BOOKING_BASE_URL", "https://booking-com.p.rapidapi.com")
	v.SetDefault("OPENCAGE_BASE_URL", "https://api.opencagedata.com")
}

var credentialKeys = []string{
	"GEOCODE_API_KEY",
	"AMADEUS_CLIENT_ID",
	"AMADEUS_CLIENT_SECRET",
	"DUFFEL_ACCESS_TOKEN",
	"RAPIDAPI_KEY",
}

// LoadEnvFiles loads .env.local then .env into the process environment.
// Variables already set are never overwritten and missing files are fine.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// Load reads the environment and, when path is non-empty, the config file at
// path. Environment variables take precedence over the file.
func Load(path string) (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	for _, key := range credentialKeys {
		_ = v.BindEnv(key)
	}
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:            v.GetString("PORT"),
		LogLevel:        strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:       strings.ToLower(v.GetString("LOG_FORMAT")),
		ProviderTimeout: v.GetDuration("PROVIDER_TIMEOUT"),
		SearchTimeout:   v.GetDuration("SEARCH_TIMEOUT"),
		MaxRetries:      v.GetInt("MAX_RETRIES"),
		CacheEnabled:    v.GetBool("CACHE_ENABLED"),
		CacheBackend:    strings.ToLower(v.GetString("CACHE_BACKEND")),
		RedisHost:       v.GetString("REDIS_HOST"),
		RedisPort:       v.GetString("REDIS_PORT"),
		RedisTTL:        v.GetDuration("REDIS_TTL"),
		DefaultOrigin:   strings.ToUpper(v.GetString("DEFAULT_ORIGIN")),
		DefaultNights:   v.GetInt("DEFAULT_NIGHTS"),
		ResultLimit:     v.GetInt("RESULT_LIMIT"),
		CandidateCap:    v.GetInt("CANDIDATE_CAP"),
		Currency:        strings.ToUpper(v.GetString("CURRENCY")),
		FXNormalize:     v.GetBool("FX_NORMALIZE"),
		AmadeusBaseURL:  v.GetString("AMADEUS_BASE_URL"),
		DuffelBaseURL:   v.GetString("DUFFEL_BASE_URL"),
		BookingBaseURL:  v.GetString("BOOKING_BASE_URL"),
		OpenCageBaseURL: v.GetString("OPENCAGE_BASE_URL"),
		Credentials: Credentials{
			GeocodeAPIKey:       strings.TrimSpace(v.GetString("GEOCODE_API_KEY")),
			AmadeusClientID:     strings.TrimSpace(v.GetString("AMADEUS_CLIENT_ID")),
			AmadeusClientSecret: strings.TrimSpace(v.GetString("AMADEUS_CLIENT_SECRET")),
			DuffelAccessToken:   strings.TrimSpace(v.GetString("DUFFEL_ACCESS_TOKEN")),
			RapidAPIKey:         strings.TrimSpace(v.GetString("RAPIDAPI_KEY")),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.ProviderTimeout <= 0:
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	case c.SearchTimeout < c.ProviderTimeout:
		return fmt.Errorf("SEARCH_TIMEOUT must be at least PROVIDER_TIMEOUT")
	case c.MaxRetries < 0:
		return fmt.Errorf("MAX_RETRIES must not be negative")
	case c.DefaultNights <= 0:
		return fmt.Errorf("DEFAULT_NIGHTS must be positive")
	case c.ResultLimit <= 0:
		return fmt.Errorf("RESULT_LIMIT must be positive")
	case c.CandidateCap <= 0:
		return fmt.Errorf("CANDIDATE_CAP must be positive")
	case c.CacheBackend != "memory" && c.CacheBackend != "redis":
		return fmt.Errorf("CACHE_BACKEND must be memory or redis, got %q", c.CacheBackend)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}
