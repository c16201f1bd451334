package models

import "time"

type DataStatus string

const (
	StatusLive             DataStatus = "live"
	StatusPartialSynthetic DataStatus = "partial_synthetic"
	StatusSynthetic        DataStatus = "synthetic"
)

type LegDiagnostics struct {
	Source             string   `json:"source"`
	ProvidersQueried   int      `json:"providers_queried"`
	ProvidersSucceeded int      `json:"providers_succeeded"`
	ProvidersFailed    int      `json:"providers_failed"`
	FailedProviders    []string `json:"failed_providers,omitempty"`
	SkippedProviders   []string `json:"skipped_providers,omitempty"`
	Candidates         int      `json:"candidates"`
	Excluded           int      `json:"excluded"`
	CacheHit           bool     `json:"cache_hit"`
}

type Diagnostics struct {
	Flights            LegDiagnostics `json:"flights"`
	Hotels             LegDiagnostics `json:"hotels"`
	ExcludedFlights    int            `json:"excluded_flights"`
	ExcludedHotels     int            `json:"excluded_hotels"`
	CurrencyMismatches int            `json:"currency_mismatches"`
	CombinationsScored int            `json:"combinations_scored"`
	ElapsedMs          int64          `json:"elapsed_ms"`
}

type TripSummary struct {
	Destination string    `json:"destination"`
	Origin      string    `json:"origin"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	Nights      int       `json:"nights"`
	Adults      int       `json:"adults"`
	Budget      *Money    `json:"budget,omitempty"`
	Preferences []string  `json:"preferences,omitempty"`
	PlannedAt   time.Time `json:"planned_at"`
}

type Plan struct {
	ID          string      `json:"id"`
	Trip        TripSummary `json:"trip"`
	Location    GeoLocation `json:"location"`
	Status      DataStatus  `json:"status"`
	Packages    []Package   `json:"packages"`
	Warnings    []string    `json:"warnings,omitempty"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// IsSynthetic reports whether any package shown is built from placeholder data.
func (p *Plan) IsSynthetic() bool {
	return p.Status != StatusLive
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
