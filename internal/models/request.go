package models

import (
	"math"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// MaxNights bounds a single trip.
const MaxNights = 365

type TripRequestParams struct {
	RawText     string
	Destination string
	Origin      string
	StartDate   time.Time
	Nights      int
	Budget      *Money
	Adults      int
	Preferences []string
}

// TripRequest is a validated trip query. It has no setters; build one with
// NewTripRequest.
type TripRequest struct {
	rawText     string
	destination string
	origin      string
	startDate   time.Time
	nights      int
	budget      *Money
	adults      int
	preferences []string
}

func NewTripRequest(p TripRequestParams) (TripRequest, error) {
	if strings.TrimSpace(p.RawText) == "" && strings.TrimSpace(p.Destination) == "" {
		return TripRequest{}, ErrEmptyRequest
	}
	if p.StartDate.IsZero() {
		return TripRequest{}, ErrInvalidStartDate
	}
	if p.Nights <= 0 {
		return TripRequest{}, ErrNonPositiveNights
	}
	if p.Nights > MaxNights {
		return TripRequest{}, ErrTooManyNights
	}
	if p.Adults < 0 {
		return TripRequest{}, ErrInvalidAdults
	}
	adults := p.Adults
	if adults == 0 {
		adults = 1
	}

	var budget *Money
	if p.Budget != nil {
		if p.Budget.Amount <= 0 || math.IsNaN(p.Budget.Amount) || math.IsInf(p.Budget.Amount, 0) {
			return TripRequest{}, ErrInvalidBudget
		}
		b := Money{Amount: p.Budget.Amount, Currency: NormalizeCurrency(p.Budget.Currency)}
		budget = &b
	}

	y, m, d := p.StartDate.Date()
	prefs := make([]string, 0, len(p.Preferences))
	seen := make(map[string]bool)
	for _, tag := range p.Preferences {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		prefs = append(prefs, tag)
	}

	return TripRequest{
		rawText:     strings.TrimSpace(p.RawText),
		destination: strings.TrimSpace(p.Destination),
		origin:      strings.TrimSpace(p.Origin),
		startDate:   time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		nights:      p.Nights,
		budget:      budget,
		adults:      adults,
		preferences: prefs,
	}, nil
}

func (r TripRequest) RawText() string { return r.rawText }
func (r TripRequest) Destination() string { return r.destination }
func (r TripRequest) Origin() string { return r.origin }
func (r TripRequest) StartDate() time.Time { return r.startDate }
func (r TripRequest) Nights() int { return r.nights }
func (r TripRequest) Adults() int { return r.adults }
func (r TripRequest) EndDate() time.Time { return r.startDate.AddDate(0, 0, r.nights) }
func (r TripRequest) HasBudget() bool { return r.budget != nil }
func (r TripRequest) Preferences() []string { return append([]string(nil), r.preferences...) }

// Budget returns a copy so callers cannot mutate the request.
func (r TripRequest) Budget() *Money {
	if r.budget == nil {
		return nil
	}
	b := *r.budget
	return &b
}

func (r TripRequest) HasPreference(tag string) bool {
	for _, p := range r.preferences {
		if p == tag {
			return true
		}
	}
	return false
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidStartDate
	}
	return t, nil
}

// PackageFilters narrows assembled packages. Nil fields do not filter.
type PackageFilters struct {
	PriceMin         *float64 `json:"price_min,omitempty"`
	PriceMax         *float64 `json:"price_max,omitempty"`
	MinStars         *int     `json:"min_stars,omitempty"`
	MaxStops         *int     `json:"max_stops,omitempty"`
	Carriers         []string `json:"carriers,omitempty"`
	DepartureTimeMin *string  `json:"departure_time_min,omitempty"`
	DepartureTimeMax *string  `json:"departure_time_max,omitempty"`
	WithinBudgetOnly bool     `json:"within_budget_only,omitempty"`
}

type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	ErrEmptyRequest      ValidationError = "trip request text or destination is required"
	ErrInvalidStartDate  ValidationError = "start_date must be a valid date in YYYY-MM-DD format"
	ErrNonPositiveNights ValidationError = "nights must be a positive integer"
	ErrTooManyNights     ValidationError = "nights must be at most 365"
	ErrInvalidBudget     ValidationError = "budget must be a positive amount"
	ErrInvalidAdults     ValidationError = "adults must not be negative"
	ErrInvalidSortBy     ValidationError = "sort_by must be one of best_value, price, rating, stops"
	ErrInvalidSortOrder  ValidationError = "sort_order must be asc or desc"
	ErrInvalidTimeOfDay  ValidationError = "departure times must use HH:MM"
)
