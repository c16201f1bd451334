package providers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/dharmasatrya/tripplanner/internal/models"
)

// ErrMissingCredentials is returned when a provider is called without the
// credentials it needs. It is a normal configuration state, not a fault.
var ErrMissingCredentials = errors.New("provider credentials not configured")

type FlightQuery struct {
	Origin        string // IATA city or airport code
	Destination   string // IATA city or airport code
	DepartureDate time.Time
	ReturnDate    time.Time // zero for one-way
	Adults        int
	Currency      string
}

type HotelQuery struct {
	City       string // display name, used by text-search APIs
	CityCode   string // IATA city code, used by code-based APIs
	Latitude   float64
	Longitude  float64
	CheckIn    time.Time
	CheckOut   time.Time
	Adults     int
	Currency   string
	MaxResults int
}

// HasCoordinates reports whether the destination centre is known. A city
// code may belong to a hub some distance away, so coordinates are preferred.
func (q HotelQuery) HasCoordinates() bool {
	return q.Latitude != 0 || q.Longitude != 0
}

func (q HotelQuery) Nights() int {
	n := int(q.CheckOut.Sub(q.CheckIn).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}

type FlightProvider interface {
	Name() string
	SearchFlights(ctx context.Context, q FlightQuery) ([]models.FlightCandidate, error)
}

type HotelProvider interface {
	Name() string
	SearchHotels(ctx context.Context, q HotelQuery) ([]models.HotelCandidate, error)
}

type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Err:      err,
	}
}

// StatusError reports a non-2xx response from a provider API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return "unexpected status " + strconv.Itoa(e.StatusCode) + ": " + e.Body
}

// Retryable reports whether the failure is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
