package models

import (
	"strings"
	"time"
)

type Source string

const (
	SourceAmadeus   Source = "amadeus"
	SourceDuffel    Source = "duffel"
	SourceBooking   Source = "booking"
	SourceSynthetic Source = "synthetic"
)

func (s Source) IsSynthetic() bool {
	return s == SourceSynthetic
}

type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == "$" {
		return "USD"
	}
	return code
}

type GeoLocation struct {
	Country     string  `json:"country"`
	City        string  `json:"city,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	AirportCode string  `json:"airport_code,omitempty"`
	Source      string  `json:"source"`
}

// Name is the most specific place name available.
func (g GeoLocation) Name() string {
	if g.City != "" {
		return g.City
	}
	return g.Country
}

type Carrier struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type FlightCandidate struct {
	ID            string    `json:"id"`
	Source        Source    `json:"source"`
	Carrier       Carrier   `json:"carrier"`
	FlightNumber  string    `json:"flight_number,omitempty"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departure_time"`
	ReturnTime    time.Time `json:"return_time,omitempty"`
	Duration      string    `json:"duration,omitempty"`
	Stops         int       `json:"stops"`
	Price         Money     `json:"price"`
}

func (f FlightCandidate) IsDirect() bool {
	return f.Stops == 0
}

type HotelCandidate struct {
	ID           string `json:"id"`
	Source       Source `json:"source"`
	Name         string `json:"name"`
	City         string `json:"city,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	Nights       int    `json:"nights"`
	NightlyPrice Money  `json:"nightly_price"`
	TotalPrice   Money  `json:"total_price"`
	Stars        *int   `json:"stars,omitempty"`
	DeepLink     string `json:"deep_link,omitempty"`
}

type Package struct {
	ID            string          `json:"id"`
	Rank          int             `json:"rank"`
	Flight        FlightCandidate `json:"flight"`
	Hotel         HotelCandidate  `json:"hotel"`
	Total         Money           `json:"total"`
	Score         float64         `json:"score"`
	WithinBudget  *bool           `json:"within_budget,omitempty"`
	Synthetic     bool            `json:"synthetic"`
	FXApproximate bool            `json:"fx_approximate,omitempty"`
	Reasons       []string        `json:"reasons,omitempty"`
}
