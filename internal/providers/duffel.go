package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dharmasatrya/tripplanner/internal/models"
	"github.com/dharmasatrya/tripplanner/internal/timezone"
)

const (
	DefaultDuffelBaseURL = "https://api.duffel.com"
	duffelVersion        = "v2"
	duffelMaxOffers      = 10
)

type duffelSlice struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
}

type duffelPassenger struct {
	Type string `json:"type"`
}

type duffelOfferRequest struct {
	Data struct {
		Slices         []duffelSlice     `json:"slices"`
		Passengers     []duffelPassenger `json:"passengers"`
		MaxConnections int               `json:"max_connections"`
	} `json:"data"`
}

type duffelOfferResponse struct {
	Data struct {
		Offers []duffelOffer `json:"offers"`
	} `json:"data"`
}

type duffelOffer struct {
	ID            string `json:"id"`
	TotalAmount   string `json:"total_amount"`
	TotalCurrency string `json:"total_currency"`
	Owner         struct {
		IataCode string `json:"iata_code"`
		Name     string `json:"name"`
	} `json:"owner"`
	Slices []struct {
		Duration string          `json:"duration"`
		Segments []duffelSegment `json:"segments"`
	} `json:"slices"`
}

type duffelSegment struct {
	DepartingAt      string `json:"departing_at"`
	MarketingCarrier struct {
		IataCode string `json:"iata_code"`
		Name     string `json:"name"`
	} `json:"marketing_carrier"`
	FlightNumber string `json:"marketing_carrier_flight_number"`
	Origin       struct {
		IataCode string `json:"iata_code"`
	} `json:"origin"`
	Destination struct {
		IataCode string `json:"iata_code"`
	} `json:"destination"`
}

type DuffelConfig struct {
	AccessToken string
	BaseURL     string
	Timeout     time.Duration
}

// DuffelProvider searches flights through Duffel offer requests.
type DuffelProvider struct {
	cfg        DuffelConfig
	httpClient *http.Client
}

func NewDuffelProvider(cfg DuffelConfig) *DuffelProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultDuffelBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &DuffelProvider{
		cfg:        cfg,
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

func (p *DuffelProvider) Name() string {
	return string(models.SourceDuffel)
}

func (p *DuffelProvider) SearchFlights(ctx context.Context, q FlightQuery) ([]models.FlightCandidate, error) {
	if p.cfg.AccessToken == "" {
		return nil, ErrMissingCredentials
	}

	var body duffelOfferRequest
	body.Data.Slices = []duffelSlice{{
		Origin:        strings.ToUpper(q.Origin),
		Destination:   strings.ToUpper(q.Destination),
		DepartureDate: q.DepartureDate.Format(models.DateLayout),
	}}
	if !q.ReturnDate.IsZero() {
		body.Data.Slices = append(body.Data.Slices, duffelSlice{
			Origin:        strings.ToUpper(q.Destination),
			Destination:   strings.ToUpper(q.Origin),
			DepartureDate: q.ReturnDate.Format(models.DateLayout),
		})
	}
	for i := 0; i < max(1, q.Adults); i++ {
		body.Data.Passengers = append(body.Data.Passengers, duffelPassenger{Type: "adult"})
	}
	body.Data.MaxConnections = 1

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode offer request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, p.cfg.BaseURL+"/air/offer_requests?return_offers=true", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.AccessToken)
	req.Header.Set("Duffel-Version", duffelVersion)
	req.Header.Set("Content-Type", "application/json")

	var resp duffelOfferResponse
	if err := doJSON(ctx, p.httpClient, req, &resp); err != nil {
		return nil, err
	}

	offers := resp.Data.Offers
	if len(offers) > duffelMaxOffers {
		offers = offers[:duffelMaxOffers]
	}
	candidates := make([]models.FlightCandidate, 0, len(offers))
	for _, o := range offers {
		candidates = append(candidates, normalizeDuffelOffer(o))
	}
	return candidates, nil
}

func normalizeDuffelOffer(o duffelOffer) models.FlightCandidate {
	c := models.FlightCandidate{
		ID:      "duffel-" + o.ID,
		Source:  models.SourceDuffel,
		Carrier: models.Carrier{Code: o.Owner.IataCode, Name: o.Owner.Name},
		Price: models.Money{
			Amount:   parseAmount(o.TotalAmount),
			Currency: models.NormalizeCurrency(o.TotalCurrency),
		},
	}

	if len(o.Slices) == 0 || len(o.Slices[0].Segments) == 0 {
		return c
	}
	out := o.Slices[0]
	first, last := out.Segments[0], out.Segments[len(out.Segments)-1]

	if c.Carrier.Code == "" {
		c.Carrier = models.Carrier{Code: first.MarketingCarrier.IataCode, Name: first.MarketingCarrier.Name}
	}
	c.FlightNumber = first.MarketingCarrier.IataCode + first.FlightNumber
	c.Origin = first.Origin.IataCode
	c.Destination = last.Destination.IataCode
	c.Stops = len(out.Segments) - 1
	c.DepartureTime, _ = timezone.ParseTimeWithOffset(first.DepartingAt, first.Origin.IataCode)
	if d, err := timezone.ParseISODuration(out.Duration); err == nil {
		c.Duration = timezone.FormatDuration(d)
	}

	if len(o.Slices) > 1 && len(o.Slices[1].Segments) > 0 {
		back := o.Slices[1].Segments[0]
		c.ReturnTime, _ = timezone.ParseTimeWithOffset(back.DepartingAt, back.Origin.IataCode)
	}
	return c
}
