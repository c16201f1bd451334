package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dharmasatrya/tripplanner/internal/models"
)

const (
	DefaultBookingBaseURL = "https://booking-com.p.rapidapi.com"
	bookingHost           = "booking-com.p.rapidapi.com"
	bookingMaxResults     = 10
)

type bookingLocation struct {
	DestID   string `json:"dest_id"`
	DestType string `json:"dest_type"`
	CityName string `json:"city_name"`
}

type bookingSearchResponse struct {
	Result []bookingHotel `json:"result"`
}

type bookingHotel struct {
	HotelID        json.Number `json:"hotel_id"`
	HotelName      string      `json:"hotel_name"`
	HotelNameTrans string      `json:"hotel_name_trans"`
	Class          *float64    `json:"class"`
	District       string      `json:"district"`
	City           string      `json:"city"`
	CityTrans      string      `json:"city_trans"`
	CurrencyCode   string      `json:"currencycode"`
	MinTotalPrice  *float64    `json:"min_total_price"`
	URL            string      `json:"url"`
	PriceBreakdown struct {
		AllInclusivePrice *float64 `json:"all_inclusive_price"`
		Currency          string   `json:"currency"`
	} `json:"price_breakdown"`
}

type BookingConfig struct {
	RapidAPIKey string
	BaseURL     string
	Timeout     time.Duration
}

// BookingProvider searches hotels on Booking.com through RapidAPI: the city is
// first resolved to a destination id, then searched by price.
type BookingProvider struct {
	cfg        BookingConfig
	httpClient *http.Client
}

func NewBookingProvider(cfg BookingConfig) *BookingProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBookingBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &BookingProvider{
		cfg:        cfg,
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

func (p *BookingProvider) Name() string {
	return string(models.SourceBooking)
}

func (p *BookingProvider) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequest(http.MethodGet, p.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", p.cfg.RapidAPIKey)
	req.Header.Set("X-RapidAPI-Host", bookingHost)
	return doJSON(ctx, p.httpClient, req, out)
}

func (p *BookingProvider) destinationID(ctx context.Context, city string) (string, error) {
	params := url.Values{}
	params.Set("name", city)
	params.Set("locale", "en-gb")

	var locations []bookingLocation
	if err := p.get(ctx, "/v1/hotels/locations", params, &locations); err != nil {
		return "", err
	}
	for _, l := range locations {
		if strings.EqualFold(l.DestType, "city") && l.DestID != "" {
			return l.DestID, nil
		}
	}
	if len(locations) > 0 {
		return locations[0].DestID, nil
	}
	return "", nil
}

func (p *BookingProvider) SearchHotels(ctx context.Context, q HotelQuery) ([]models.HotelCandidate, error) {
	if p.cfg.RapidAPIKey == "" {
		return nil, ErrMissingCredentials
	}
	if q.City == "" {
		return nil, fmt.Errorf("hotel search needs a city name")
	}

	destID, err := p.destinationID(ctx, q.City)
	if err != nil {
		return nil, fmt.Errorf("destination lookup: %w", err)
	}
	if destID == "" {
		return []models.HotelCandidate{}, nil
	}

	currency := q.Currency
	if currency == "" {
		currency = "USD"
	}
	params := url.Values{}
	params.Set("checkin_date", q.CheckIn.Format(models.DateLayout))
	params.Set("checkout_date", q.CheckOut.Format(models.DateLayout))
	params.Set("dest_id", destID)
	params.Set("dest_type", "city")
	params.Set("adults_number", strconv.Itoa(max(1, q.Adults)))
	params.Set("room_number", "1")
	params.Set("order_by", "price")
	params.Set("locale", "en-gb")
	params.Set("units", "metric")
	params.Set("filter_by_currency", currency)
	params.Set("page_number", "0")

	var resp bookingSearchResponse
	if err := p.get(ctx, "/v1/hotels/search", params, &resp); err != nil {
		return nil, err
	}

	limit := q.MaxResults
	if limit <= 0 {
		limit = bookingMaxResults
	}
	hotels := resp.Result
	if len(hotels) > limit {
		hotels = hotels[:limit]
	}

	nights := q.Nights()
	candidates := make([]models.HotelCandidate, 0, len(hotels))
	for _, h := range hotels {
		candidates = append(candidates, normalizeBookingHotel(h, nights, currency))
	}
	return candidates, nil
}

func normalizeBookingHotel(h bookingHotel, nights int, fallbackCurrency string) models.HotelCandidate {
	var total float64
	ccy := firstNonEmpty(h.PriceBreakdown.Currency, h.CurrencyCode, fallbackCurrency)
	switch {
	case h.PriceBreakdown.AllInclusivePrice != nil:
		total = *h.PriceBreakdown.AllInclusivePrice
	case h.MinTotalPrice != nil:
		total = *h.MinTotalPrice
	}
	ccy = models.NormalizeCurrency(ccy)

	c := models.HotelCandidate{
		ID:           "booking-" + h.HotelID.String(),
		Source:       models.SourceBooking,
		Name:         firstNonEmpty(h.HotelName, h.HotelNameTrans),
		City:         firstNonEmpty(h.CityTrans, h.City),
		Neighborhood: firstNonEmpty(h.District, h.CityTrans, h.City),
		Nights:       nights,
		TotalPrice:   models.Money{Amount: total, Currency: ccy},
		NightlyPrice: models.Money{Amount: nightly(total, nights), Currency: ccy},
		DeepLink:     h.URL,
	}
	if h.Class != nil && *h.Class > 0 {
		stars := int(math.Round(*h.Class))
		c.Stars = &stars
	}
	return c
}
