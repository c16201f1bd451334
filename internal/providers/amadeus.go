package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dharmasatrya/tripplanner/internal/models"
	"github.com/dharmasatrya/tripplanner/internal/timezone"
)

const DefaultAmadeusBaseURL = "https://test.api.amadeus.com"

// tokens are refreshed this long before they expire
const tokenLeeway = 60 * time.Second

const hotelSearchRadiusKM = 20

type amadeusToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type amadeusFlightResponse struct {
	Data         []amadeusOffer `json:"data"`
	Dictionaries struct {
		Carriers map[string]string `json:"carriers"`
	} `json:"dictionaries"`
}

type amadeusOffer struct {
	ID                     string             `json:"id"`
	Itineraries            []amadeusItinerary `json:"itineraries"`
	Price                  amadeusFlightPrice `json:"price"`
	ValidatingAirlineCodes []string           `json:"validatingAirlineCodes"`
}

type amadeusItinerary struct {
	Duration string           `json:"duration"`
	Segments []amadeusSegment `json:"segments"`
}

type amadeusSegment struct {
	Departure   amadeusEndpoint `json:"departure"`
	Arrival     amadeusEndpoint `json:"arrival"`
	CarrierCode string          `json:"carrierCode"`
	Number      string          `json:"number"`
}

type amadeusEndpoint struct {
	IataCode string `json:"iataCode"`
	At       string `json:"at"`
}

type amadeusFlightPrice struct {
	Currency   string `json:"currency"`
	Total      string `json:"total"`
	GrandTotal string `json:"grandTotal"`
}

type amadeusHotelListResponse struct {
	Data []struct {
		HotelID string `json:"hotelId"`
	} `json:"data"`
}

type amadeusHotelOffersResponse struct {
	Data []amadeusHotelEntry `json:"data"`
}

type amadeusHotelEntry struct {
	Hotel struct {
		HotelID  string `json:"hotelId"`
		Name     string `json:"name"`
		CityCode string `json:"cityCode"`
		Rating   string `json:"rating"`
	} `json:"hotel"`
	Offers []struct {
		ID    string `json:"id"`
		Price struct {
			Currency string `json:"currency"`
			Base     string `json:"base"`
			Total    string `json:"total"`
		} `json:"price"`
	} `json:"offers"`
}

type AmadeusConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	Timeout      time.Duration
}

// AmadeusProvider serves both flight offers and hotel offers from the Amadeus
// self-service APIs, sharing one OAuth2 client-credentials token.
type AmadeusProvider struct {
	cfg        AmadeusConfig
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewAmadeusProvider(cfg AmadeusConfig) *AmadeusProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAmadeusBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &AmadeusProvider{
		cfg:        cfg,
		httpClient: newHTTPClient(cfg.Timeout),
		now:        time.Now,
	}
}

func (p *AmadeusProvider) Name() string {
	return string(models.SourceAmadeus)
}

func (p *AmadeusProvider) hasCredentials() bool {
	return p.cfg.ClientID != "" && p.cfg.ClientSecret != ""
}

func (p *AmadeusProvider) accessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.now().Before(p.tokenExpiry.Add(-tokenLeeway)) {
		return p.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)

	req, err := http.NewRequest(http.MethodPost, p.cfg.BaseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok amadeusToken
	if err := doJSON(ctx, p.httpClient, req, &tok); err != nil {
		return "", fmt.Errorf("oauth: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("oauth: no access_token in response")
	}

	p.token = tok.AccessToken
	p.tokenExpiry = p.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return p.token, nil
}

func (p *AmadeusProvider) get(ctx context.Context, path string, params url.Values, out any) error {
	token, err := p.accessToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodGet, p.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return doJSON(ctx, p.httpClient, req, out)
}

func (p *AmadeusProvider) SearchFlights(ctx context.Context, q FlightQuery) ([]models.FlightCandidate, error) {
	if !p.hasCredentials() {
		return nil, ErrMissingCredentials
	}

	params := url.Values{}
	params.Set("originLocationCode", strings.ToUpper(q.Origin))
	params.Set("destinationLocationCode", strings.ToUpper(q.Destination))
	params.Set("departureDate", q.DepartureDate.Format(models.DateLayout))
	if !q.ReturnDate.IsZero() {
		params.Set("returnDate", q.ReturnDate.Format(models.DateLayout))
	}
	params.Set("adults", strconv.Itoa(max(1, q.Adults)))
	if q.Currency != "" {
		params.Set("currencyCode", q.Currency)
	}
	params.Set("max", "10")

	var resp amadeusFlightResponse
	if err := p.get(ctx, "/v2/shopping/flight-offers", params, &resp); err != nil {
		return nil, err
	}

	candidates := make([]models.FlightCandidate, 0, len(resp.Data))
	for _, offer := range resp.Data {
		candidates = append(candidates, p.normalizeFlight(offer, resp.Dictionaries.Carriers))
	}
	return candidates, nil
}

// normalizeFlight never drops an offer; unparsable fields stay zero so the
// assembler excludes and counts the candidate.
func (p *AmadeusProvider) normalizeFlight(o amadeusOffer, carriers map[string]string) models.FlightCandidate {
	c := models.FlightCandidate{
		ID:     "amadeus-" + o.ID,
		Source: models.SourceAmadeus,
		Price: models.Money{
			Amount:   parseAmount(firstNonEmpty(o.Price.GrandTotal, o.Price.Total)),
			Currency: models.NormalizeCurrency(o.Price.Currency),
		},
	}

	if len(o.ValidatingAirlineCodes) > 0 {
		c.Carrier.Code = o.ValidatingAirlineCodes[0]
	}

	if len(o.Itineraries) == 0 || len(o.Itineraries[0].Segments) == 0 {
		return c
	}
	out := o.Itineraries[0]
	first, last := out.Segments[0], out.Segments[len(out.Segments)-1]

	if c.Carrier.Code == "" {
		c.Carrier.Code = first.CarrierCode
	}
	c.Carrier.Name = carriers[c.Carrier.Code]
	if c.Carrier.Name == "" {
		c.Carrier.Name = c.Carrier.Code
	}
	c.FlightNumber = first.CarrierCode + first.Number
	c.Origin = first.Departure.IataCode
	c.Destination = last.Arrival.IataCode
	c.Stops = len(out.Segments) - 1
	c.DepartureTime, _ = timezone.ParseTimeWithOffset(first.Departure.At, first.Departure.IataCode)
	if d, err := timezone.ParseISODuration(out.Duration); err == nil {
		c.Duration = timezone.FormatDuration(d)
	}

	if len(o.Itineraries) > 1 && len(o.Itineraries[1].Segments) > 0 {
		back := o.Itineraries[1].Segments[0]
		c.ReturnTime, _ = timezone.ParseTimeWithOffset(back.Departure.At, back.Departure.IataCode)
	}
	return c
}

func (p *AmadeusProvider) SearchHotels(ctx context.Context, q HotelQuery) ([]models.HotelCandidate, error) {
	if !p.hasCredentials() {
		return nil, ErrMissingCredentials
	}
	if q.CityCode == "" && !q.HasCoordinates() {
		return nil, fmt.Errorf("hotel search needs a city code or coordinates")
	}

	limit := q.MaxResults
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var list amadeusHotelListResponse
	listParams := url.Values{}
	if q.HasCoordinates() {
		listParams.Set("latitude", strconv.FormatFloat(q.Latitude, 'f', 4, 64))
		listParams.Set("longitude", strconv.FormatFloat(q.Longitude, 'f', 4, 64))
		listParams.Set("radius", strconv.Itoa(hotelSearchRadiusKM))
		listParams.Set("radiusUnit", "KM")
		if err := p.get(ctx, "/v1/reference-data/locations/hotels/by-geocode", listParams, &list); err != nil {
			return nil, err
		}
	} else {
		listParams.Set("cityCode", strings.ToUpper(q.CityCode))
		if err := p.get(ctx, "/v1/reference-data/locations/hotels/by-city", listParams, &list); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool)
	var ids []string
	for _, h := range list.Data {
		if h.HotelID == "" || seen[h.HotelID] {
			continue
		}
		seen[h.HotelID] = true
		ids = append(ids, h.HotelID)
		if len(ids) == limit {
			break
		}
	}
	if len(ids) == 0 {
		return []models.HotelCandidate{}, nil
	}

	params := url.Values{}
	params.Set("hotelIds", strings.Join(ids, ","))
	params.Set("adults", strconv.Itoa(max(1, q.Adults)))
	params.Set("checkInDate", q.CheckIn.Format(models.DateLayout))
	params.Set("checkOutDate", q.CheckOut.Format(models.DateLayout))
	params.Set("bestRateOnly", "true")
	if q.Currency != "" {
		params.Set("currency", q.Currency)
	}

	var offers amadeusHotelOffersResponse
	if err := p.get(ctx, "/v3/shopping/hotel-offers", params, &offers); err != nil {
		return nil, err
	}

	nights := q.Nights()
	candidates := make([]models.HotelCandidate, 0, len(offers.Data))
	for _, entry := range offers.Data {
		if c, ok := p.normalizeHotel(entry, q, nights, q.HasCoordinates()); ok {
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

// normalizeHotel keeps the cheapest offer of a hotel. Hotels without any
// offer are not bookable and are skipped. Only hotels found around the
// destination's coordinates are labelled with its name; a by-city listing
// keeps the city code Amadeus reports.
func (p *AmadeusProvider) normalizeHotel(e amadeusHotelEntry, q HotelQuery, nights int, nearDestination bool) (models.HotelCandidate, bool) {
	if len(e.Offers) == 0 {
		return models.HotelCandidate{}, false
	}

	best := -1
	bestAmount := 0.0
	for i, o := range e.Offers {
		amount := parseAmount(firstNonEmpty(o.Price.Total, o.Price.Base))
		if amount <= 0 {
			continue
		}
		if best < 0 || amount < bestAmount {
			best, bestAmount = i, amount
		}
	}

	offer := e.Offers[0]
	if best >= 0 {
		offer = e.Offers[best]
	}
	ccy := models.NormalizeCurrency(offer.Price.Currency)

	c := models.HotelCandidate{
		ID:           "amadeus-" + e.Hotel.HotelID,
		Source:       models.SourceAmadeus,
		Name:         e.Hotel.Name,
		City:         e.Hotel.CityCode,
		Neighborhood: e.Hotel.CityCode,
		Nights:       nights,
		TotalPrice:   models.Money{Amount: bestAmount, Currency: ccy},
		NightlyPrice: models.Money{Amount: nightly(bestAmount, nights), Currency: ccy},
	}
	if nearDestination && q.City != "" {
		c.City = q.City
	}
	if stars, err := strconv.Atoi(strings.TrimSpace(e.Hotel.Rating)); err == nil {
		c.Stars = &stars
	}
	if offer.ID != "" {
		c.DeepLink = p.cfg.BaseURL + "/v3/shopping/hotel-offers/" + offer.ID
	}
	return c, true
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func nightly(total float64, nights int) float64 {
	if nights <= 0 {
		return total
	}
	return float64(int(total/float64(nights)*100+0.5)) / 100
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
