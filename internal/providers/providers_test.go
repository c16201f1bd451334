package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/tripplanner/internal/models"
)

var (
	checkIn  = time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	checkOut = time.Date(2025, 12, 6, 0, 0, 0, 0, time.UTC)
)

func flightQuery() FlightQuery {
	return FlightQuery{
		Origin:        "DEL",
		Destination:   "CMB",
		DepartureDate: checkIn,
		ReturnDate:    checkOut,
		Adults:        2,
		Currency:      "USD",
	}
}

func hotelQuery() HotelQuery {
	return HotelQuery{
		City:     "Kandy",
		CityCode: "CMB",
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Adults:   2,
		Currency: "USD",
	}
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

const amadeusFlights = `{
  "data": [
    {
      "id": "1",
      "validatingAirlineCodes": ["UL"],
      "price": {"currency": "USD", "total": "412.30", "grandTotal": "412.30"},
      "itineraries": [
        {"duration": "PT3H35M", "segments": [
          {"departure": {"iataCode": "DEL", "at": "2025-12-01T09:15:00"}, "arrival": {"iataCode": "CMB", "at": "2025-12-01T12:50:00"}, "carrierCode": "UL", "number": "196"}
        ]},
        {"duration": "PT3H20M", "segments": [
          {"departure": {"iataCode": "CMB", "at": "2025-12-06T01:10:00"}, "arrival": {"iataCode": "DEL", "at": "2025-12-06T04:30:00"}, "carrierCode": "UL", "number": "195"}
        ]}
      ]
    },
    {
      "id": "2",
      "validatingAirlineCodes": ["AI"],
      "price": {"currency": "USD", "total": "not-a-number"},
      "itineraries": [
        {"duration": "PT7H", "segments": [
          {"departure": {"iataCode": "DEL", "at": "2025-12-01T06:00:00"}, "arrival": {"iataCode": "MAA", "at": "2025-12-01T08:45:00"}, "carrierCode": "AI", "number": "439"},
          {"departure": {"iataCode": "MAA", "at": "2025-12-01T10:30:00"}, "arrival": {"iataCode": "CMB", "at": "2025-12-01T11:55:00"}, "carrierCode": "AI", "number": "273"}
        ]}
      ]
    }
  ],
  "dictionaries": {"carriers": {"UL": "SRILANKAN AIRLINES", "AI": "AIR INDIA"}}
}`

const amadeusHotelList = `{"data": [{"hotelId": "HLCMB001"}, {"hotelId": "HLCMB002"}, {"hotelId": "HLCMB001"}]}`

const amadeusHotelOffers = `{
  "data": [
    {
      "hotel": {"hotelId": "HLCMB001", "name": "Earl's Regency", "cityCode": "CMB", "rating": "5"},
      "offers": [
        {"id": "OFF-A", "price": {"currency": "USD", "total": "640.00"}},
        {"id": "OFF-B", "price": {"currency": "USD", "total": "575.50"}}
      ]
    },
    {
      "hotel": {"hotelId": "HLCMB002", "name": "Unbookable Lodge", "cityCode": "CMB"},
      "offers": []
    }
  ]
}`

func newAmadeusServer(t *testing.T, tokenCalls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/security/oauth2/token":
			atomic.AddInt32(tokenCalls, 1)
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			assert.Equal(t, "id", r.PostForm.Get("client_id"))
			writeJSON(w, `{"access_token": "tok-123", "expires_in": 1799}`)
		case "/v2/shopping/flight-offers":
			assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
			assert.Equal(t, "DEL", r.URL.Query().Get("originLocationCode"))
			assert.Equal(t, "2025-12-06", r.URL.Query().Get("returnDate"))
			assert.Equal(t, "2", r.URL.Query().Get("adults"))
			writeJSON(w, amadeusFlights)
		case "/v1/reference-data/locations/hotels/by-city":
			assert.Equal(t, "CMB", r.URL.Query().Get("cityCode"))
			writeJSON(w, amadeusHotelList)
		case "/v1/reference-data/locations/hotels/by-geocode":
			assert.Equal(t, "7.2906", r.URL.Query().Get("latitude"))
			assert.Equal(t, "80.6337", r.URL.Query().Get("longitude"))
			assert.Equal(t, "20", r.URL.Query().Get("radius"))
			writeJSON(w, amadeusHotelList)
		case "/v3/shopping/hotel-offers":
			assert.Equal(t, "HLCMB001,HLCMB002", r.URL.Query().Get("hotelIds"))
			assert.Equal(t, "2025-12-06", r.URL.Query().Get("checkOutDate"))
			writeJSON(w, amadeusHotelOffers)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestAmadeus_SearchFlights(t *testing.T) {
	var tokenCalls int32
	srv := newAmadeusServer(t, &tokenCalls)
	defer srv.Close()

	p := NewAmadeusProvider(AmadeusConfig{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL, Timeout: time.Second})
	flights, err := p.SearchFlights(context.Background(), flightQuery())
	require.NoError(t, err)
	require.Len(t, flights, 2)

	first := flights[0]
	assert.Equal(t, "amadeus-1", first.ID)
	assert.Equal(t, models.SourceAmadeus, first.Source)
	assert.Equal(t, models.Carrier{Code: "UL", Name: "SRILANKAN AIRLINES"}, first.Carrier)
	assert.Equal(t, "UL196", first.FlightNumber)
	assert.Equal(t, 412.30, first.Price.Amount)
	assert.Equal(t, 0, first.Stops)
	assert.Equal(t, "3h 35m", first.Duration)
	// 09:15 in Delhi
	assert.Equal(t, time.Date(2025, 12, 1, 3, 45, 0, 0, time.UTC), first.DepartureTime.UTC())
	assert.False(t, first.ReturnTime.IsZero())

	// kept with a zero price so the assembler can count it
	second := flights[1]
	assert.Equal(t, 1, second.Stops)
	assert.Zero(t, second.Price.Amount)
	assert.Equal(t, "CMB", second.Destination)
}

func TestAmadeus_TokenIsCached(t *testing.T) {
	var tokenCalls int32
	srv := newAmadeusServer(t, &tokenCalls)
	defer srv.Close()

	p := NewAmadeusProvider(AmadeusConfig{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL, Timeout: time.Second})
	ctx := context.Background()

	_, err := p.SearchFlights(ctx, flightQuery())
	require.NoError(t, err)
	_, err = p.SearchHotels(ctx, hotelQuery())
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&tokenCalls))

	// past expiry minus leeway
	p.now = func() time.Time { return time.Now().Add(30 * time.Minute) }
	_, err = p.SearchFlights(ctx, flightQuery())
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&tokenCalls))
}

func TestAmadeus_SearchHotels(t *testing.T) {
	var tokenCalls int32
	srv := newAmadeusServer(t, &tokenCalls)
	defer srv.Close()

	p := NewAmadeusProvider(AmadeusConfig{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL, Timeout: time.Second})
	hotels, err := p.SearchHotels(context.Background(), hotelQuery())
	require.NoError(t, err)
	require.Len(t, hotels, 1)

	h := hotels[0]
	assert.Equal(t, "amadeus-HLCMB001", h.ID)
	assert.Equal(t, "Earl's Regency", h.Name)
	// listed by the hub's city code, so not relabelled as the destination
	assert.Equal(t, "CMB", h.City)
	assert.Equal(t, 575.50, h.TotalPrice.Amount)
	assert.Equal(t, 115.10, h.NightlyPrice.Amount)
	assert.Equal(t, 5, h.Nights)
	require.NotNil(t, h.Stars)
	assert.Equal(t, 5, *h.Stars)
	assert.Equal(t, srv.URL+"/v3/shopping/hotel-offers/OFF-B", h.DeepLink)
}

func TestAmadeus_SearchHotelsByCoordinates(t *testing.T) {
	var tokenCalls int32
	srv := newAmadeusServer(t, &tokenCalls)
	defer srv.Close()

	q := hotelQuery()
	q.Latitude, q.Longitude = 7.2906, 80.6337

	p := NewAmadeusProvider(AmadeusConfig{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL, Timeout: time.Second})
	hotels, err := p.SearchHotels(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, hotels, 1)
	assert.Equal(t, "Kandy", hotels[0].City)
	assert.Equal(t, "CMB", hotels[0].Neighborhood)
}

func TestAmadeus_SearchHotelsNeedsALocation(t *testing.T) {
	p := NewAmadeusProvider(AmadeusConfig{ClientID: "id", ClientSecret: "secret", BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	_, err := p.SearchHotels(context.Background(), HotelQuery{City: "Kandy", CheckIn: checkIn, CheckOut: checkOut})
	assert.ErrorContains(t, err, "city code or coordinates")
}

func TestAmadeus_Errors(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		p := NewAmadeusProvider(AmadeusConfig{})
		_, err := p.SearchFlights(context.Background(), flightQuery())
		assert.ErrorIs(t, err, ErrMissingCredentials)
		_, err = p.SearchHotels(context.Background(), hotelQuery())
		assert.ErrorIs(t, err, ErrMissingCredentials)
	})

	t.Run("auth rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error": "invalid_client"}`)
		}))
		defer srv.Close()

		p := NewAmadeusProvider(AmadeusConfig{ClientID: "id", ClientSecret: "bad", BaseURL: srv.URL, Timeout: time.Second})
		_, err := p.SearchFlights(context.Background(), flightQuery())

		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
		assert.False(t, statusErr.Retryable())
	})
}

const duffelOffers = `{
  "data": {
    "offers": [
      {
        "id": "off_0001",
        "total_amount": "388.20",
        "total_currency": "USD",
        "owner": {"iata_code": "6E", "name": "IndiGo"},
        "slices": [
          {"duration": "PT3H30M", "segments": [
            {"departing_at": "2025-12-01T14:00:00", "marketing_carrier": {"iata_code": "6E", "name": "IndiGo"}, "marketing_carrier_flight_number": "1173", "origin": {"iata_code": "DEL"}, "destination": {"iata_code": "CMB"}}
          ]},
          {"duration": "PT3H30M", "segments": [
            {"departing_at": "2025-12-06T19:00:00", "marketing_carrier": {"iata_code": "6E", "name": "IndiGo"}, "marketing_carrier_flight_number": "1174", "origin": {"iata_code": "CMB"}, "destination": {"iata_code": "DEL"}}
          ]}
        ]
      }
    ]
  }
}`

func TestDuffel_SearchFlights(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/air/offer_requests", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("return_offers"))
		assert.Equal(t, "Bearer duffel_test", r.Header.Get("Authorization"))
		assert.Equal(t, "v2", r.Header.Get("Duffel-Version"))

		var body duffelOfferRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.Len(t, body.Data.Slices, 2) {
			assert.Equal(t, "CMB", body.Data.Slices[1].Origin)
			assert.Equal(t, "2025-12-06", body.Data.Slices[1].DepartureDate)
		}
		assert.Len(t, body.Data.Passengers, 2)

		writeJSON(w, duffelOffers)
	}))
	defer srv.Close()

	p := NewDuffelProvider(DuffelConfig{AccessToken: "duffel_test", BaseURL: srv.URL, Timeout: time.Second})
	flights, err := p.SearchFlights(context.Background(), flightQuery())
	require.NoError(t, err)
	require.Len(t, flights, 1)

	f := flights[0]
	assert.Equal(t, "duffel-off_0001", f.ID)
	assert.Equal(t, models.SourceDuffel, f.Source)
	assert.Equal(t, "6E", f.Carrier.Code)
	assert.Equal(t, "6E1173", f.FlightNumber)
	assert.Equal(t, 388.20, f.Price.Amount)
	assert.True(t, f.IsDirect())
	assert.Equal(t, "3h 30m", f.Duration)
}

func TestDuffel_Errors(t *testing.T) {
	_, err := NewDuffelProvider(DuffelConfig{}).SearchFlights(context.Background(), flightQuery())
	assert.ErrorIs(t, err, ErrMissingCredentials)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err = NewDuffelProvider(DuffelConfig{AccessToken: "t", BaseURL: srv.URL, Timeout: time.Second}).
		SearchFlights(context.Background(), flightQuery())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.True(t, statusErr.Retryable())
}

func TestBooking_SearchHotels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rapid-key", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, bookingHost, r.Header.Get("X-RapidAPI-Host"))

		switch r.URL.Path {
		case "/v1/hotels/locations":
			assert.Equal(t, "Kandy", r.URL.Query().Get("name"))
			writeJSON(w, `[{"dest_id": "900", "dest_type": "region"}, {"dest_id": "-2225190", "dest_type": "city", "city_name": "Kandy"}]`)
		case "/v1/hotels/search":
			assert.Equal(t, "-2225190", r.URL.Query().Get("dest_id"))
			assert.Equal(t, "2025-12-01", r.URL.Query().Get("checkin_date"))
			writeJSON(w, `{"result": [
				{"hotel_id": 101, "hotel_name": "Hill Top Kandy", "class": 3.5, "district": "Ampitiya", "city_trans": "Kandy",
				 "currencycode": "USD", "price_breakdown": {"all_inclusive_price": 410.25, "currency": "USD"}, "url": "https://booking.example/101"},
				{"hotel_id": 102, "hotel_name": "Lake View", "city": "Kandy", "currencycode": "USD", "min_total_price": 300}
			]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewBookingProvider(BookingConfig{RapidAPIKey: "rapid-key", BaseURL: srv.URL, Timeout: time.Second})
	hotels, err := p.SearchHotels(context.Background(), hotelQuery())
	require.NoError(t, err)
	require.Len(t, hotels, 2)

	first := hotels[0]
	assert.Equal(t, "booking-101", first.ID)
	assert.Equal(t, models.SourceBooking, first.Source)
	assert.Equal(t, "Kandy", first.City)
	assert.Equal(t, "Ampitiya", first.Neighborhood)
	assert.Equal(t, 410.25, first.TotalPrice.Amount)
	require.NotNil(t, first.Stars)
	assert.Equal(t, 4, *first.Stars)
	assert.Equal(t, "https://booking.example/101", first.DeepLink)

	second := hotels[1]
	assert.Equal(t, 300.0, second.TotalPrice.Amount)
	assert.Equal(t, 60.0, second.NightlyPrice.Amount)
	assert.Nil(t, second.Stars)
}

func TestBooking_NoDestination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[]`)
	}))
	defer srv.Close()

	p := NewBookingProvider(BookingConfig{RapidAPIKey: "k", BaseURL: srv.URL, Timeout: time.Second})
	hotels, err := p.SearchHotels(context.Background(), hotelQuery())
	require.NoError(t, err)
	assert.Empty(t, hotels)

	_, err = NewBookingProvider(BookingConfig{}).SearchHotels(context.Background(), hotelQuery())
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestSynthetic(t *testing.T) {
	p := NewSyntheticProvider()
	ctx := context.Background()

	flights, err := p.SearchFlights(ctx, flightQuery())
	require.NoError(t, err)
	require.Len(t, flights, 3)

	again, err := p.SearchFlights(ctx, flightQuery())
	require.NoError(t, err)
	assert.Equal(t, flights, again, "same query gives the same candidates")

	for _, f := range flights {
		assert.Equal(t, models.SourceSynthetic, f.Source)
		assert.Contains(t, f.ID, "synthetic-")
		assert.Greater(t, f.Price.Amount, 0.0)
		assert.False(t, f.DepartureTime.IsZero())
		assert.Equal(t, "CMB", f.Destination)
	}

	hotels, err := p.SearchHotels(ctx, hotelQuery())
	require.NoError(t, err)
	require.Len(t, hotels, 3)
	for _, h := range hotels {
		assert.Equal(t, models.SourceSynthetic, h.Source)
		assert.Equal(t, "Kandy", h.City)
		assert.Equal(t, 5, h.Nights)
		assert.InDelta(t, h.NightlyPrice.Amount*5, h.TotalPrice.Amount, 0.01)
	}

	t.Run("requested currency", func(t *testing.T) {
		q := hotelQuery()
		q.Currency = "LKR"
		hotels, err := p.SearchHotels(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, "LKR", hotels[0].TotalPrice.Currency)
		assert.Greater(t, hotels[0].NightlyPrice.Amount, 1000.0)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := p.SearchFlights(cctx, flightQuery())
		assert.ErrorIs(t, err, context.Canceled)
	})
}
