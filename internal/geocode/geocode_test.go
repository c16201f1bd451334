package geocode

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/tripplanner/internal/models"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestGazetteer_Resolve(t *testing.T) {
	g := NewGazetteer()
	ctx := context.Background()

	tests := []struct {
		query   string
		country string
		city    string
		airport string
	}{
		{"Kandy", "Sri Lanka", "Kandy", "CMB"},
		{"  new   delhi ", "India", "New Delhi", "DEL"},
		{"Sri Lanka", "Sri Lanka", "", "CMB"},
		{"japan", "Japan", "", "TYO"},
		{"CMB", "Sri Lanka", "Colombo", "CMB"},
		{"New York City", "United States", "New York", "NYC"},
		{"Mexico City", "Mexico", "Mexico City", "MEX"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			loc, ok := g.Resolve(ctx, tt.query)
			require.True(t, ok)
			assert.Equal(t, tt.country, loc.Country)
			assert.Equal(t, tt.city, loc.City)
			assert.Equal(t, tt.airport, loc.AirportCode)
			assert.Equal(t, SourceGazetteer, loc.Source)
		})
	}

	_, ok := g.Resolve(ctx, "Atlantis")
	assert.False(t, ok)
	_, ok = g.Resolve(ctx, "")
	assert.False(t, ok)
}

func TestGazetteer_AirportFor(t *testing.T) {
	g := NewGazetteer()
	assert.Equal(t, "CMB", g.AirportFor("Ella", "Sri Lanka"))
	assert.Equal(t, "TYO", g.AirportFor("Hakone", "Japan"))
	assert.Equal(t, "", g.AirportFor("Nowhere", "Narnia"))
}

const openCageBody = `{
  "results": [
    {"components": {"state": "Central Province"}, "geometry": {"lat": 1, "lng": 2}},
    {"components": {"country": "Sri Lanka", "town": "Kandy"}, "geometry": {"lat": 7.2906, "lng": 80.6337}}
  ],
  "status": {"code": 200, "message": "OK"}
}`

func TestOpenCage_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/v1/json", r.URL.Path)
		assert.Equal(t, "kandy", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, openCageBody)
	}))
	defer srv.Close()

	oc := NewOpenCage("test-key", srv.URL, time.Second, quiet)
	loc, ok := oc.Resolve(context.Background(), "kandy")

	require.True(t, ok)
	assert.Equal(t, "Sri Lanka", loc.Country)
	assert.Equal(t, "Kandy", loc.City)
	assert.InDelta(t, 7.2906, loc.Latitude, 1e-6)
	assert.Equal(t, SourceOpenCage, loc.Source)
}

func TestOpenCage_FailuresAreNotFound(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"quota exceeded", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"results": [`)
		}},
		{"no results", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"results": []}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, ok := NewOpenCage("k", srv.URL, time.Second, quiet).Resolve(context.Background(), "kandy")
			assert.False(t, ok)
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		_, ok := NewOpenCage("k", "http://127.0.0.1:1", 200*time.Millisecond, quiet).Resolve(context.Background(), "kandy")
		assert.False(t, ok)
	})

	t.Run("no key makes no call", func(t *testing.T) {
		called := false
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
		defer srv.Close()

		_, ok := NewOpenCage("", srv.URL, time.Second, quiet).Resolve(context.Background(), "kandy")
		assert.False(t, ok)
		assert.False(t, called)
	})
}

type stubResolver struct {
	loc   models.GeoLocation
	ok    bool
	calls int
}

func (s *stubResolver) Name() string { return "stub" }

func (s *stubResolver) Resolve(context.Context, string) (models.GeoLocation, bool) {
	s.calls++
	return s.loc, s.ok
}

func TestChain_Resolve(t *testing.T) {
	miss := &stubResolver{}
	hit := &stubResolver{loc: models.GeoLocation{Country: "Sri Lanka", City: "Kandy", Source: "stub"}, ok: true}
	never := &stubResolver{ok: true}

	chain := NewChain(quiet, miss, hit, never)
	loc, ok := chain.Resolve(context.Background(), "Kandy")

	require.True(t, ok)
	assert.Equal(t, "Kandy", loc.City)
	assert.Equal(t, "CMB", loc.AirportCode, "airport filled from gazetteer")
	assert.Equal(t, 1, miss.calls)
	assert.Equal(t, 1, hit.calls)
	assert.Zero(t, never.calls)
	assert.Equal(t, "chain(stub,stub,stub)", chain.Name())
}

func TestChain_AllMiss(t *testing.T) {
	chain := NewChain(quiet, &stubResolver{}, NewGazetteer())
	_, ok := chain.Resolve(context.Background(), "Atlantis")
	assert.False(t, ok)

	_, ok = chain.Resolve(context.Background(), "   ")
	assert.False(t, ok)
}
