package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dharmasatrya/tripplanner/internal/models"
	"github.com/dharmasatrya/tripplanner/internal/providers"
)

// Cache stores provider candidate lists per query. Only real provider data is
// cached; synthetic fallbacks are never written.
type Cache interface {
	GetFlights(ctx context.Context, q providers.FlightQuery) ([]models.FlightCandidate, bool)
	SetFlights(ctx context.Context, q providers.FlightQuery, flights []models.FlightCandidate) error
	GetHotels(ctx context.Context, q providers.HotelQuery) ([]models.HotelCandidate, bool)
	SetHotels(ctx context.Context, q providers.HotelQuery, hotels []models.HotelCandidate) error
	Close() error
}

// store is the byte-level backend shared by the Redis and in-memory caches.
type store interface {
	get(ctx context.Context, key string) ([]byte, bool)
	set(ctx context.Context, key string, data []byte) error
}

// typed adapts a store to the Cache candidate methods.
type typed struct {
	store store
}

func (t typed) GetFlights(ctx context.Context, q providers.FlightQuery) ([]models.FlightCandidate, bool) {
	var flights []models.FlightCandidate
	if !t.load(ctx, FlightKey(q), &flights) {
		return nil, false
	}
	return flights, true
}

func (t typed) SetFlights(ctx context.Context, q providers.FlightQuery, flights []models.FlightCandidate) error {
	return t.save(ctx, FlightKey(q), flights)
}

func (t typed) GetHotels(ctx context.Context, q providers.HotelQuery) ([]models.HotelCandidate, bool) {
	var hotels []models.HotelCandidate
	if !t.load(ctx, HotelKey(q), &hotels) {
		return nil, false
	}
	return hotels, true
}

func (t typed) SetHotels(ctx context.Context, q providers.HotelQuery, hotels []models.HotelCandidate) error {
	return t.save(ctx, HotelKey(q), hotels)
}

func (t typed) load(ctx context.Context, key string, out any) bool {
	data, ok := t.store.get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (t typed) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return t.store.set(ctx, key, data)
}

type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) GetFlights(ctx context.Context, q providers.FlightQuery) ([]models.FlightCandidate, bool) {
	return nil, false
}

func (c *NoOpCache) SetFlights(ctx context.Context, q providers.FlightQuery, flights []models.FlightCandidate) error {
	return nil
}

func (c *NoOpCache) GetHotels(ctx context.Context, q providers.HotelQuery) ([]models.HotelCandidate, bool) {
	return nil, false
}

func (c *NoOpCache) SetHotels(ctx context.Context, q providers.HotelQuery, hotels []models.HotelCandidate) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}

func FlightKey(q providers.FlightQuery) string {
	keyData := struct {
		Origin        string
		Destination   string
		DepartureDate string
		ReturnDate    string
		Adults        int
		Currency      string
	}{
		Origin:        q.Origin,
		Destination:   q.Destination,
		DepartureDate: formatDate(q.DepartureDate),
		ReturnDate:    formatDate(q.ReturnDate),
		Adults:        q.Adults,
		Currency:      q.Currency,
	}
	return "flights:" + hash(keyData)
}

func HotelKey(q providers.HotelQuery) string {
	keyData := struct {
		City       string
		CityCode   string
		CheckIn    string
		CheckOut   string
		Adults     int
		Currency   string
		MaxResults int
	}{
		City:       q.City,
		CityCode:   q.CityCode,
		CheckIn:    formatDate(q.CheckIn),
		CheckOut:   formatDate(q.CheckOut),
		Adults:     q.Adults,
		Currency:   q.Currency,
		MaxResults: q.MaxResults,
	}
	return "hotels:" + hash(keyData)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.DateLayout)
}

func hash(v any) string {
	data, _ := json.Marshal(v)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
