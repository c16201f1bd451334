package providers

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/dharmasatrya/tripplanner/internal/models"
	"github.com/dharmasatrya/tripplanner/internal/timezone"
	"github.com/dharmasatrya/tripplanner/pkg/currency"
)

var syntheticCarriers = []models.Carrier{
	{Code: "XM", Name: "MockAir"},
	{Code: "XP", Name: "Placeholder Airways"},
	{Code: "XS", Name: "Sample Connect"},
}

var syntheticHotelNames = []string{
	"%s Sample Inn",
	"%s Placeholder Residency",
	"Grand %s Mock Resort",
}

// SyntheticProvider generates placeholder candidates when no real data is
// available. Every candidate carries the synthetic source tag and an ID
// prefixed with "synthetic-". Output is deterministic for a given query.
type SyntheticProvider struct {
	count int
}

func NewSyntheticProvider() *SyntheticProvider {
	return &SyntheticProvider{count: 3}
}

func (p *SyntheticProvider) Name() string {
	return string(models.SourceSynthetic)
}

func seeded(parts ...string) *rand.Rand {
	h := fnv.New64a()
	for _, part := range parts {
		_, _ = h.Write([]byte(strings.ToUpper(part)))
		_, _ = h.Write([]byte{0})
	}
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed>>1))
}

func (p *SyntheticProvider) SearchFlights(ctx context.Context, q FlightQuery) ([]models.FlightCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := seeded(q.Origin, q.Destination, q.DepartureDate.Format(models.DateLayout))
	loc := timezone.GetLocationByAirport(q.Origin)
	y, m, d := q.DepartureDate.Date()
	adults := max(1, q.Adults)

	flights := make([]models.FlightCandidate, 0, p.count)
	for i := 0; i < p.count; i++ {
		carrier := syntheticCarriers[i%len(syntheticCarriers)]
		stops := i % 2
		duration := time.Duration(4+i+stops*2)*time.Hour + time.Duration(r.IntN(4)*15)*time.Minute
		perAdult := math.Round(float64(250+r.IntN(350))*100) / 100

		f := models.FlightCandidate{
			ID:            fmt.Sprintf("synthetic-flight-%d", i+1),
			Source:        models.SourceSynthetic,
			Carrier:       carrier,
			FlightNumber:  fmt.Sprintf("%s%d", carrier.Code, 100+r.IntN(900)),
			Origin:        strings.ToUpper(q.Origin),
			Destination:   strings.ToUpper(q.Destination),
			DepartureTime: time.Date(y, m, d, 7+i*5, 0, 0, 0, loc),
			Duration:      timezone.FormatDuration(duration),
			Stops:         stops,
			Price:         syntheticPrice(perAdult*float64(adults), q.Currency),
		}
		if !q.ReturnDate.IsZero() {
			ry, rm, rd := q.ReturnDate.Date()
			f.ReturnTime = time.Date(ry, rm, rd, 10+i*4, 30, 0, 0, timezone.GetLocationByAirport(q.Destination))
		}
		flights = append(flights, f)
	}
	return flights, nil
}

func (p *SyntheticProvider) SearchHotels(ctx context.Context, q HotelQuery) ([]models.HotelCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	city := q.City
	if city == "" {
		city = strings.ToUpper(q.CityCode)
	}
	r := seeded(city, q.CheckIn.Format(models.DateLayout))
	nights := q.Nights()

	hotels := make([]models.HotelCandidate, 0, p.count)
	for i := 0; i < p.count; i++ {
		stars := 3 + i
		perNight := syntheticPrice(float64(40+stars*20+r.IntN(40)), q.Currency)
		total := models.Money{Amount: math.Round(perNight.Amount*float64(nights)*100) / 100, Currency: perNight.Currency}
		hotels = append(hotels, models.HotelCandidate{
			ID:           fmt.Sprintf("synthetic-hotel-%d", i+1),
			Source:       models.SourceSynthetic,
			Name:         fmt.Sprintf(syntheticHotelNames[i%len(syntheticHotelNames)], city),
			City:         city,
			Neighborhood: "City Centre",
			Nights:       nights,
			NightlyPrice: perNight,
			TotalPrice:   total,
			Stars:        &stars,
		})
	}
	return hotels, nil
}

var syntheticFX = currency.NewStaticConverter()

// syntheticPrice expresses a USD amount in the requested currency. Unknown
// currencies stay in USD.
func syntheticPrice(usd float64, code string) models.Money {
	code = models.NormalizeCurrency(code)
	amount, err := syntheticFX.Convert(usd, "USD", code)
	if err != nil {
		return models.Money{Amount: usd, Currency: "USD"}
	}
	return models.Money{Amount: amount, Currency: code}
}
