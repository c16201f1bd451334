package assembler

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/tripplanner/internal/models"
	"github.com/dharmasatrya/tripplanner/pkg/currency"
)

var departure = time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)

func flight(id string, price float64) models.FlightCandidate {
	return models.FlightCandidate{
		ID:            id,
		Source:        models.SourceAmadeus,
		Carrier:       models.Carrier{Code: "UL", Name: "SriLankan Airlines"},
		Origin:        "DEL",
		Destination:   "CMB",
		DepartureTime: departure,
		Price:         models.Money{Amount: price, Currency: "USD"},
	}
}

func hotel(id string, total float64) models.HotelCandidate {
	return models.HotelCandidate{
		ID:           id,
		Source:       models.SourceBooking,
		Name:         "Hotel " + id,
		City:         "Kandy",
		Nights:       5,
		NightlyPrice: models.Money{Amount: total / 5, Currency: "USD"},
		TotalPrice:   models.Money{Amount: total, Currency: "USD"},
	}
}

func usd(amount float64) *models.Money {
	return &models.Money{Amount: amount, Currency: "USD"}
}

func TestAssemble_EmptyLegYieldsNoPackages(t *testing.T) {
	tests := []struct {
		name    string
		flights []models.FlightCandidate
		hotels  []models.HotelCandidate
	}{
		{"both empty", nil, nil},
		{"no flights", nil, []models.HotelCandidate{hotel("h1", 400)}},
		{"no hotels", []models.FlightCandidate{flight("f1", 200)}, nil},
		{"only invalid flights", []models.FlightCandidate{flight("f1", 0)}, []models.HotelCandidate{hotel("h1", 400)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Assemble(tt.flights, tt.hotels, DefaultOptions())
			assert.NotNil(t, res.Packages)
			assert.Empty(t, res.Packages)
			assert.Zero(t, res.Combinations)
		})
	}
}

func TestAssemble_LowerFlightPriceRanksAtLeastAsWell(t *testing.T) {
	opts := DefaultOptions()
	opts.Budget = usd(2000)

	res := Assemble(
		[]models.FlightCandidate{flight("f150", 150), flight("f100", 100)},
		[]models.HotelCandidate{hotel("h1", 500)},
		opts,
	)

	require.Len(t, res.Packages, 2)
	assert.Equal(t, "f100", res.Packages[0].Flight.ID)
	assert.GreaterOrEqual(t, res.Packages[0].Score, res.Packages[1].Score)
}

func TestAssemble_LowerHotelPriceRanksAtLeastAsWell(t *testing.T) {
	res := Assemble(
		[]models.FlightCandidate{flight("f1", 300)},
		[]models.HotelCandidate{hotel("h900", 900), hotel("h450", 450)},
		DefaultOptions(),
	)

	require.Len(t, res.Packages, 2)
	assert.Equal(t, "h450", res.Packages[0].Hotel.ID)
}

func TestAssemble_UnderBudgetRanksAboveOverBudget(t *testing.T) {
	opts := DefaultOptions()
	opts.Budget = usd(500)

	res := Assemble(
		[]models.FlightCandidate{flight("f1", 100)},
		[]models.HotelCandidate{hotel("over", 500), hotel("under", 300)},
		opts,
	)

	require.Len(t, res.Packages, 2)
	first, second := res.Packages[0], res.Packages[1]
	assert.Equal(t, 400.0, first.Total.Amount)
	assert.Equal(t, 600.0, second.Total.Amount)
	assert.Greater(t, first.Score, second.Score)
	require.NotNil(t, first.WithinBudget)
	require.NotNil(t, second.WithinBudget)
	assert.True(t, *first.WithinBudget)
	assert.False(t, *second.WithinBudget)
}

func TestAssemble_TotalIsSumOfConstituents(t *testing.T) {
	flights := []models.FlightCandidate{flight("f1", 211.17), flight("f2", 389.05), flight("f3", 97.3)}
	hotels := []models.HotelCandidate{hotel("h1", 404.44), hotel("h2", 612.9), hotel("h3", 150.01), hotel("h4", 999.99)}

	opts := DefaultOptions()
	opts.Limit = 20
	res := Assemble(flights, hotels, opts)

	require.Len(t, res.Packages, len(flights)*len(hotels))
	for _, p := range res.Packages {
		assert.Equal(t, p.Flight.Price.Amount+p.Hotel.TotalPrice.Amount, p.Total.Amount)
		assert.Equal(t, "USD", p.Total.Currency)
	}
}

func TestAssemble_ExcludesMalformedCandidates(t *testing.T) {
	noDeparture := flight("f-nodate", 120)
	noDeparture.DepartureTime = time.Time{}
	noName := hotel("h-noname", 300)
	noName.Name = "  "

	flights := []models.FlightCandidate{
		flight("f1", 200),
		flight("f-zero", 0),
		flight("f-nan", math.NaN()),
		noDeparture,
	}
	hotels := []models.HotelCandidate{hotel("h1", 400), hotel("h-neg", -10), noName}

	var res Result
	require.NotPanics(t, func() { res = Assemble(flights, hotels, DefaultOptions()) })

	assert.Equal(t, 3, res.ExcludedFlights)
	assert.Equal(t, 2, res.ExcludedHotels)
	require.Len(t, res.Packages, 1)
	assert.Equal(t, "f1", res.Packages[0].Flight.ID)
	assert.Equal(t, "h1", res.Packages[0].Hotel.ID)
}

func TestAssemble_KandyExample(t *testing.T) {
	opts := DefaultOptions()
	opts.Budget = usd(1000)

	res := Assemble(
		[]models.FlightCandidate{flight("f200", 200), flight("f300", 300), flight("f250", 250)},
		[]models.HotelCandidate{hotel("h400", 400), hotel("h600", 600)},
		opts,
	)

	assert.Equal(t, 6, res.Combinations)
	require.Len(t, res.Packages, 5)

	top := res.Packages[0]
	assert.Equal(t, "f200", top.Flight.ID)
	assert.Equal(t, "h400", top.Hotel.ID)
	assert.Equal(t, 600.0, top.Total.Amount)
	require.NotNil(t, top.WithinBudget)
	assert.True(t, *top.WithinBudget)

	for i, p := range res.Packages {
		assert.Equal(t, i+1, p.Rank)
		assert.NotEmpty(t, p.ID)
		if i > 0 {
			assert.GreaterOrEqual(t, res.Packages[i-1].Score, p.Score)
		}
	}
}

func TestAssemble_CombinationCap(t *testing.T) {
	var flights []models.FlightCandidate
	var hotels []models.HotelCandidate
	for i := 0; i < 30; i++ {
		flights = append(flights, flight(fmt.Sprintf("f%02d", i), float64(100+i)))
		hotels = append(hotels, hotel(fmt.Sprintf("h%02d", i), float64(300+i)))
	}

	t.Run("candidate cap keeps the cheapest", func(t *testing.T) {
		opts := DefaultOptions()
		opts.CandidateCap = 3
		opts.Limit = 50
		res := Assemble(flights, hotels, opts)

		assert.Equal(t, 9, res.Combinations)
		for _, p := range res.Packages {
			assert.Less(t, p.Flight.Price.Amount, 103.0)
			assert.Less(t, p.Hotel.TotalPrice.Amount, 303.0)
		}
	})

	t.Run("max combinations is a hard stop", func(t *testing.T) {
		opts := DefaultOptions()
		opts.CandidateCap = 30
		opts.MaxCombinations = 40
		res := Assemble(flights, hotels, opts)

		assert.Equal(t, 40, res.Combinations)
		assert.Len(t, res.Packages, DefaultLimit)
	})
}

func TestAssemble_DeterministicTieBreak(t *testing.T) {
	res := Assemble(
		[]models.FlightCandidate{flight("fb", 200), flight("fa", 200)},
		[]models.HotelCandidate{hotel("h1", 400)},
		DefaultOptions(),
	)

	require.Len(t, res.Packages, 2)
	assert.Equal(t, res.Packages[0].Score, res.Packages[1].Score)
	assert.Equal(t, "fa", res.Packages[0].Flight.ID)
	assert.Equal(t, "fb", res.Packages[1].Flight.ID)
}

func TestAssemble_CurrencyMismatch(t *testing.T) {
	euroHotel := hotel("h-eur", 350)
	euroHotel.TotalPrice.Currency = "EUR"

	flights := []models.FlightCandidate{flight("f1", 200)}
	hotels := []models.HotelCandidate{hotel("h-usd", 400), euroHotel}

	t.Run("excluded without a converter", func(t *testing.T) {
		res := Assemble(flights, hotels, DefaultOptions())

		assert.Equal(t, 1, res.CurrencyMismatches)
		require.Len(t, res.Packages, 1)
		assert.Equal(t, "h-usd", res.Packages[0].Hotel.ID)
		assert.False(t, res.Packages[0].FXApproximate)
	})

	t.Run("converted and flagged with a converter", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Converter = currency.NewStaticConverter()
		res := Assemble(flights, hotels, opts)

		assert.Zero(t, res.CurrencyMismatches)
		require.Len(t, res.Packages, 2)
		for _, p := range res.Packages {
			assert.Equal(t, "USD", p.Total.Currency)
			assert.Equal(t, "USD", p.Hotel.TotalPrice.Currency)
			assert.Equal(t, p.Flight.Price.Amount+p.Hotel.TotalPrice.Amount, p.Total.Amount)
			assert.Equal(t, p.Hotel.ID == "h-eur", p.FXApproximate)
		}
	})
}

func TestAssemble_CandidateCapUsesConvertedPrices(t *testing.T) {
	rupeeFlight := flight("f-lkr", 30000)
	rupeeFlight.Price.Currency = "LKR"
	yenHotel := hotel("h-jpy", 30000)
	yenHotel.TotalPrice.Currency = "JPY"

	opts := DefaultOptions()
	opts.Currency = "USD"
	opts.CandidateCap = 1
	opts.Converter = currency.NewStaticConverter()

	res := Assemble(
		[]models.FlightCandidate{flight("f-usd", 300), rupeeFlight},
		[]models.HotelCandidate{hotel("h-usd", 400), yenHotel},
		opts,
	)

	require.Len(t, res.Packages, 1)
	p := res.Packages[0]
	assert.Equal(t, "f-lkr", p.Flight.ID)
	assert.Equal(t, "h-jpy", p.Hotel.ID)
	assert.InDelta(t, 99.0+201.0, p.Total.Amount, 0.001)
	assert.True(t, p.FXApproximate)
}

func TestUsableCandidates(t *testing.T) {
	pound := flight("f-gbp", 300)
	pound.Price.Currency = "GBP"
	conv := currency.NewStaticConverter()

	assert.True(t, UsableFlight(flight("f1", 200), "usd", nil))
	assert.False(t, UsableFlight(flight("f0", 0), "USD", conv))
	assert.False(t, UsableFlight(pound, "USD", nil))
	assert.True(t, UsableFlight(pound, "USD", conv))

	nameless := hotel("h0", 400)
	nameless.Name = " "
	assert.True(t, UsableHotel(hotel("h1", 400), "USD", nil))
	assert.False(t, UsableHotel(nameless, "USD", nil))
}

func TestAssemble_SyntheticFlag(t *testing.T) {
	mock := hotel("h-mock", 400)
	mock.Source = models.SourceSynthetic

	res := Assemble([]models.FlightCandidate{flight("f1", 200)}, []models.HotelCandidate{mock}, DefaultOptions())

	require.Len(t, res.Packages, 1)
	assert.True(t, res.Packages[0].Synthetic)
}

func TestAssemble_Reasons(t *testing.T) {
	stars := 4
	h := hotel("h1", 400)
	h.Stars = &stars

	opts := DefaultOptions()
	opts.Budget = usd(1000)
	res := Assemble([]models.FlightCandidate{flight("f1", 200)}, []models.HotelCandidate{h}, opts)

	require.Len(t, res.Packages, 1)
	assert.Equal(t, []string{
		"Cheapest overall among the options evaluated",
		"Direct flight",
		"4-star hotel",
		"Within budget with $400.00 to spare",
	}, res.Packages[0].Reasons)
}
