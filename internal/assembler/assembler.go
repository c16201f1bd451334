// Package assembler pairs flight and hotel candidates into ranked travel
// packages.
//
// Pairing is single-leg strict: a package always has exactly one flight and
// one hotel, so an empty flight or hotel set yields no packages. Candidates
// with unusable prices or dates are dropped and counted rather than failing
// the whole assembly.
package assembler

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/dharmasatrya/tripplanner/internal/models"
	"github.com/dharmasatrya/tripplanner/internal/ranking"
	"github.com/dharmasatrya/tripplanner/pkg/currency"
)

const (
	DefaultLimit           = 5
	DefaultCandidateCap    = 10
	DefaultMaxCombinations = 100
)

type Options struct {
	// Limit is the number of packages returned.
	Limit int
	// CandidateCap bounds how many of the cheapest flights and hotels are
	// paired.
	CandidateCap int
	// MaxCombinations is a hard stop on pairs evaluated.
	MaxCombinations int
	Budget          *models.Money
	// Currency all totals are expressed in. Defaults to the budget currency,
	// then to the currency of the cheapest flight.
	Currency string
	// Converter enables FX normalization. Without it, candidates priced in
	// another currency are excluded.
	Converter *currency.Converter
}

func DefaultOptions() Options {
	return Options{
		Limit:           DefaultLimit,
		CandidateCap:    DefaultCandidateCap,
		MaxCombinations: DefaultMaxCombinations,
	}
}

type Result struct {
	Packages           []models.Package
	ExcludedFlights    int
	ExcludedHotels     int
	CurrencyMismatches int
	Combinations       int
}

func Assemble(flights []models.FlightCandidate, hotels []models.HotelCandidate, opts Options) Result {
	opts = withDefaults(opts)
	result := Result{Packages: make([]models.Package, 0)}

	validFlights := make([]models.FlightCandidate, 0, len(flights))
	for _, f := range flights {
		if !validFlight(f) {
			result.ExcludedFlights++
			continue
		}
		f.Price.Currency = models.NormalizeCurrency(f.Price.Currency)
		validFlights = append(validFlights, f)
	}

	validHotels := make([]models.HotelCandidate, 0, len(hotels))
	for _, h := range hotels {
		if !validHotel(h) {
			result.ExcludedHotels++
			continue
		}
		h.TotalPrice.Currency = models.NormalizeCurrency(h.TotalPrice.Currency)
		validHotels = append(validHotels, h)
	}

	if len(validFlights) == 0 || len(validHotels) == 0 {
		return result
	}

	target := targetCurrency(opts, validFlights)

	var pricedFlights []priced[models.FlightCandidate]
	for _, f := range validFlights {
		amount, approx, ok := toTarget(f.Price, target, opts.Converter)
		if !ok {
			result.CurrencyMismatches++
			continue
		}
		f.Price = models.Money{Amount: amount, Currency: target}
		pricedFlights = append(pricedFlights, priced[models.FlightCandidate]{f, amount, approx})
	}

	var pricedHotels []priced[models.HotelCandidate]
	for _, h := range validHotels {
		amount, approx, ok := toTarget(h.TotalPrice, target, opts.Converter)
		if !ok {
			result.CurrencyMismatches++
			continue
		}
		if approx && h.Nights > 0 {
			h.NightlyPrice = models.Money{Amount: math.Round(amount/float64(h.Nights)*100) / 100, Currency: target}
		}
		h.TotalPrice = models.Money{Amount: amount, Currency: target}
		pricedHotels = append(pricedHotels, priced[models.HotelCandidate]{h, amount, approx})
	}

	// the cap keeps the cheapest in the target currency, so sort after converting
	sortByAmount(pricedFlights)
	sortByAmount(pricedHotels)

	if len(pricedFlights) > opts.CandidateCap {
		pricedFlights = pricedFlights[:opts.CandidateCap]
	}
	if len(pricedHotels) > opts.CandidateCap {
		pricedHotels = pricedHotels[:opts.CandidateCap]
	}

	var budget *float64
	if opts.Budget != nil {
		if amount, _, ok := toTarget(*opts.Budget, target, opts.Converter); ok {
			budget = &amount
		}
	}

	packages := make([]models.Package, 0, len(pricedFlights)*len(pricedHotels))
	totals := make([]float64, 0, cap(packages))
pairing:
	for _, f := range pricedFlights {
		for _, h := range pricedHotels {
			if len(packages) >= opts.MaxCombinations {
				break pairing
			}
			total := f.c.Price.Amount + h.c.TotalPrice.Amount
			packages = append(packages, models.Package{
				Flight:        f.c,
				Hotel:         h.c,
				Total:         models.Money{Amount: total, Currency: target},
				Synthetic:     f.c.Source.IsSynthetic() || h.c.Source.IsSynthetic(),
				FXApproximate: f.approx || h.approx,
				WithinBudget:  ranking.WithinBudget(total, budget),
			})
			totals = append(totals, total)
		}
	}
	result.Combinations = len(packages)

	reference := ranking.Reference(totals, budget)
	for i := range packages {
		p := &packages[i]
		p.Score = ranking.Score(ranking.Input{
			Total:     p.Total.Amount,
			Reference: reference,
			Budget:    budget,
			Stars:     p.Hotel.Stars,
			Stops:     p.Flight.Stops,
		})
	}

	sortPackages(packages)

	if len(packages) > opts.Limit {
		packages = packages[:opts.Limit]
	}
	cheapest := math.Inf(1)
	for _, t := range totals {
		cheapest = math.Min(cheapest, t)
	}
	for i := range packages {
		packages[i].ID = uuid.NewString()
		packages[i].Rank = i + 1
		packages[i].Reasons = reasons(packages[i], budget, cheapest)
	}

	result.Packages = packages
	return result
}

type priced[T any] struct {
	c      T
	amount float64
	approx bool
}

func sortByAmount[T any](items []priced[T]) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].amount < items[j].amount
	})
}

func withDefaults(opts Options) Options {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.CandidateCap <= 0 {
		opts.CandidateCap = DefaultCandidateCap
	}
	if opts.MaxCombinations <= 0 {
		opts.MaxCombinations = DefaultMaxCombinations
	}
	return opts
}

func validAmount(m models.Money) bool {
	return m.Amount > 0 && !math.IsInf(m.Amount, 0) && !math.IsNaN(m.Amount)
}

func validFlight(f models.FlightCandidate) bool {
	return validAmount(f.Price) && !f.DepartureTime.IsZero()
}

func validHotel(h models.HotelCandidate) bool {
	return validAmount(h.TotalPrice) && strings.TrimSpace(h.Name) != ""
}

// targetCurrency falls back to the currency of the cheapest flight by face
// value when neither a currency nor a budget is given.
func targetCurrency(opts Options, flights []models.FlightCandidate) string {
	if opts.Currency != "" {
		return models.NormalizeCurrency(opts.Currency)
	}
	if opts.Budget != nil {
		return models.NormalizeCurrency(opts.Budget.Currency)
	}
	cheapest := flights[0]
	for _, f := range flights[1:] {
		if f.Price.Amount < cheapest.Price.Amount {
			cheapest = f
		}
	}
	return cheapest.Price.Currency
}

// UsableFlight reports whether f would survive assembly into a package
// priced in target.
func UsableFlight(f models.FlightCandidate, target string, conv *currency.Converter) bool {
	if !validFlight(f) {
		return false
	}
	_, _, ok := toTarget(f.Price, models.NormalizeCurrency(target), conv)
	return ok
}

// UsableHotel reports whether h would survive assembly into a package priced
// in target.
func UsableHotel(h models.HotelCandidate, target string, conv *currency.Converter) bool {
	if !validHotel(h) {
		return false
	}
	_, _, ok := toTarget(h.TotalPrice, models.NormalizeCurrency(target), conv)
	return ok
}

// toTarget returns the amount in target currency and whether an FX rate was
// applied.
func toTarget(m models.Money, target string, conv *currency.Converter) (float64, bool, bool) {
	from := models.NormalizeCurrency(m.Currency)
	if from == target {
		return m.Amount, false, true
	}
	if conv == nil {
		return 0, false, false
	}
	amount, err := conv.Convert(m.Amount, from, target)
	if err != nil {
		return 0, false, false
	}
	return amount, true, true
}

func sortPackages(packages []models.Package) {
	sort.SliceStable(packages, func(i, j int) bool {
		a, b := packages[i], packages[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Total.Amount != b.Total.Amount {
			return a.Total.Amount < b.Total.Amount
		}
		if a.Flight.ID != b.Flight.ID {
			return a.Flight.ID < b.Flight.ID
		}
		return a.Hotel.ID < b.Hotel.ID
	})
}

func reasons(p models.Package, budget *float64, cheapest float64) []string {
	var out []string
	if p.Total.Amount == cheapest {
		out = append(out, "Cheapest overall among the options evaluated")
	}
	switch {
	case p.Flight.Stops == 0:
		out = append(out, "Direct flight")
	case p.Flight.Stops == 1:
		out = append(out, "1 stop")
	default:
		out = append(out, fmt.Sprintf("%d stops", p.Flight.Stops))
	}
	if p.Hotel.Stars != nil && *p.Hotel.Stars > 0 {
		out = append(out, fmt.Sprintf("%d-star hotel", *p.Hotel.Stars))
	}
	if budget != nil {
		if p.Total.Amount <= *budget {
			out = append(out, fmt.Sprintf("Within budget with %s to spare", currency.Format(*budget-p.Total.Amount, p.Total.Currency)))
		} else {
			out = append(out, fmt.Sprintf("Over budget by %s", currency.Format(p.Total.Amount-*budget, p.Total.Currency)))
		}
	}
	if p.FXApproximate {
		out = append(out, "Exchange rate is approximate")
	}
	return out
}
