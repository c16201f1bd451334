package filter

import (
	"sort"
	"strings"
	"time"

	"github.com/dharmasatrya/tripplanner/internal/models"
)

const (
	SortBestValue = "best_value"
	SortPrice     = "price"
	SortRating    = "rating"
	SortStops     = "stops"
)

// Validate checks filters and sort options before any search is made.
func Validate(filters *models.PackageFilters, sortBy, sortOrder string) error {
	switch strings.ToLower(sortBy) {
	case "", SortBestValue, SortPrice, SortRating, SortStops:
	default:
		return models.ErrInvalidSortBy
	}
	switch strings.ToLower(sortOrder) {
	case "", "asc", "desc":
	default:
		return models.ErrInvalidSortOrder
	}
	if filters == nil {
		return nil
	}
	for _, t := range []*string{filters.DepartureTimeMin, filters.DepartureTimeMax} {
		if t == nil {
			continue
		}
		if _, err := parseTimeOfDay(*t); err != nil {
			return models.ErrInvalidTimeOfDay
		}
	}
	return nil
}

// Apply filters packages, sorts them and renumbers ranks from 1. Sorting is
// stable, so packages that compare equal keep their score order.
func Apply(packages []models.Package, filters *models.PackageFilters, sortBy, sortOrder string) []models.Package {
	filtered := applyFilters(packages, filters)
	sorted := applySort(filtered, sortBy, sortOrder)
	for i := range sorted {
		sorted[i].Rank = i + 1
	}
	return sorted
}

func applyFilters(packages []models.Package, filters *models.PackageFilters) []models.Package {
	result := make([]models.Package, 0, len(packages))
	for _, p := range packages {
		if filters == nil || matchesFilters(p, filters) {
			result = append(result, p)
		}
	}
	return result
}

func matchesFilters(p models.Package, filters *models.PackageFilters) bool {
	if filters.PriceMin != nil && p.Total.Amount < *filters.PriceMin {
		return false
	}
	if filters.PriceMax != nil && p.Total.Amount > *filters.PriceMax {
		return false
	}

	if filters.MaxStops != nil && p.Flight.Stops > *filters.MaxStops {
		return false
	}

	// unknown ratings never satisfy a minimum
	if filters.MinStars != nil && (p.Hotel.Stars == nil || *p.Hotel.Stars < *filters.MinStars) {
		return false
	}

	if filters.WithinBudgetOnly && p.WithinBudget != nil && !*p.WithinBudget {
		return false
	}

	if len(filters.Carriers) > 0 {
		found := false
		for _, carrier := range filters.Carriers {
			if strings.EqualFold(p.Flight.Carrier.Code, carrier) || strings.EqualFold(p.Flight.Carrier.Name, carrier) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	dep := p.Flight.DepartureTime.Hour()*60 + p.Flight.DepartureTime.Minute()
	if filters.DepartureTimeMin != nil {
		minTime, err := parseTimeOfDay(*filters.DepartureTimeMin)
		if err == nil && dep < minTime {
			return false
		}
	}
	if filters.DepartureTimeMax != nil {
		maxTime, err := parseTimeOfDay(*filters.DepartureTimeMax)
		if err == nil && dep > maxTime {
			return false
		}
	}

	return true
}

func parseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func stars(p models.Package) int {
	if p.Hotel.Stars == nil {
		return 0
	}
	return *p.Hotel.Stars
}

// applySort orders by sortBy. An empty sortOrder means the natural direction
// for the key: best value and rating high first, price and stops low first.
func applySort(packages []models.Package, sortBy, sortOrder string) []models.Package {
	if len(packages) == 0 {
		return packages
	}

	key := strings.ToLower(sortBy)
	if key == "" {
		key = SortBestValue
	}
	descending := key == SortBestValue || key == SortRating
	switch strings.ToLower(sortOrder) {
	case "asc":
		descending = false
	case "desc":
		descending = true
	}

	var less func(a, b models.Package) bool
	switch key {
	case SortPrice:
		less = func(a, b models.Package) bool { return a.Total.Amount < b.Total.Amount }
	case SortRating:
		less = func(a, b models.Package) bool { return stars(a) < stars(b) }
	case SortStops:
		less = func(a, b models.Package) bool { return a.Flight.Stops < b.Flight.Stops }
	default:
		less = func(a, b models.Package) bool { return a.Score < b.Score }
	}

	sort.SliceStable(packages, func(i, j int) bool {
		if descending {
			return less(packages[j], packages[i])
		}
		return less(packages[i], packages[j])
	})
	return packages
}
