package ranking

import (
	"math"
)

const (
	PriceWeight      = 0.6
	RatingWeight     = 0.25
	StopsWeight      = 0.15
	OverBudgetWeight = 1.5

	stopPoints    = 15.0
	neutralRating = 50.0
)

// Input is everything the score depends on. Budget and Stars are optional.
type Input struct {
	Total     float64
	Reference float64
	Budget    *float64
	Stars     *int
	Stops     int
}

// Higher score = better package. For fixed reference, budget, stars and stops
// the score never increases as Total grows.
func Score(in Input) float64 {
	priceScore := 0.0
	if in.Reference > 0 {
		priceScore = (1 - in.Total/in.Reference) * 100
	}

	penalty := 0.0
	if in.Budget != nil && *in.Budget > 0 {
		over := math.Max(0, in.Total-*in.Budget)
		penalty = OverBudgetWeight * (over / *in.Budget) * 100
	}

	ratingScore := neutralRating
	if in.Stars != nil {
		stars := math.Min(math.Max(float64(*in.Stars), 0), 5)
		ratingScore = stars / 5 * 100
	}

	stopsScore := float64(in.Stops) * stopPoints
	score := (priceScore * PriceWeight) + (ratingScore * RatingWeight) - (stopsScore * StopsWeight) - penalty

	return math.Round(score*100) / 100
}

// Reference picks the price that normalises priceScore: the budget when given,
// otherwise the most expensive total under evaluation.
func Reference(totals []float64, budget *float64) float64 {
	if budget != nil && *budget > 0 {
		return *budget
	}
	maxTotal := 0.0
	for _, t := range totals {
		if t > maxTotal {
			maxTotal = t
		}
	}
	return maxTotal
}

// WithinBudget is nil when there is no budget to compare against.
func WithinBudget(total float64, budget *float64) *bool {
	if budget == nil {
		return nil
	}
	ok := total <= *budget
	return &ok
}
