package currency

import (
	"errors"
	"math"
	"strings"
)

var ErrNoRate = errors.New("no exchange rate for currency")

// Approximate USD value of one unit. Used only when FX normalization is
// explicitly enabled; packages built with it are flagged as approximate.
var usdPerUnit = map[string]float64{
	"USD": 1.0,
	"EUR": 1.08,
	"GBP": 1.27,
	"JPY": 0.0067,
	"CAD": 0.73,
	"AUD": 0.67,
	"LKR": 0.0033,
	"INR": 0.012,
	"IDR": 0.000062,
	"AED": 0.27,
	"SGD": 0.74,
	"THB": 0.028,
}

type Converter struct {
	rates map[string]float64
}

func NewStaticConverter() *Converter {
	return &Converter{rates: usdPerUnit}
}

func (c *Converter) Supports(code string) bool {
	_, ok := c.rates[strings.ToUpper(code)]
	return ok
}

// Convert returns amount expressed in the target currency, rounded to cents.
func (c *Converter) Convert(amount float64, from, to string) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount, nil
	}
	fromRate, ok := c.rates[from]
	if !ok {
		return 0, ErrNoRate
	}
	toRate, ok := c.rates[to]
	if !ok || toRate <= 0 {
		return 0, ErrNoRate
	}
	return math.Round(amount*fromRate/toRate*100) / 100, nil
}
