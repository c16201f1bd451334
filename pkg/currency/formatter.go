package currency

import (
	"fmt"
	"math"
	"strings"
)

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"LKR": "Rs ",
	"INR": "₹",
	"IDR": "Rp ",
}

// zero-decimal currencies are rounded to whole units when formatted
var zeroDecimal = map[string]bool{
	"JPY": true,
	"IDR": true,
	"LKR": true,
}

// Format renders an amount like "$1,234.50" or "Rp 1.250.000". Unknown codes
// fall back to "1,234.50 XYZ".
func Format(amount float64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = "USD"
	}

	negative := amount < 0
	if negative {
		amount = -amount
	}

	sep, decimalSep := ",", "."
	if code == "IDR" {
		sep, decimalSep = ".", ","
	}

	var body string
	if zeroDecimal[code] {
		body = addThousandsSeparator(fmt.Sprintf("%.0f", math.Round(amount)), sep)
	} else {
		cents := math.Round(amount * 100)
		whole := math.Floor(cents / 100)
		frac := int(cents - whole*100)
		body = addThousandsSeparator(fmt.Sprintf("%.0f", whole), sep) + decimalSep + fmt.Sprintf("%02d", frac)
	}

	var result string
	if sym, ok := symbols[code]; ok {
		result = sym + body
	} else {
		result = body + " " + code
	}
	if negative {
		result = "-" + result
	}
	return result
}

func addThousandsSeparator(s string, sep string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	numSeps := (n - 1) / 3
	result := make([]byte, n+numSeps)

	j := len(result) - 1
	for i := n - 1; i >= 0; i-- {
		result[j] = s[i]
		j--

		pos := n - i
		if pos%3 == 0 && i > 0 {
			result[j] = sep[0]
			j--
		}
	}

	return string(result)
}
