// Package nlp extracts trip fields from a free-text request such as
// "Plan a trip to Kandy for 5 days, budget $1000".
//
// Extraction is heuristic and forgiving: anything not recognised is left at
// its zero value for the caller to default.
package nlp

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dharmasatrya/tripplanner/internal/models"
)

// Parsed holds whatever could be read from the text. Zero values mean absent,
// except for Nights where NightsSet tells "for 0 nights" from no duration.
type Parsed struct {
	Destination string
	Origin      string
	StartDate   time.Time
	EndDate     time.Time
	Nights      int
	NightsSet   bool
	Adults      int
	Budget      *models.Money
	Preferences []string
}

var (
	adultsRe = regexp.MustCompile(`(?i)\b(\d+)\s*(?:adults?|people|persons?|pax|travell?ers|guests)\b`)
	nightsRe = regexp.MustCompile(`(?i)\b(\d+)\s*-?\s*nights?\b`)
	daysRe   = regexp.MustCompile(`(?i)\b(\d+)\s*-?\s*days?\b`)
	weeksRe  = regexp.MustCompile(`(?i)\b(\d+|a|one|two)\s+weeks?\b`)
	isoRe    = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)

	monthDayRe = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:\s*(?:-|to)\s*(\d{1,2})(?:st|nd|rd|th)?)?(?:,?\s+(\d{4}))?\b`)
	dayMonthRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?(?:,?\s+(\d{4}))?\b`)
	relativeRe = regexp.MustCompile(`(?i)\b(tomorrow|next week|next month)\b`)

	budgetKeywordRe = regexp.MustCompile(`(?i)\b(?:budget|under|below|max(?:imum)?|up to|less than|within)\b\s*(?:of|is|:)?\s*(\$|€|£|₹|usd|eur|gbp|lkr|inr|rs\.?)?\s*(\d[\d,]*(?:\.\d+)?)\s*(k)?\b\s*(usd|eur|gbp|lkr|inr|dollars?|euros?|rupees?)?`)
	moneyRe         = regexp.MustCompile(`(?i)(\$|€|£|₹)\s*(\d[\d,]*(?:\.\d+)?)\s*(k)?\b|(\d[\d,]*(?:\.\d+)?)\s*(k)?\s*(usd|eur|gbp|lkr|inr|dollars|euros)\b`)

	fromToRe = regexp.MustCompile(`(?i)\bfrom\s+([a-z][a-z'.-]*(?:\s+[a-z][a-z'.-]*){0,4})\s+to\s+([a-z][a-z'.-]*(?:\s+[a-z][a-z'.-]*){0,4})`)
	toRe     = regexp.MustCompile(`(?i)\b(?:to|visit|visiting|in)\s+([a-z][a-z'.-]*(?:\s+[a-z][a-z'.-]*){0,4})`)
	fromRe   = regexp.MustCompile(`(?i)\bfrom\s+([a-z][a-z'.-]*(?:\s+[a-z][a-z'.-]*){0,3})`)
	properRe = regexp.MustCompile(`\b[A-Z][a-z'.-]+(?:\s+[A-Z][a-z'.-]+)*`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "sept": time.September, "oct": time.October,
	"nov": time.November, "dec": time.December,
}

// words that end a place phrase
var stopWords = map[string]bool{
	"for": true, "on": true, "in": true, "from": true, "with": true, "under": true,
	"next": true, "budget": true, "starting": true, "during": true, "this": true,
	"around": true, "and": true, "at": true, "by": true, "between": true, "below": true,
	"within": true, "max": true, "leaving": true, "departing": true, "returning": true,
	"tomorrow": true, "please": true, "to": true, "over": true, "until": true,
	"jan": true, "january": true, "feb": true, "february": true, "mar": true, "march": true,
	"apr": true, "april": true, "may": true, "jun": true, "june": true, "jul": true,
	"july": true, "aug": true, "august": true, "sep": true, "sept": true, "september": true,
	"oct": true, "october": true, "nov": true, "november": true, "dec": true, "december": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true, "friday": true,
	"saturday": true, "sunday": true, "summer": true, "winter": true, "spring": true,
	"autumn": true, "weekend": true, "days": true, "nights": true, "week": true,
}

// leading words that precede a place name but are not part of it
var leadWords = map[string]bool{
	"visit": true, "go": true, "travel": true, "fly": true, "head": true, "see": true,
	"explore": true, "the": true, "a": true, "trip": true, "plan": true, "book": true,
	"beautiful": true, "sunny": true, "somewhere": true,
}

// capitalised words that are never places
var notPlaces = map[string]bool{
	"I": true, "Plan": true, "Book": true, "Go": true, "Visit": true, "Trip": true,
	"Travel": true, "Please": true, "Find": true, "Take": true, "We": true, "My": true,
	"Help": true, "Show": true, "Get": true, "Want": true, "Fly": true, "Need": true,
	"Budget": true, "Hotels": true, "Flights": true, "Hotel": true, "Flight": true,
	"A": true, "The": true, "Me": true, "Us": true, "Looking": true, "Can": true,
}

var preferenceKeywords = map[string][]string{
	"beach":     {"beach", "beaches", "seaside", "coast"},
	"luxury":    {"luxury", "luxurious", "5-star", "five star", "premium"},
	"budget":    {"cheap", "affordable", "budget-friendly", "low-cost", "backpacking"},
	"family":    {"family", "kids", "children"},
	"direct":    {"direct flight", "nonstop", "non-stop", "direct"},
	"romantic":  {"romantic", "honeymoon", "couple"},
	"adventure": {"adventure", "hiking", "trekking", "safari", "surfing"},
	"culture":   {"culture", "cultural", "temple", "temples", "museum", "museums", "heritage"},
	"nature":    {"nature", "wildlife", "mountains", "tea country", "national park"},
	"food":      {"food", "foodie", "cuisine"},
}

var preferenceOrder = []string{"beach", "luxury", "budget", "family", "direct", "romantic", "adventure", "culture", "nature", "food"}

var titleCaser = cases.Title(language.English)

// Parse reads trip fields from text. today anchors relative dates and years
// omitted from month-day dates.
func Parse(text string, today time.Time) Parsed {
	text = strings.TrimSpace(text)
	today = truncateDay(today)

	var p Parsed
	if text == "" {
		return p
	}

	if m := adultsRe.FindStringSubmatch(text); m != nil {
		p.Adults, _ = strconv.Atoi(m[1])
	}

	p.Nights, p.NightsSet = parseNights(text)
	p.StartDate, p.EndDate = parseDates(text, today)
	if !p.NightsSet && !p.StartDate.IsZero() && p.EndDate.After(p.StartDate) {
		p.Nights = int(p.EndDate.Sub(p.StartDate).Hours() / 24)
		p.NightsSet = true
	}
	if !p.StartDate.IsZero() && p.EndDate.IsZero() && p.Nights > 0 && p.Nights <= models.MaxNights {
		p.EndDate = p.StartDate.AddDate(0, 0, p.Nights)
	}

	p.Budget = parseBudget(text)
	p.Origin, p.Destination = parsePlaces(text)
	p.Preferences = parsePreferences(text)
	return p
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// parseNights reports the stated duration and whether one was stated at all.
// Out-of-range numbers come back as a huge count for validation to reject.
func parseNights(text string) (int, bool) {
	if m := nightsRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	// a stay of N days books N nights
	if m := daysRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	if m := weeksRe.FindStringSubmatch(text); m != nil {
		switch strings.ToLower(m[1]) {
		case "a", "one":
			return 7, true
		case "two":
			return 14, true
		default:
			n, _ := strconv.Atoi(m[1])
			if n > math.MaxInt/7 {
				return math.MaxInt, true
			}
			return n * 7, true
		}
	}
	return 0, false
}

func parseDates(text string, today time.Time) (time.Time, time.Time) {
	if iso := isoRe.FindAllString(text, 2); len(iso) > 0 {
		start, err := time.Parse(models.DateLayout, iso[0])
		if err == nil {
			var end time.Time
			if len(iso) == 2 {
				if e, err := time.Parse(models.DateLayout, iso[1]); err == nil && e.After(start) {
					end = e
				}
			}
			return start, end
		}
	}

	if m := monthDayRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[2])
		start, ok := calendarDate(months[strings.ToLower(m[1])], day, m[4], today)
		if ok {
			var end time.Time
			if m[3] != "" {
				endDay, _ := strconv.Atoi(m[3])
				if endDay > day {
					end = start.AddDate(0, 0, endDay-day)
				}
			}
			return start, end
		}
	}

	if m := dayMonthRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		if start, ok := calendarDate(months[strings.ToLower(m[2])], day, m[3], today); ok {
			return start, time.Time{}
		}
	}

	if m := relativeRe.FindStringSubmatch(text); m != nil {
		switch strings.ToLower(m[1]) {
		case "tomorrow":
			return today.AddDate(0, 0, 1), time.Time{}
		case "next week":
			return today.AddDate(0, 0, 7), time.Time{}
		case "next month":
			return today.AddDate(0, 1, 0), time.Time{}
		}
	}

	return time.Time{}, time.Time{}
}

// calendarDate builds a date, rolling to next year when no year was given and
// the date has already passed.
func calendarDate(month time.Month, day int, year string, today time.Time) (time.Time, bool) {
	if month == 0 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	y := today.Year()
	if year != "" {
		y, _ = strconv.Atoi(year)
	}
	d := time.Date(y, month, day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day {
		return time.Time{}, false
	}
	if year == "" && d.Before(today) {
		d = d.AddDate(1, 0, 0)
	}
	return d, true
}

func parseBudget(text string) *models.Money {
	for _, idx := range budgetKeywordRe.FindAllStringSubmatchIndex(text, -1) {
		if countsSomethingElse(text[idx[1]:]) {
			continue
		}
		m := submatches(text, idx)
		if money, ok := buildMoney(m[2], m[3] != "", m[1]+m[4]); ok {
			return money
		}
	}
	for _, m := range moneyRe.FindAllStringSubmatch(text, -1) {
		if m[2] != "" {
			if money, ok := buildMoney(m[2], m[3] != "", m[1]); ok {
				return money
			}
		} else if money, ok := buildMoney(m[4], m[5] != "", m[6]); ok {
			return money
		}
	}
	return nil
}

var quantityUnitRe = regexp.MustCompile(`(?i)^\s*-?\s*(?:days?|nights?|weeks?|adults?|people|persons?|pax|guests|stars?|hours?)\b`)

// countsSomethingElse reports whether a number is followed by a non-money unit,
// as in "under 5 days".
func countsSomethingElse(rest string) bool {
	return quantityUnitRe.MatchString(rest)
}

func submatches(text string, idx []int) []string {
	out := make([]string, len(idx)/2)
	for i := range out {
		if idx[2*i] >= 0 {
			out[i] = text[idx[2*i]:idx[2*i+1]]
		}
	}
	return out
}

func buildMoney(amount string, thousands bool, unit string) (*models.Money, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(amount, ",", ""), 64)
	if err != nil || v <= 0 {
		return nil, false
	}
	if thousands {
		v *= 1000
	}
	return &models.Money{Amount: v, Currency: currencyFromUnit(unit)}, true
}

func currencyFromUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch {
	case strings.Contains(u, "€"), strings.Contains(u, "eur"):
		return "EUR"
	case strings.Contains(u, "£"), strings.Contains(u, "gbp"):
		return "GBP"
	case strings.Contains(u, "₹"), strings.Contains(u, "inr"):
		return "INR"
	case strings.Contains(u, "lkr"), strings.HasPrefix(u, "rs"), strings.Contains(u, "rupee"):
		return "LKR"
	default:
		return "USD"
	}
}

func parsePlaces(text string) (origin, destination string) {
	if m := fromToRe.FindStringSubmatch(text); m != nil {
		origin = cleanPlace(m[1])
		destination = cleanPlace(m[2])
		if destination != "" {
			return origin, destination
		}
	}

	for _, m := range toRe.FindAllStringSubmatch(text, -1) {
		if place := cleanPlace(m[1]); place != "" {
			destination = place
			break
		}
	}

	if origin == "" {
		if m := fromRe.FindStringSubmatch(text); m != nil {
			origin = cleanPlace(m[1])
		}
	}

	if destination == "" {
		for _, candidate := range properRe.FindAllString(text, -1) {
			if place := cleanProper(candidate); place != "" && !strings.EqualFold(place, origin) {
				destination = place
				break
			}
		}
	}
	return origin, destination
}

func cleanPlace(phrase string) string {
	words := strings.Fields(phrase)
	for len(words) > 0 && leadWords[strings.ToLower(words[0])] {
		words = words[1:]
	}
	var kept []string
	for _, w := range words {
		w = strings.Trim(w, ".,'-")
		if w == "" || stopWords[strings.ToLower(w)] {
			break
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return ""
	}
	return titleCaser.String(strings.Join(kept, " "))
}

func cleanProper(phrase string) string {
	words := strings.Fields(phrase)
	for len(words) > 0 && notPlaces[words[0]] {
		words = words[1:]
	}
	if len(words) == 0 {
		return ""
	}
	return cleanPlace(strings.Join(words, " "))
}

func parsePreferences(text string) []string {
	lower := strings.ToLower(text)
	var prefs []string
	for _, tag := range preferenceOrder {
		for _, kw := range preferenceKeywords[tag] {
			if containsWord(lower, kw) {
				prefs = append(prefs, tag)
				break
			}
		}
	}
	return prefs
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		if boundary(text, start-1) && boundary(text, end) {
			return true
		}
		idx = start + 1
	}
}

func boundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	c := text[i]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9')
}
