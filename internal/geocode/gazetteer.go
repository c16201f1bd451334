package geocode

import (
	"context"
	"strings"

	"github.com/dharmasatrya/tripplanner/internal/models"
)

const SourceGazetteer = "gazetteer"

type place struct {
	city    string
	country string
	lat     float64
	lng     float64
	airport string
}

// Cities with a nearby commercial airport. Kandy and Ella have no scheduled
// international service, so they fly into Colombo.
var cities = map[string]place{
	"colombo":       {"Colombo", "Sri Lanka", 6.9271, 79.8612, "CMB"},
	"kandy":         {"Kandy", "Sri Lanka", 7.2906, 80.6337, "CMB"},
	"galle":         {"Galle", "Sri Lanka", 6.0535, 80.2210, "CMB"},
	"ella":          {"Ella", "Sri Lanka", 6.8667, 81.0466, "CMB"},
	"jaffna":        {"Jaffna", "Sri Lanka", 9.6615, 80.0255, "JAF"},
	"new delhi":     {"New Delhi", "India", 28.6139, 77.2090, "DEL"},
	"delhi":         {"New Delhi", "India", 28.6139, 77.2090, "DEL"},
	"mumbai":        {"Mumbai", "India", 19.0760, 72.8777, "BOM"},
	"chennai":       {"Chennai", "India", 13.0827, 80.2707, "MAA"},
	"goa":           {"Goa", "India", 15.2993, 74.1240, "GOI"},
	"dubai":         {"Dubai", "United Arab Emirates", 25.2048, 55.2708, "DXB"},
	"bangkok":       {"Bangkok", "Thailand", 13.7563, 100.5018, "BKK"},
	"phuket":        {"Phuket", "Thailand", 7.8804, 98.3923, "HKT"},
	"singapore":     {"Singapore", "Singapore", 1.3521, 103.8198, "SIN"},
	"kuala lumpur":  {"Kuala Lumpur", "Malaysia", 3.1390, 101.6869, "KUL"},
	"jakarta":       {"Jakarta", "Indonesia", -6.2088, 106.8456, "CGK"},
	"bali":          {"Denpasar", "Indonesia", -8.6705, 115.2126, "DPS"},
	"denpasar":      {"Denpasar", "Indonesia", -8.6705, 115.2126, "DPS"},
	"ho chi minh":   {"Ho Chi Minh City", "Vietnam", 10.8231, 106.6297, "SGN"},
	"tokyo":         {"Tokyo", "Japan", 35.6762, 139.6503, "TYO"},
	"kyoto":         {"Kyoto", "Japan", 35.0116, 135.7681, "KIX"},
	"london":        {"London", "United Kingdom", 51.5074, -0.1278, "LON"},
	"paris":         {"Paris", "France", 48.8566, 2.3522, "PAR"},
	"rome":          {"Rome", "Italy", 41.9028, 12.4964, "ROM"},
	"barcelona":     {"Barcelona", "Spain", 41.3874, 2.1686, "BCN"},
	"berlin":        {"Berlin", "Germany", 52.5200, 13.4050, "BER"},
	"amsterdam":     {"Amsterdam", "Netherlands", 52.3676, 4.9041, "AMS"},
	"istanbul":      {"Istanbul", "Turkey", 41.0082, 28.9784, "IST"},
	"new york":      {"New York", "United States", 40.7128, -74.0060, "NYC"},
	"toronto":       {"Toronto", "Canada", 43.6532, -79.3832, "YTO"},
	"mexico city":   {"Mexico City", "Mexico", 19.4326, -99.1332, "MEX"},
	"sao paulo":     {"Sao Paulo", "Brazil", -23.5505, -46.6333, "SAO"},
	"sydney":        {"Sydney", "Australia", -33.8688, 151.2093, "SYD"},
	"auckland":      {"Auckland", "New Zealand", -36.8485, 174.7633, "AKL"},
	"male":          {"Male", "Maldives", 4.1755, 73.5093, "MLE"},
	"kathmandu":     {"Kathmandu", "Nepal", 27.7172, 85.3240, "KTM"},
	"cairo":         {"Cairo", "Egypt", 30.0444, 31.2357, "CAI"},
	"cape town":     {"Cape Town", "South Africa", -33.9249, 18.4241, "CPT"},
}

// Country name to the hub city used when only a country is known.
var countryHubs = map[string]string{
	"sri lanka":            "colombo",
	"india":                "new delhi",
	"united arab emirates": "dubai",
	"uae":                  "dubai",
	"thailand":             "bangkok",
	"singapore":            "singapore",
	"malaysia":             "kuala lumpur",
	"indonesia":            "jakarta",
	"vietnam":              "ho chi minh",
	"japan":                "tokyo",
	"united kingdom":       "london",
	"uk":                   "london",
	"england":              "london",
	"france":               "paris",
	"italy":                "rome",
	"spain":                "barcelona",
	"germany":              "berlin",
	"netherlands":          "amsterdam",
	"turkey":               "istanbul",
	"united states":        "new york",
	"usa":                  "new york",
	"us":                   "new york",
	"america":              "new york",
	"canada":               "toronto",
	"mexico":               "mexico city",
	"brazil":               "sao paulo",
	"australia":            "sydney",
	"new zealand":          "auckland",
	"maldives":             "male",
	"nepal":                "kathmandu",
	"egypt":                "cairo",
	"south africa":         "cape town",
}

// Gazetteer resolves well-known places from a static table. It needs no
// credentials and does no I/O.
type Gazetteer struct {
	byAirport map[string]place
}

func NewGazetteer() *Gazetteer {
	g := &Gazetteer{byAirport: make(map[string]place, len(cities))}
	for _, p := range cities {
		if _, ok := g.byAirport[p.airport]; !ok || strings.EqualFold(countryHubs[strings.ToLower(p.country)], strings.ToLower(p.city)) {
			g.byAirport[p.airport] = p
		}
	}
	return g
}

func (g *Gazetteer) Name() string {
	return SourceGazetteer
}

// Resolve accepts a city, a country or a three-letter airport code.
func (g *Gazetteer) Resolve(_ context.Context, text string) (models.GeoLocation, bool) {
	key := normalize(text)
	if key == "" {
		return models.GeoLocation{}, false
	}

	for _, k := range []string{key, strings.TrimSuffix(key, " city")} {
		if p, ok := cities[k]; ok {
			return p.location(true), true
		}
		if hub, ok := countryHubs[k]; ok {
			// a bare country keeps City empty but borrows the hub's
			// coordinates and airport
			return cities[hub].location(false), true
		}
	}
	if len(key) == 3 {
		if p, ok := g.byAirport[strings.ToUpper(key)]; ok {
			return p.location(true), true
		}
	}
	return models.GeoLocation{}, false
}

// AirportFor returns the airport code for a city, falling back to the country's
// hub. Empty when neither is known.
func (g *Gazetteer) AirportFor(city, country string) string {
	if p, ok := cities[normalize(city)]; ok {
		return p.airport
	}
	if hub, ok := countryHubs[normalize(country)]; ok {
		return cities[hub].airport
	}
	return ""
}

func (p place) location(withCity bool) models.GeoLocation {
	loc := models.GeoLocation{
		Country:     p.country,
		Latitude:    p.lat,
		Longitude:   p.lng,
		AirportCode: p.airport,
		Source:      SourceGazetteer,
	}
	if withCity {
		loc.City = p.city
	}
	return loc
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "the ")
	return strings.Join(strings.Fields(s), " ")
}
