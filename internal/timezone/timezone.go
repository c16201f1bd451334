package timezone

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

// IANA zones for the airports the gazetteer knows about. Provider timestamps
// without an offset are local to the airport.
var airportZones = map[string]string{
	"CMB": "Asia/Colombo",
	"KDZ": "Asia/Colombo",
	"JAF": "Asia/Colombo",
	"DEL": "Asia/Kolkata",
	"BOM": "Asia/Kolkata",
	"MAA": "Asia/Kolkata",
	"DXB": "Asia/Dubai",
	"BKK": "Asia/Bangkok",
	"SIN": "Asia/Singapore",
	"KUL": "Asia/Kuala_Lumpur",
	"CGK": "Asia/Jakarta",
	"DPS": "Asia/Makassar",
	"SGN": "Asia/Ho_Chi_Minh",
	"TYO": "Asia/Tokyo",
	"NRT": "Asia/Tokyo",
	"HND": "Asia/Tokyo",
	"LON": "Europe/London",
	"LHR": "Europe/London",
	"PAR": "Europe/Paris",
	"CDG": "Europe/Paris",
	"ROM": "Europe/Rome",
	"FCO": "Europe/Rome",
	"BCN": "Europe/Madrid",
	"BER": "Europe/Berlin",
	"AMS": "Europe/Amsterdam",
	"IST": "Europe/Istanbul",
	"NYC": "America/New_York",
	"JFK": "America/New_York",
	"YTO": "America/Toronto",
	"YYZ": "America/Toronto",
	"MEX": "America/Mexico_City",
	"SAO": "America/Sao_Paulo",
	"GRU": "America/Sao_Paulo",
	"SYD": "Australia/Sydney",
	"AKL": "Pacific/Auckland",
}

func GetZoneByAirport(code string) string {
	if z, ok := airportZones[strings.ToUpper(code)]; ok {
		return z
	}
	return "UTC"
}

var locations sync.Map

func GetLocationByAirport(code string) *time.Location {
	zone := GetZoneByAirport(code)
	if loc, ok := locations.Load(zone); ok {
		return loc.(*time.Location)
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.UTC
	}
	actual, _ := locations.LoadOrStore(zone, loc)
	return actual.(*time.Location)
}

// ParseTimeWithOffset parses provider timestamps. Values without an offset are
// interpreted in the airport's zone when airportCode is known, UTC otherwise.
func ParseTimeWithOffset(timeStr string, airportCode string) (time.Time, error) {
	timeStr = strings.TrimSpace(timeStr)
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05-0700", // Without colon
		"2006-01-02T15:04:05.000Z07:00",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, timeStr); err == nil {
			return t, nil
		}
	}

	loc := time.UTC
	if airportCode != "" {
		loc = GetLocationByAirport(airportCode)
	}
	localFormats := []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, format := range localFormats {
		if t, err := time.ParseInLocation(format, timeStr, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &time.ParseError{
		Value:   timeStr,
		Message: "unable to parse time string",
	}
}

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration handles the PnDTnHnMnS subset used by flight APIs.
func ParseISODuration(s string) (time.Duration, error) {
	m := isoDurationRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", s)
	}
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, u := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, err
		}
		d += time.Duration(n) * u
	}
	return d, nil
}

// FormatDuration renders "1d 4h 30m" style text; zero renders as "0m".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0m"
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	mins := int(d / time.Minute)

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	if len(parts) == 0 {
		return "0m"
	}
	return strings.Join(parts, " ")
}
