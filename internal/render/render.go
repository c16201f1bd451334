// Package render prints plans for people and for machines.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/dharmasatrya/tripplanner/internal/models"
	"github.com/dharmasatrya/tripplanner/pkg/currency"
)

type Options struct {
	Color       bool
	Diagnostics bool
}

type palette struct {
	live      *color.Color
	synthetic *color.Color
	heading   *color.Color
	warning   *color.Color
	dim       *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		live:      color.New(color.FgGreen, color.Bold),
		synthetic: color.New(color.FgBlack, color.BgYellow, color.Bold),
		heading:   color.New(color.Bold),
		warning:   color.New(color.FgYellow),
		dim:       color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.live, p.synthetic, p.heading, p.warning, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Banner states whether the plan is built from real offers.
func Banner(status models.DataStatus) string {
	switch status {
	case models.StatusLive:
		return "LIVE DATA: prices come from provider offers"
	case models.StatusPartialSynthetic:
		return "PARTIALLY SYNTHETIC: some offers below are placeholders, not real prices"
	default:
		return "SYNTHETIC DATA: every offer below is a placeholder, not a real price"
	}
}

// Text writes a human-readable plan.
func Text(w io.Writer, plan *models.Plan, opts Options) error {
	pal := newPalette(opts.Color)
	b := &strings.Builder{}

	if plan.Status == models.StatusLive {
		pal.live.Fprintln(b, Banner(plan.Status))
	} else {
		pal.synthetic.Fprintln(b, Banner(plan.Status))
	}

	pal.heading.Fprintf(b, "Trip to %s\n", placeName(plan.Location))
	fmt.Fprintf(b, "  %s -> %s, %s to %s, %s, %s",
		plan.Trip.Origin,
		orDash(plan.Location.AirportCode),
		plan.Trip.StartDate,
		plan.Trip.EndDate,
		plural(plan.Trip.Nights, "night"),
		plural(plan.Trip.Adults, "adult"),
	)
	if plan.Trip.Budget != nil {
		fmt.Fprintf(b, ", budget %s", currency.Format(plan.Trip.Budget.Amount, plan.Trip.Budget.Currency))
	}
	b.WriteString("\n")
	if len(plan.Trip.Preferences) > 0 {
		fmt.Fprintf(b, "  preferences: %s\n", strings.Join(plan.Trip.Preferences, ", "))
	}

	if len(plan.Warnings) > 0 {
		b.WriteString("\n")
		for _, warning := range plan.Warnings {
			pal.warning.Fprintf(b, "! %s\n", warning)
		}
	}

	b.WriteString("\n")
	if len(plan.Packages) == 0 {
		b.WriteString("No packages found.\n")
	}
	for _, pkg := range plan.Packages {
		writePackage(b, pal, pkg)
	}

	if opts.Diagnostics {
		writeDiagnostics(b, pal, plan.Diagnostics)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writePackage(b *strings.Builder, pal palette, pkg models.Package) {
	header := fmt.Sprintf("#%d  %s", pkg.Rank, currency.Format(pkg.Total.Amount, pkg.Total.Currency))
	if pkg.WithinBudget != nil {
		if *pkg.WithinBudget {
			header += "  within budget"
		} else {
			header += "  over budget"
		}
	}
	if pkg.Synthetic {
		header += "  [synthetic]"
	}
	pal.heading.Fprintln(b, header)

	f := pkg.Flight
	fmt.Fprintf(b, "    Flight  %s, %s -> %s, departs %s, %s, %s %s\n",
		carrierName(f.Carrier),
		f.Origin,
		f.Destination,
		f.DepartureTime.Format("2006-01-02 15:04"),
		stops(f.Stops),
		currency.Format(f.Price.Amount, f.Price.Currency),
		pal.dim.Sprintf("[%s]", f.Source),
	)

	h := pkg.Hotel
	name := h.Name
	if h.City != "" {
		name += ", " + h.City
	}
	rating := ""
	if h.Stars != nil && *h.Stars > 0 {
		rating = fmt.Sprintf(", %d-star", *h.Stars)
	}
	fmt.Fprintf(b, "    Hotel   %s%s, %s at %s/night, %s %s\n",
		name,
		rating,
		plural(h.Nights, "night"),
		currency.Format(h.NightlyPrice.Amount, h.NightlyPrice.Currency),
		currency.Format(h.TotalPrice.Amount, h.TotalPrice.Currency),
		pal.dim.Sprintf("[%s]", h.Source),
	)
	if h.DeepLink != "" {
		fmt.Fprintf(b, "            %s\n", h.DeepLink)
	}
	if len(pkg.Reasons) > 0 {
		fmt.Fprintf(b, "    Why: %s\n", strings.Join(pkg.Reasons, "; "))
	}
	b.WriteString("\n")
}

func writeDiagnostics(b *strings.Builder, pal palette, d models.Diagnostics) {
	pal.dim.Fprintln(b, "Diagnostics")
	for _, leg := range []struct {
		name string
		diag models.LegDiagnostics
	}{{"flights", d.Flights}, {"hotels", d.Hotels}} {
		line := fmt.Sprintf("  %s: %s, %d candidates, %d/%d providers ok",
			leg.name, leg.diag.Source, leg.diag.Candidates, leg.diag.ProvidersSucceeded, leg.diag.ProvidersQueried)
		if len(leg.diag.FailedProviders) > 0 {
			line += ", failed: " + strings.Join(leg.diag.FailedProviders, ", ")
		}
		if len(leg.diag.SkippedProviders) > 0 {
			line += ", not configured: " + strings.Join(leg.diag.SkippedProviders, ", ")
		}
		if leg.diag.CacheHit {
			line += ", cached"
		}
		pal.dim.Fprintln(b, line)
	}
	pal.dim.Fprintf(b, "  excluded: %d flights, %d hotels, %d currency mismatches; %d combinations scored in %dms\n",
		d.ExcludedFlights, d.ExcludedHotels, d.CurrencyMismatches, d.CombinationsScored, d.ElapsedMs)
}

// JSON writes the plan as indented JSON.
func JSON(w io.Writer, plan *models.Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

func placeName(loc models.GeoLocation) string {
	if loc.City != "" && loc.Country != "" {
		return loc.City + ", " + loc.Country
	}
	return loc.Name()
}

func carrierName(c models.Carrier) string {
	switch {
	case c.Name != "" && c.Code != "":
		return c.Code + " " + c.Name
	case c.Name != "":
		return c.Name
	default:
		return orDash(c.Code)
	}
}

func stops(n int) string {
	switch n {
	case 0:
		return "direct"
	case 1:
		return "1 stop"
	default:
		return fmt.Sprintf("%d stops", n)
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
