package main

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dharmasatrya/tripplanner/internal/models"
	"github.com/dharmasatrya/tripplanner/internal/planner"
	"github.com/dharmasatrya/tripplanner/internal/render"
)

var planFlags struct {
	destination string
	origin      string
	start       string
	nights      int
	budget      float64
	currency    string
	adults      int
	limit       int
	sortBy      string
	sortOrder   string
	maxPrice    float64
	minStars    int
	maxStops    int
	carriers    []string
	asJSON      bool
	diagnostics bool
	noColor     bool
}

var planCmd = &cobra.Command{
	Use:   "plan [request text]",
	Short: "Plan a trip from a plain-English request",
	Example: `  tripplanner plan "Plan a trip to Kandy for 5 days, budget $1000"
  tripplanner plan --destination Paris --start 2025-12-01 --nights 4 --budget 2500
  tripplanner plan "beach holiday in Bali for 2 adults" --max-stops 1 --sort-by price`,
	RunE: runPlan,
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&planFlags.destination, "destination", "", "destination city or country (overrides the text)")
	f.StringVar(&planFlags.origin, "origin", "", "origin city or airport code")
	f.StringVar(&planFlags.start, "start", "", "start date, YYYY-MM-DD")
	f.IntVar(&planFlags.nights, "nights", 0, "number of nights")
	f.Float64Var(&planFlags.budget, "budget", 0, "total budget for flight and hotel")
	f.StringVar(&planFlags.currency, "currency", "", "budget currency code")
	f.IntVar(&planFlags.adults, "adults", 0, "number of adult travellers")
	f.IntVar(&planFlags.limit, "limit", 0, "maximum packages to show")
	f.StringVar(&planFlags.sortBy, "sort-by", "", "best_value, price, rating or stops")
	f.StringVar(&planFlags.sortOrder, "sort-order", "", "asc or desc")
	f.Float64Var(&planFlags.maxPrice, "max-price", 0, "drop packages above this total")
	f.IntVar(&planFlags.minStars, "min-stars", 0, "minimum hotel star rating")
	f.IntVar(&planFlags.maxStops, "max-stops", 0, "maximum flight stops")
	f.StringSliceVar(&planFlags.carriers, "carriers", nil, "allowed airline codes or names")
	f.BoolVar(&planFlags.asJSON, "json", false, "print the plan as JSON")
	f.BoolVar(&planFlags.diagnostics, "diagnostics", false, "show provider and assembly diagnostics")
	f.BoolVar(&planFlags.noColor, "no-color", false, "disable colored output")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	in := planInput(cmd, strings.Join(args, " "))
	plan, err := a.planner.Plan(cmd.Context(), in)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if planFlags.asJSON {
		return render.JSON(out, plan)
	}
	return render.Text(out, plan, render.Options{
		Color:       !planFlags.noColor && term.IsTerminal(int(os.Stdout.Fd())),
		Diagnostics: planFlags.diagnostics,
	})
}

func planInput(cmd *cobra.Command, text string) planner.PlanInput {
	flags := cmd.Flags()
	in := planner.PlanInput{
		Text:        text,
		Destination: planFlags.destination,
		Origin:      planFlags.origin,
		StartDate:   planFlags.start,
		Currency:    planFlags.currency,
		Adults:      planFlags.adults,
		Limit:       planFlags.limit,
		SortBy:      planFlags.sortBy,
		SortOrder:   planFlags.sortOrder,
	}
	if flags.Changed("nights") {
		nights := planFlags.nights
		in.Nights = &nights
	}
	if flags.Changed("budget") {
		budget := planFlags.budget
		in.Budget = &budget
	}

	var filters models.PackageFilters
	filtered := false
	if flags.Changed("max-price") {
		v := planFlags.maxPrice
		filters.PriceMax = &v
		filtered = true
	}
	if flags.Changed("min-stars") {
		v := planFlags.minStars
		filters.MinStars = &v
		filtered = true
	}
	if flags.Changed("max-stops") {
		v := planFlags.maxStops
		filters.MaxStops = &v
		filtered = true
	}
	if len(planFlags.carriers) > 0 {
		filters.Carriers = planFlags.carriers
		filtered = true
	}
	if filtered {
		in.Filters = &filters
	}
	return in
}

// exitCode is 2 for requests the user should rephrase and 1 otherwise.
func exitCode(err error) int {
	var validation models.ValidationError
	if errors.As(err, &validation) || errors.Is(err, planner.ErrDestinationUnresolved) {
		return 2
	}
	return 1
}
