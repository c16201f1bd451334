// Package planner turns a trip request into ranked flight and hotel packages.
//
// A plan runs parse, resolve, fetch and assemble in that order. Flights and
// hotels are fetched concurrently. When a leg yields no live data it is filled
// with synthetic placeholders and the plan says so in its status and warnings.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dharmasatrya/tripplanner/internal/aggregator"
	"github.com/dharmasatrya/tripplanner/internal/assembler"
	"github.com/dharmasatrya/tripplanner/internal/filter"
	"github.com/dharmasatrya/tripplanner/internal/geocode"
	"github.com/dharmasatrya/tripplanner/internal/models"
	"github.com/dharmasatrya/tripplanner/internal/nlp"
	"github.com/dharmasatrya/tripplanner/internal/obs"
	"github.com/dharmasatrya/tripplanner/internal/providers"
	"github.com/dharmasatrya/tripplanner/pkg/currency"
)

var ErrDestinationUnresolved = errors.New("destination could not be resolved")

// UnresolvedError carries the phrase that could not be resolved. It matches
// ErrDestinationUnresolved with errors.Is.
type UnresolvedError struct {
	Query string
}

func (e *UnresolvedError) Error() string {
	if e.Query == "" {
		return "no destination found in the request; please name a city or country, e.g. \"a trip to Kandy\""
	}
	return fmt.Sprintf("could not find a place called %q; please check the spelling or name a nearby city", e.Query)
}

func (e *UnresolvedError) Is(target error) bool {
	return target == ErrDestinationUnresolved
}

const daysAheadByDefault = 7

type Config struct {
	DefaultOrigin   string
	DefaultNights   int
	ResultLimit     int
	CandidateCap    int
	MaxCombinations int
	Currency        string
	FXNormalize     bool
	SearchTimeout   time.Duration
	HotelMaxResults int
}

func DefaultConfig() Config {
	return Config{
		DefaultOrigin:   "DEL",
		DefaultNights:   3,
		ResultLimit:     assembler.DefaultLimit,
		CandidateCap:    assembler.DefaultCandidateCap,
		MaxCombinations: assembler.DefaultMaxCombinations,
		Currency:        "USD",
		SearchTimeout:   25 * time.Second,
	}
}

// PlanInput is free text plus optional structured overrides. Overrides win
// over anything read from the text.
type PlanInput struct {
	Text        string   `json:"text"`
	Destination string   `json:"destination,omitempty"`
	Origin      string   `json:"origin,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	Nights      *int     `json:"nights,omitempty"`
	Budget      *float64 `json:"budget,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	Adults      int      `json:"adults,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	Preferences []string `json:"preferences,omitempty"`

	Filters   *models.PackageFilters `json:"filters,omitempty"`
	SortBy    string                 `json:"sort_by,omitempty"`
	SortOrder string                 `json:"sort_order,omitempty"`
}

type Planner struct {
	resolver   geocode.Resolver
	gazetteer  *geocode.Gazetteer
	aggregator *aggregator.Aggregator
	synthetic  *providers.SyntheticProvider
	converter  *currency.Converter
	metrics    *obs.Metrics
	logger     *slog.Logger
	config     Config
	now        func() time.Time
}

func New(resolver geocode.Resolver, agg *aggregator.Aggregator, cfg Config, metrics *obs.Metrics, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.DefaultOrigin == "" {
		cfg.DefaultOrigin = defaults.DefaultOrigin
	}
	if cfg.DefaultNights <= 0 {
		cfg.DefaultNights = defaults.DefaultNights
	}
	if cfg.ResultLimit <= 0 {
		cfg.ResultLimit = defaults.ResultLimit
	}
	if cfg.CandidateCap <= 0 {
		cfg.CandidateCap = defaults.CandidateCap
	}
	if cfg.MaxCombinations <= 0 {
		cfg.MaxCombinations = defaults.MaxCombinations
	}
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = defaults.SearchTimeout
	}
	return &Planner{
		resolver:   resolver,
		gazetteer:  geocode.NewGazetteer(),
		aggregator: agg,
		synthetic:  providers.NewSyntheticProvider(),
		converter:  currency.NewStaticConverter(),
		metrics:    metrics,
		logger:     logger.With("component", "planner"),
		config:     cfg,
		now:        time.Now,
	}
}

// Plan validates the input, resolves the destination and returns ranked
// packages. Caller input errors are models.ValidationError values and an
// unknown destination is an *UnresolvedError; provider failures never fail
// a plan.
func (p *Planner) Plan(ctx context.Context, in PlanInput) (*models.Plan, error) {
	start := p.now()
	today := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	req, err := p.buildRequest(in, today)
	if err != nil {
		return nil, err
	}

	loc, ok := p.resolver.Resolve(ctx, req.Destination())
	if !ok {
		p.logger.Info("destination unresolved", "query", req.Destination())
		return nil, &UnresolvedError{Query: req.Destination()}
	}

	var warnings []string
	origin, warn := p.resolveOrigin(ctx, req.Origin())
	if warn != "" {
		warnings = append(warnings, warn)
	}

	target := models.NormalizeCurrency(p.config.Currency)
	if b := req.Budget(); b != nil {
		target = b.Currency
	}

	flightQuery := providers.FlightQuery{
		Origin:        origin,
		Destination:   loc.AirportCode,
		DepartureDate: req.StartDate(),
		ReturnDate:    req.EndDate(),
		Adults:        req.Adults(),
		Currency:      target,
	}
	hotelQuery := providers.HotelQuery{
		City:       loc.Name(),
		CityCode:   loc.AirportCode,
		Latitude:   loc.Latitude,
		Longitude:  loc.Longitude,
		CheckIn:    req.StartDate(),
		CheckOut:   req.EndDate(),
		Adults:     req.Adults(),
		Currency:   target,
		MaxResults: p.config.HotelMaxResults,
	}

	var conv *currency.Converter
	if p.config.FXNormalize {
		conv = p.converter
	}
	usableFlight := func(f models.FlightCandidate) bool { return assembler.UsableFlight(f, target, conv) }
	usableHotel := func(h models.HotelCandidate) bool { return assembler.UsableHotel(h, target, conv) }

	searchCtx, cancel := context.WithTimeout(ctx, p.config.SearchTimeout)
	defer cancel()

	var (
		flights legOutcome[models.FlightCandidate]
		hotels  legOutcome[models.HotelCandidate]
	)

	g, gctx := errgroup.WithContext(searchCtx)
	g.Go(func() error {
		var res *aggregator.Result[models.FlightCandidate]
		if flightQuery.Destination == "" {
			res = &aggregator.Result[models.FlightCandidate]{Candidates: []models.FlightCandidate{}}
		} else {
			res = p.aggregator.SearchFlights(gctx, flightQuery)
		}
		out, err := fillLeg(ctx, p, "flights", res, usableFlight, func(ctx context.Context) ([]models.FlightCandidate, error) {
			return p.synthetic.SearchFlights(ctx, flightQuery)
		})
		flights = out
		return err
	})
	g.Go(func() error {
		res := p.aggregator.SearchHotels(gctx, hotelQuery)
		out, err := fillLeg(ctx, p, "hotels", res, usableHotel, func(ctx context.Context) ([]models.HotelCandidate, error) {
			return p.synthetic.SearchHotels(ctx, hotelQuery)
		})
		hotels = out
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if flightQuery.Destination == "" {
		warnings = append(warnings, fmt.Sprintf("No airport is known for %s, so live flights were not searched.", loc.Name()))
	}
	warnings = append(warnings, flights.warnings...)
	warnings = append(warnings, hotels.warnings...)

	limit := p.config.ResultLimit
	if in.Limit > 0 {
		limit = in.Limit
	}
	// assemble every scored combination so filters see more than the top few
	opts := assembler.Options{
		Limit:           p.config.MaxCombinations,
		CandidateCap:    p.config.CandidateCap,
		MaxCombinations: p.config.MaxCombinations,
		Budget:          req.Budget(),
		Currency:        target,
		Converter:       conv,
	}
	assembled := assembler.Assemble(flights.candidates, hotels.candidates, opts)
	packages := filter.Apply(assembled.Packages, in.Filters, in.SortBy, in.SortOrder)
	if len(packages) > limit {
		packages = packages[:limit]
	}

	if assembled.CurrencyMismatches > 0 && conv == nil {
		warnings = append(warnings, fmt.Sprintf("%d offers were priced in a currency other than %s and were left out.", assembled.CurrencyMismatches, target))
	}
	switch {
	case len(assembled.Packages) == 0:
		warnings = append(warnings, "No complete flight and hotel package could be assembled.")
	case len(packages) == 0:
		warnings = append(warnings, "No package matched the requested filters.")
	}

	status := dataStatus(flights.synthetic, hotels.synthetic)
	elapsed := p.now().Sub(start)

	plan := &models.Plan{
		ID: uuid.NewString(),
		Trip: models.TripSummary{
			Destination: loc.Name(),
			Origin:      origin,
			StartDate:   req.StartDate().Format(models.DateLayout),
			EndDate:     req.EndDate().Format(models.DateLayout),
			Nights:      req.Nights(),
			Adults:      req.Adults(),
			Budget:      req.Budget(),
			Preferences: req.Preferences(),
			PlannedAt:   start.UTC(),
		},
		Location: loc,
		Status:   status,
		Packages: packages,
		Warnings: warnings,
		Diagnostics: models.Diagnostics{
			Flights:            flights.diagnostics,
			Hotels:             hotels.diagnostics,
			ExcludedFlights:    assembled.ExcludedFlights,
			ExcludedHotels:     assembled.ExcludedHotels,
			CurrencyMismatches: assembled.CurrencyMismatches,
			CombinationsScored: assembled.Combinations,
			ElapsedMs:          elapsed.Milliseconds(),
		},
	}

	p.metrics.PlanCompleted(string(status), elapsed)
	p.logger.Info("plan completed",
		"plan_id", plan.ID,
		"destination", loc.Name(),
		"status", status,
		"packages", len(plan.Packages),
		"elapsed_ms", plan.Diagnostics.ElapsedMs,
	)
	return plan, nil
}

func (p *Planner) buildRequest(in PlanInput, today time.Time) (models.TripRequest, error) {
	parsed := nlp.Parse(in.Text, today)

	params := models.TripRequestParams{
		RawText:     in.Text,
		Destination: firstNonEmpty(in.Destination, parsed.Destination),
		Origin:      firstNonEmpty(in.Origin, parsed.Origin),
		StartDate:   parsed.StartDate,
		Nights:      parsed.Nights,
		Budget:      parsed.Budget,
		Adults:      parsed.Adults,
		Preferences: append(append([]string(nil), parsed.Preferences...), in.Preferences...),
	}

	if strings.TrimSpace(in.StartDate) != "" {
		d, err := models.ParseDate(in.StartDate)
		if err != nil {
			return models.TripRequest{}, err
		}
		params.StartDate = d
	}
	if params.StartDate.IsZero() {
		params.StartDate = today.AddDate(0, 0, daysAheadByDefault)
	}
	// an explicit 0 is rejected by validation, not replaced by the default
	switch {
	case in.Nights != nil:
		params.Nights = *in.Nights
	case !parsed.NightsSet:
		params.Nights = p.config.DefaultNights
	}
	if in.Budget != nil {
		params.Budget = &models.Money{Amount: *in.Budget, Currency: firstNonEmpty(in.Currency, p.config.Currency)}
	}
	if in.Adults != 0 {
		params.Adults = in.Adults
	}

	if err := filter.Validate(in.Filters, in.SortBy, in.SortOrder); err != nil {
		return models.TripRequest{}, err
	}

	req, err := models.NewTripRequest(params)
	if err != nil {
		return models.TripRequest{}, err
	}
	if req.Destination() == "" {
		return models.TripRequest{}, &UnresolvedError{}
	}
	return req, nil
}

// resolveOrigin returns an airport code for the origin phrase, falling back to
// the configured default with a warning.
func (p *Planner) resolveOrigin(ctx context.Context, phrase string) (string, string) {
	if phrase == "" {
		return p.config.DefaultOrigin, ""
	}
	if loc, ok := p.gazetteer.Resolve(ctx, phrase); ok && loc.AirportCode != "" {
		return loc.AirportCode, ""
	}
	if loc, ok := p.resolver.Resolve(ctx, phrase); ok && loc.AirportCode != "" {
		return loc.AirportCode, ""
	}
	return p.config.DefaultOrigin, fmt.Sprintf("Origin %q has no known airport; departing from %s instead.", phrase, p.config.DefaultOrigin)
}

type legOutcome[T any] struct {
	candidates  []T
	synthetic   bool
	warnings    []string
	diagnostics models.LegDiagnostics
}

// fillLeg keeps the live candidates of a leg when at least one of them can
// make it into a package. Otherwise the whole leg is replaced with synthetic
// placeholders: offers that are malformed or priced in an unconvertible
// currency count the same as a provider returning nothing.
func fillLeg[T any](ctx context.Context, p *Planner, leg string, res *aggregator.Result[T], usable func(T) bool, fallback func(context.Context) ([]T, error)) (legOutcome[T], error) {
	unusable := 0
	for _, c := range res.Candidates {
		if !usable(c) {
			unusable++
		}
	}
	if len(res.Candidates) > unusable {
		return legOutcome[T]{
			candidates:  res.Candidates,
			diagnostics: res.Diagnostics("live"),
		}, nil
	}

	candidates, err := fallback(ctx)
	if err != nil {
		return legOutcome[T]{}, fmt.Errorf("synthetic %s: %w", leg, err)
	}
	p.metrics.Fallback(leg)

	reason := fallbackReason(res, unusable)
	p.logger.Warn("using synthetic data", "leg", leg, "reason", reason)

	diag := res.Diagnostics(string(models.SourceSynthetic))
	diag.Candidates = len(candidates)
	diag.Excluded += unusable
	return legOutcome[T]{
		candidates:  candidates,
		synthetic:   true,
		warnings:    []string{fmt.Sprintf("No live %s data (%s); showing SYNTHETIC %s that are placeholders, not real offers.", strings.TrimSuffix(leg, "s"), reason, leg)},
		diagnostics: diag,
	}, nil
}

func fallbackReason[T any](res *aggregator.Result[T], unusable int) string {
	switch {
	case res.ProvidersQueried == 0:
		return "no live providers searched"
	case unusable > 0:
		return fmt.Sprintf("%d live offers were malformed or priced in another currency", unusable)
	case len(res.SkippedProviders) == res.ProvidersQueried:
		return "no provider credentials configured"
	case res.ProvidersFailed > 0 && res.ProvidersSucceeded == 0:
		return "providers failed: " + strings.Join(res.FailedProviders, ", ")
	default:
		return "providers returned no matching results"
	}
}

func dataStatus(flightsSynthetic, hotelsSynthetic bool) models.DataStatus {
	switch {
	case flightsSynthetic && hotelsSynthetic:
		return models.StatusSynthetic
	case flightsSynthetic || hotelsSynthetic:
		return models.StatusPartialSynthetic
	default:
		return models.StatusLive
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
