// Package geocode turns a place mentioned in free text into a GeoLocation.
//
// Resolvers never return errors: a failed lookup of any kind is reported as
// "not found" and the caller decides whether to ask for clarification.
package geocode

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dharmasatrya/tripplanner/internal/models"
)

type Resolver interface {
	Name() string
	Resolve(ctx context.Context, text string) (models.GeoLocation, bool)
}

// Chain tries each resolver in order and returns the first hit. Hits without
// an airport code are completed from the gazetteer.
type Chain struct {
	resolvers []Resolver
	gazetteer *Gazetteer
	logger    *slog.Logger
}

func NewChain(logger *slog.Logger, resolvers ...Resolver) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		resolvers: resolvers,
		gazetteer: NewGazetteer(),
		logger:    logger,
	}
}

func (c *Chain) Name() string {
	names := make([]string, 0, len(c.resolvers))
	for _, r := range c.resolvers {
		names = append(names, r.Name())
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

func (c *Chain) Resolve(ctx context.Context, text string) (models.GeoLocation, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.GeoLocation{}, false
	}

	for _, r := range c.resolvers {
		if ctx.Err() != nil {
			return models.GeoLocation{}, false
		}
		loc, ok := r.Resolve(ctx, text)
		if !ok {
			c.logger.Debug("resolver missed", "resolver", r.Name(), "query", text)
			continue
		}
		if loc.AirportCode == "" {
			loc.AirportCode = c.gazetteer.AirportFor(loc.City, loc.Country)
		}
		c.logger.Debug("resolved location",
			"resolver", r.Name(),
			"query", text,
			"country", loc.Country,
			"city", loc.City,
			"airport", loc.AirportCode,
		)
		return loc, true
	}
	return models.GeoLocation{}, false
}
