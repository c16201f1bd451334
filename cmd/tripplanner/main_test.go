package main

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/tripplanner/internal/aggregator"
	"github.com/dharmasatrya/tripplanner/internal/geocode"
	"github.com/dharmasatrya/tripplanner/internal/models"
	"github.com/dharmasatrya/tripplanner/internal/planner"
)

func TestPlanInput_FromFlags(t *testing.T) {
	require.NoError(t, planCmd.ParseFlags([]string{
		"--destination", "Kandy",
		"--budget", "800",
		"--nights", "5",
		"--max-stops", "0",
		"--carriers", "UL,AI",
	}))

	in := planInput(planCmd, "beach trip")

	assert.Equal(t, "beach trip", in.Text)
	assert.Equal(t, "Kandy", in.Destination)
	require.NotNil(t, in.Nights)
	assert.Equal(t, 5, *in.Nights)
	require.NotNil(t, in.Budget)
	assert.Equal(t, 800.0, *in.Budget)
	require.NotNil(t, in.Filters)
	require.NotNil(t, in.Filters.MaxStops)
	assert.Equal(t, 0, *in.Filters.MaxStops)
	assert.Nil(t, in.Filters.PriceMax)
	assert.Equal(t, []string{"UL", "AI"}, in.Filters.Carriers)
}

func TestPlanInput_ExplicitZeroNights(t *testing.T) {
	require.NoError(t, planCmd.ParseFlags([]string{"--nights", "0"}))

	in := planInput(planCmd, "trip to Kandy")
	require.NotNil(t, in.Nights)
	assert.Zero(t, *in.Nights)

	p := planner.New(geocode.NewGazetteer(), aggregator.NewAggregator(nil, nil, aggregator.DefaultConfig()), planner.DefaultConfig(), nil, nil)
	_, err := p.Plan(t.Context(), in)
	assert.ErrorIs(t, err, models.ErrNonPositiveNights)
	assert.Equal(t, 2, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(models.ErrNonPositiveNights))
	assert.Equal(t, 2, exitCode(fmt.Errorf("plan: %w", &planner.UnresolvedError{Query: "Atlantis"})))
	assert.Equal(t, 1, exitCode(errors.New("config file missing")))
}

func TestNewLogger(t *testing.T) {
	logger := newLogger("debug", "json")
	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))

	logger = newLogger("warn", "text")
	assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
}
