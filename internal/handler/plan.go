package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/tripplanner/internal/models"
	"github.com/dharmasatrya/tripplanner/internal/planner"
)

// Planner is the part of *planner.Planner the HTTP layer needs.
type Planner interface {
	Plan(ctx context.Context, in planner.PlanInput) (*models.Plan, error)
}

type PlanHandler struct {
	planner Planner
}

func NewPlanHandler(p Planner) *PlanHandler {
	return &PlanHandler{
		planner: p,
	}
}

func (h *PlanHandler) Plan(c echo.Context) error {
	var in planner.PlanInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	plan, err := h.planner.Plan(c.Request().Context(), in)
	if err != nil {
		return planError(c, err)
	}

	c.Response().Header().Set("X-Data-Status", string(plan.Status))
	return c.JSON(http.StatusOK, plan)
}

func planError(c echo.Context, err error) error {
	var validation models.ValidationError
	switch {
	case errors.As(err, &validation):
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
	case errors.Is(err, planner.ErrDestinationUnresolved):
		return c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:   "destination_unresolved",
			Message: err.Error(),
			Code:    http.StatusUnprocessableEntity,
		})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, models.ErrorResponse{
			Error:   "timeout",
			Message: "Planning took too long, please try again",
			Code:    http.StatusGatewayTimeout,
		})
	default:
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "plan_error",
			Message: "Failed to plan trip: " + err.Error(),
			Code:    http.StatusInternalServerError,
		})
	}
}

func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
