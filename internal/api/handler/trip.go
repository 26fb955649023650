package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ecoroute/ecoroute/internal/api/middleware"
	"github.com/ecoroute/ecoroute/internal/api/models"
	"github.com/ecoroute/ecoroute/internal/api/response"
	"github.com/ecoroute/ecoroute/internal/planner"
	"github.com/ecoroute/ecoroute/internal/reference"
)

// DistanceUnavailableMessage is the legacy error body for trips that could
// not be geocoded.
const DistanceUnavailableMessage = "Unable to estimate distance for the route"

// maxTripBodyBytes caps the planning request body.
const maxTripBodyBytes = 64 << 10

// TripPlanner plans trips.
type TripPlanner interface {
	Plan(ctx context.Context, req planner.Request) (*planner.Plan, error)
}

// TripHandler handles trip planning endpoints.
type TripHandler struct {
	planner TripPlanner
	logger  zerolog.Logger
}

// NewTripHandler creates a new TripHandler. A nil planner makes every
// request fail with 503.
func NewTripHandler(p TripPlanner, logger zerolog.Logger) *TripHandler {
	return &TripHandler{planner: p, logger: logger}
}

// PlanTrip handles POST /v1/trips:plan and the legacy POST /plan_trip.
func (h *TripHandler) PlanTrip(w http.ResponseWriter, r *http.Request) {
	if h.planner == nil {
		response.ServiceUnavailable(w, r, "trip planner is not available")
		return
	}

	var input models.TripPlanRequest
	if err := response.DecodeJSON(w, r, &input, maxTripBodyBytes); err != nil {
		response.BadBody(w, r, err)
		return
	}

	if fieldErrors := validateTripRequest(input); len(fieldErrors) > 0 {
		response.BadRequest(w, r, "start_location and destination are required", fieldErrors)
		return
	}

	plan, err := h.planner.Plan(r.Context(), planner.Request{
		StartLocation:   input.StartLocation,
		Destination:     input.Destination,
		Preferences:     input.Preferences,
		TimeFlexibility: input.TimeFlexibility,
	})
	if err != nil {
		h.writePlanError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, planner.Format(plan.Options))
}

func (h *TripHandler) writePlanError(w http.ResponseWriter, r *http.Request, err error) {
	log := h.logger.With().Str("request_id", middleware.GetRequestID(r.Context())).Logger()

	switch {
	case errors.Is(err, planner.ErrDistanceUnavailable):
		log.Info().Err(err).Msg("trip distance unavailable")
		response.LegacyError(w, r, http.StatusUnprocessableEntity, DistanceUnavailableMessage)
	case errors.Is(err, reference.ErrUnknownMode):
		log.Error().Err(err).Msg("reference data references an unknown mode")
		response.InternalError(w, r, "reference data references an unknown transport mode")
	case errors.Is(err, planner.ErrMissingStart), errors.Is(err, planner.ErrMissingDestination):
		response.BadRequest(w, r, err.Error(), nil)
	default:
		log.Error().Err(err).Msg("trip planning failed")
		response.InternalError(w, r, "failed to plan trip")
	}
}

func validateTripRequest(input models.TripPlanRequest) []models.FieldError {
	var fieldErrors []models.FieldError
	if strings.TrimSpace(input.StartLocation) == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "start_location", Message: "required", Code: "REQUIRED"})
	}
	if strings.TrimSpace(input.Destination) == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "destination", Message: "required", Code: "REQUIRED"})
	}
	return fieldErrors
}
