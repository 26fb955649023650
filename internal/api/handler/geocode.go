package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ecoroute/ecoroute/internal/api/models"
	"github.com/ecoroute/ecoroute/internal/api/response"
	"github.com/ecoroute/ecoroute/internal/geocoding"
)

const (
	defaultGeocodeLimit = 5
	maxGeocodeLimit     = 5
)

// PlaceSearcher resolves free-text place queries.
type PlaceSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]geocoding.Place, error)
}

// GeocodeHandler proxies place lookups to the geocoding provider.
type GeocodeHandler struct {
	searcher PlaceSearcher
}

// NewGeocodeHandler creates a new GeocodeHandler.
func NewGeocodeHandler(searcher PlaceSearcher) *GeocodeHandler {
	return &GeocodeHandler{searcher: searcher}
}

// Geocode handles GET /v1/geocode?q=<place>[&limit=n].
func (h *GeocodeHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		response.BadRequest(w, r, "query parameter is required", []models.FieldError{
			{Field: "q", Message: "required", Code: "REQUIRED"},
		})
		return
	}

	limit := defaultGeocodeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxGeocodeLimit {
			response.BadRequest(w, r, "limit must be between 1 and 5", []models.FieldError{
				{Field: "limit", Message: "must be between 1 and 5", Code: "OUT_OF_RANGE"},
			})
			return
		}
		limit = n
	}

	if h.searcher == nil {
		response.ServiceUnavailable(w, r, "geocoding is not configured")
		return
	}

	places, err := h.searcher.Search(r.Context(), query, limit)
	if err != nil {
		if errors.Is(err, geocoding.ErrEmptyQuery) {
			response.BadRequest(w, r, "query parameter is required", nil)
			return
		}
		response.BadGateway(w, r, "failed to fetch city data")
		return
	}

	results := make([]models.GeocodeResult, 0, len(places))
	for _, p := range places {
		results = append(results, models.GeocodeResult{
			Name:    p.Name,
			Lat:     p.Lat,
			Lon:     p.Lon,
			Country: p.Country,
			State:   p.State,
		})
	}
	response.JSON(w, r, http.StatusOK, results)
}
