package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoroute/ecoroute/internal/api/middleware"
	"github.com/ecoroute/ecoroute/internal/api/models"
	"github.com/ecoroute/ecoroute/internal/api/response"
)

// withRequestID returns req as seen by a handler behind the RequestID middleware.
func withRequestID(t *testing.T, req *http.Request) *http.Request {
	t.Helper()
	var seen *http.Request
	middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = r
	})).ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	return seen
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var p models.Problem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	return p
}

func TestJSON_EchoesRequestID(t *testing.T) {
	in := httptest.NewRequest(http.MethodGet, "/v1/weather", http.NoBody)
	in.Header.Set(middleware.RequestIDHeader, "client-request-123")
	req := withRequestID(t, in)
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "client-request-123", rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestJSON_WithoutRequestID(t *testing.T) {
	rec := httptest.NewRecorder()

	response.JSON(rec, httptest.NewRequest(http.MethodGet, "/v1/weather", http.NoBody), http.StatusOK, nil)

	assert.Empty(t, rec.Header().Get("X-Request-Id"))
	assert.Zero(t, rec.Body.Len())
}

func TestProblemWriters(t *testing.T) {
	tests := []struct {
		name       string
		write      func(http.ResponseWriter, *http.Request)
		wantStatus int
		wantType   string
	}{
		{
			name: "bad request",
			write: func(w http.ResponseWriter, r *http.Request) {
				response.BadRequest(w, r, "validation failed", []models.FieldError{{Field: "destination", Message: "is required"}})
			},
			wantStatus: http.StatusBadRequest,
			wantType:   models.ProblemTypeValidation,
		},
		{
			name:       "not found",
			write:      func(w http.ResponseWriter, r *http.Request) { response.NotFound(w, r, "no such endpoint") },
			wantStatus: http.StatusNotFound,
			wantType:   models.ProblemTypeNotFound,
		},
		{
			name:       "internal",
			write:      func(w http.ResponseWriter, r *http.Request) { response.InternalError(w, r, "failed to plan trip") },
			wantStatus: http.StatusInternalServerError,
			wantType:   models.ProblemTypeInternal,
		},
		{
			name:       "bad gateway",
			write:      func(w http.ResponseWriter, r *http.Request) { response.BadGateway(w, r, "failed to fetch city data") },
			wantStatus: http.StatusBadGateway,
			wantType:   models.ProblemTypeBadGateway,
		},
		{
			name:       "unavailable",
			write:      func(w http.ResponseWriter, r *http.Request) { response.ServiceUnavailable(w, r, "weather is not configured") },
			wantStatus: http.StatusServiceUnavailable,
			wantType:   models.ProblemTypeUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withRequestID(t, httptest.NewRequest(http.MethodGet, "/v1/geocode", http.NoBody))
			rec := httptest.NewRecorder()

			tt.write(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			p := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, p.Type)
			assert.Equal(t, tt.wantStatus, p.Status)
			assert.Equal(t, "/v1/geocode", p.Instance)
			assert.Equal(t, middleware.GetRequestID(req.Context()), p.TraceID)
			assert.NotEmpty(t, p.TraceID)
		})
	}
}

func TestLegacyError_WritesPlainBody(t *testing.T) {
	req := withRequestID(t, httptest.NewRequest(http.MethodPost, "/plan_trip", http.NoBody))
	rec := httptest.NewRecorder()

	response.LegacyError(rec, req, http.StatusUnprocessableEntity, "Unable to estimate distance for the route")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Unable to estimate distance for the route"}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		StartLocation string `json:"start_location"`
	}

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "valid", in: `{"start_location":"Lyon"}`, want: "Lyon"},
		{name: "trailing whitespace", in: "{\"start_location\":\"Lyon\"}\n", want: "Lyon"},
		{name: "malformed", in: `{"start_location":`, wantErr: response.ErrInvalidBody},
		{name: "empty", in: "", wantErr: response.ErrInvalidBody},
		{name: "two values", in: `{} {}`, wantErr: response.ErrInvalidBody},
		{name: "too large", in: `{"start_location":"` + strings.Repeat("x", 128) + `"}`, wantErr: response.ErrBodyTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/trips:plan", strings.NewReader(tt.in))
			var got body

			err := response.DecodeJSON(httptest.NewRecorder(), req, &got, 64)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StartLocation)
		})
	}
}

func TestBadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/trips:plan", strings.NewReader(strings.Repeat("x", 100)))
	err := response.DecodeJSON(httptest.NewRecorder(), req, &struct{}{}, 10)
	require.ErrorIs(t, err, response.ErrBodyTooLarge)

	rec := httptest.NewRecorder()
	response.BadBody(rec, req, err)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeProblem(t, rec).Detail, "request body too large")
}
