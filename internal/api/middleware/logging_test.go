package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ecoroute/ecoroute/internal/api/middleware"
)

// serveLogged runs one request through h and returns the single access log line.
func serveLogged(t *testing.T, buf *bytes.Buffer, h http.Handler, req *http.Request) map[string]interface{} {
	t.Helper()
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	h := middleware.Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"Lyon"}]`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/geocode?q=Lyon", http.NoBody)
	req.Header.Set("User-Agent", "ecoroute-web/2.1")
	entry := serveLogged(t, &buf, h, req)

	assert.Equal(t, "request completed", entry["message"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/v1/geocode", entry["path"])
	assert.Equal(t, float64(200), entry["status"], "implicit WriteHeader is 200")
	assert.Equal(t, float64(17), entry["bytes"])
	assert.Equal(t, "ecoroute-web/2.1", entry["user_agent"])
	assert.NotContains(t, entry["path"], "Lyon", "query strings stay out of logs")
	assert.NotEmpty(t, entry["duration"])
}

func TestLogger_IncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := middleware.RequestID(middleware.Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	entry := serveLogged(t, &buf, h, httptest.NewRequest(http.MethodGet, "/v1/weather", http.NoBody))

	requestID, ok := entry["request_id"].(string)
	require.True(t, ok)
	assert.Contains(t, requestID, "req_")
}

func TestLogger_IncludesTraceID(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var buf bytes.Buffer
	h := middleware.Tracing("ecoroute-api")(middleware.Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	entry := serveLogged(t, &buf, h, httptest.NewRequest(http.MethodGet, "/v1/weather", http.NoBody))

	assert.Len(t, entry["trace_id"], 32)
	assert.Len(t, entry["span_id"], 16)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), entry["trace_id"])
}
