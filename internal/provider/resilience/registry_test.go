package resilience_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoroute/ecoroute/internal/provider/resilience"
)

func newRegisteredClient(registry *resilience.Registry, name string) *resilience.Client {
	cfg := resilience.DefaultClientConfig(name)
	cfg.Registry = registry
	return resilience.NewClient(cfg)
}

func TestRegistry_ClientRegistersItself(t *testing.T) {
	registry := resilience.NewRegistry()
	client := newRegisteredClient(registry, "openweathermap-geo")

	assert.Equal(t, 1, registry.Len())
	assert.Equal(t, "openweathermap-geo", client.Name())

	health := registry.GetHealth("openweathermap-geo")
	require.NotNil(t, health)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.True(t, health.IsHealthy())
	assert.Nil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)
	assert.Zero(t, health.TotalCalls)
}

func TestRegistry_RecordOutcomes(t *testing.T) {
	registry := resilience.NewRegistry()
	newRegisteredClient(registry, "gemini")

	registry.RecordSuccess("gemini")
	registry.RecordFailure("gemini", assert.AnError)
	registry.RecordFailure("gemini", nil)

	health := registry.GetHealth("gemini")
	require.NotNil(t, health)
	require.NotNil(t, health.LastSuccessAt)
	require.NotNil(t, health.LastFailureAt)
	assert.WithinDuration(t, time.Now(), *health.LastSuccessAt, time.Second)
	assert.WithinDuration(t, time.Now(), *health.LastFailureAt, time.Second)
	assert.Equal(t, int64(3), health.TotalCalls)
	assert.Equal(t, int64(2), health.TotalFailures)
	// A nil error keeps the previous message.
	assert.Equal(t, assert.AnError.Error(), health.LastError)
}

func TestRegistry_GetAllHealthSorted(t *testing.T) {
	registry := resilience.NewRegistry()
	for _, name := range []string{"openweathermap", "gemini", "openweathermap-geo"} {
		newRegisteredClient(registry, name)
	}

	all := registry.GetAllHealth()
	require.Len(t, all, 3)
	assert.Equal(t, "gemini", all[0].Name)
	assert.Equal(t, "openweathermap", all[1].Name)
	assert.Equal(t, "openweathermap-geo", all[2].Name)

	assert.Equal(t, []string{"gemini", "openweathermap", "openweathermap-geo"}, registry.Names())
}

func TestRegistry_ReRegisterResetsStats(t *testing.T) {
	registry := resilience.NewRegistry()
	newRegisteredClient(registry, "gemini")
	registry.RecordFailure("gemini", assert.AnError)

	newRegisteredClient(registry, "gemini")

	assert.Equal(t, 1, registry.Len())
	assert.Zero(t, registry.GetHealth("gemini").TotalFailures)
}

func TestRegistry_UnknownProvider(t *testing.T) {
	registry := resilience.NewRegistry()

	assert.Nil(t, registry.GetHealth("nonexistent"))
	assert.Empty(t, registry.Names())
	assert.NotPanics(t, func() {
		registry.RecordSuccess("nonexistent")
		registry.RecordFailure("nonexistent", assert.AnError)
	})
}

func TestProviderHealth_States(t *testing.T) {
	tests := []struct {
		state      gobreaker.State
		isHealthy  bool
		isDegraded bool
		isUnhealth bool
	}{
		{gobreaker.StateClosed, true, false, false},
		{gobreaker.StateHalfOpen, false, true, false},
		{gobreaker.StateOpen, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			h := &resilience.ProviderHealth{CircuitState: tt.state}
			assert.Equal(t, tt.isHealthy, h.IsHealthy())
			assert.Equal(t, tt.isDegraded, h.IsDegraded())
			assert.Equal(t, tt.isUnhealth, h.IsUnhealthy())
		})
	}
}

func TestLogStateChanges(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	resilience.LogStateChanges(logger)("gemini", gobreaker.StateClosed, gobreaker.StateOpen)

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"provider":"gemini"`)
	assert.Contains(t, buf.String(), `"to":"open"`)
}
