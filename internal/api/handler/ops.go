// Package handler provides HTTP handlers for the EcoRoute API.
package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/ecoroute/ecoroute/internal/api/models"
	"github.com/ecoroute/ecoroute/internal/api/response"
	"github.com/ecoroute/ecoroute/internal/provider/resilience"
	"github.com/ecoroute/ecoroute/internal/weather"
)

// ReferenceStats describes the loaded reference tables.
type ReferenceStats struct {
	Source string
	Modes  int
	Routes int
}

// CacheReporter exposes weather cache occupancy.
type CacheReporter interface {
	CacheStats() weather.CacheStats
}

// OpsConfig holds configuration for the ops handler.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Registry reports provider circuit-breaker health (optional).
	Registry *resilience.Registry

	// Reference describes the loaded reference tables.
	Reference ReferenceStats

	// PlannerReady is false when the classifier could not be trained.
	PlannerReady bool

	// WeatherCache adds a weather-cache subsystem when set.
	WeatherCache CacheReporter
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.PlannerReady {
		response.JSON(w, r, http.StatusServiceUnavailable, models.Health{
			Status: models.HealthStatusFail,
			Time:   models.Timestamp(time.Now()),
			Details: map[string]interface{}{
				"planner": "unavailable",
			},
		})
		return
	}
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	})
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: h.subsystems(),
		Providers:  h.providers(),
	}

	for _, s := range status.Subsystems {
		status.Status = worst(status.Status, s.Status)
	}
	for _, p := range status.Providers {
		// An open breaker degrades the service; planning still works from
		// reference routes.
		if p.Status != models.HealthStatusOK {
			status.Status = worst(status.Status, models.HealthStatusDegraded)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) subsystems() []models.SubsystemStatus {
	ref := h.cfg.Reference
	refDetail := fmt.Sprintf("%d modes, %d routes from %s", ref.Modes, ref.Routes, ref.Source)

	plannerStatus := models.HealthStatusOK
	var plannerDetail *string
	if !h.cfg.PlannerReady {
		plannerStatus = models.HealthStatusFail
		d := "eco-classifier unavailable"
		plannerDetail = &d
	}

	out := []models.SubsystemStatus{
		{Name: "reference-data", Status: models.HealthStatusOK, Detail: &refDetail},
		{Name: "planner", Status: plannerStatus, Detail: plannerDetail},
	}
	if h.cfg.WeatherCache != nil {
		cs := h.cfg.WeatherCache.CacheStats()
		detail := fmt.Sprintf("%d cells cached, %d fresh", cs.Entries, cs.FreshEntries)
		out = append(out, models.SubsystemStatus{Name: "weather-cache", Status: models.HealthStatusOK, Detail: &detail})
	}
	return out
}

func (h *OpsHandler) providers() []models.ProviderStatus {
	if h.cfg.Registry == nil {
		return []models.ProviderStatus{}
	}

	all := h.cfg.Registry.GetAllHealth()
	out := make([]models.ProviderStatus, 0, len(all))
	for _, ph := range all {
		ps := models.ProviderStatus{
			Provider:      ph.Name,
			Status:        circuitHealth(ph.CircuitState),
			CircuitState:  ph.CircuitState.String(),
			TotalCalls:    ph.TotalCalls,
			TotalFailures: ph.TotalFailures,
			LastSuccessAt: timestampPtr(ph.LastSuccessAt),
			LastFailureAt: timestampPtr(ph.LastFailureAt),
		}
		if ph.LastError != "" {
			msg := ph.LastError
			ps.Message = &msg
		}
		out = append(out, ps)
	}
	return out
}

func circuitHealth(state gobreaker.State) models.HealthStatus {
	switch state {
	case gobreaker.StateClosed:
		return models.HealthStatusOK
	case gobreaker.StateHalfOpen:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusFail
	}
}

func worst(a, b models.HealthStatus) models.HealthStatus {
	rank := func(s models.HealthStatus) int {
		switch s {
		case models.HealthStatusFail:
			return 2
		case models.HealthStatusDegraded:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

func timestampPtr(t *time.Time) *models.Timestamp {
	if t == nil {
		return nil
	}
	ts := models.Timestamp(*t)
	return &ts
}
