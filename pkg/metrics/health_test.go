package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zones(n int, last time.Time) ZoneStatsFunc {
	return func() (int, time.Time) { return n, last }
}

// serving returns a registry in the state of a server that loaded one zone
// and started its listeners
func serving() *Registry {
	r := NewRegistry(ComponentZoneStore, ComponentDNS)
	r.SetZoneStats(zones(1, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
	r.Set(ComponentZoneStore, true, "1 zones")
	r.Set(ComponentDNS, true, "serving")
	r.Set(ComponentAPI, true, "serving")
	return r
}

func TestHealthStates(t *testing.T) {
	tests := []struct {
		name    string
		fail    string
		status  string
		message string
	}{
		{"all serving", "", StatusHealthy, ""},
		{"api stopped", ComponentAPI, StatusDegraded, "api is failing"},
		{"probe failing", ComponentProbe, StatusDegraded, "dns.probe is failing"},
		{"dns stopped", ComponentDNS, StatusUnhealthy, "dns is failing"},
		{"zonestore failing", ComponentZoneStore, StatusUnhealthy, "zonestore is failing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := serving()
			if tt.fail != "" {
				r.Set(tt.fail, false, "down")
			}

			st := r.Health()
			assert.Equal(t, tt.status, st.Status)
			assert.Equal(t, tt.message, st.Message)
			if tt.fail != "" {
				assert.Equal(t, "unhealthy: down", st.Components[tt.fail])
			}
		})
	}
}

func TestHealthCriticalWinsOverDegraded(t *testing.T) {
	r := serving()
	r.Set(ComponentAPI, false, "stopped")
	r.Set(ComponentDNS, false, "stopped")

	assert.Equal(t, StatusUnhealthy, r.Health().Status)
}

func TestHealthReportsZones(t *testing.T) {
	r := serving()
	r.SetVersion("1.2.3")

	st := r.Health()
	assert.Equal(t, 1, st.Zones)
	require.NotNil(t, st.LastLoaded)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), *st.LastLoaded)
	assert.Equal(t, "1.2.3", st.Version)

	r.SetZoneStats(zones(0, time.Time{}))
	assert.Nil(t, r.Health().LastLoaded)
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(r *Registry)
		ready   bool
		message string
	}{
		{"serving", func(r *Registry) {}, true, ""},
		{"api down does not matter", func(r *Registry) { r.Set(ComponentAPI, false, "stopped") }, true, ""},
		{"passing probe", func(r *Registry) { r.Set(ComponentProbe, true, "ok") }, true, ""},
		{"failing probe", func(r *Registry) { r.Set(ComponentProbe, false, "timeout") }, false, "self-probe failing"},
		{"no zones", func(r *Registry) { r.SetZoneStats(zones(0, time.Time{})) }, false, "no zones loaded"},
		{"no zone source", func(r *Registry) { r.SetZoneStats(nil) }, false, "no zones loaded"},
		{"dns stopped", func(r *Registry) { r.Set(ComponentDNS, false, "stopped") }, false, "waiting for dns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := serving()
			tt.setup(r)

			st := r.Readiness()
			if tt.ready {
				assert.Equal(t, StatusReady, st.Status)
			} else {
				assert.Equal(t, StatusNotReady, st.Status)
			}
			assert.Equal(t, tt.message, st.Message)
		})
	}
}

func TestReadinessBeforeStartup(t *testing.T) {
	r := NewRegistry(ComponentZoneStore, ComponentDNS)

	st := r.Readiness()
	assert.Equal(t, StatusNotReady, st.Status)
	assert.Equal(t, "waiting for dns", st.Message)
	assert.Equal(t, "not registered", st.Components[ComponentDNS])
	assert.Equal(t, "not registered", st.Components[ComponentZoneStore])
}

func TestComponent(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Component(ComponentDNS)
	assert.False(t, ok)

	before := time.Now()
	r.Set(ComponentDNS, false, "stopped")
	c, ok := r.Component(ComponentDNS)
	require.True(t, ok)
	assert.False(t, c.Healthy)
	assert.Equal(t, "stopped", c.Message)
	assert.False(t, c.Updated.Before(before))
}

func TestHandlerStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(r *Registry)
		health int
		ready  int
	}{
		{"serving", func(r *Registry) {}, http.StatusOK, http.StatusOK},
		{"degraded", func(r *Registry) { r.Set(ComponentProbe, false, "timeout") }, http.StatusOK, http.StatusServiceUnavailable},
		{"unhealthy", func(r *Registry) { r.Set(ComponentDNS, false, "stopped") }, http.StatusServiceUnavailable, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := serving()
			tt.setup(r)

			w := httptest.NewRecorder()
			r.HealthHandler()(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.health, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var st HealthStatus
			require.NoError(t, json.NewDecoder(w.Body).Decode(&st))
			assert.Equal(t, 1, st.Zones)

			w = httptest.NewRecorder()
			r.ReadyHandler()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.ready, w.Code)
		})
	}
}

func TestLivenessHandler(t *testing.T) {
	r := NewRegistry(ComponentDNS)
	r.Set(ComponentDNS, false, "stopped")

	w := httptest.NewRecorder()
	r.LivenessHandler()(w, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "alive", body["status"])
	assert.NotEmpty(t, body["uptime"])
}
