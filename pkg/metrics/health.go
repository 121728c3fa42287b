package metrics

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Health states reported by Registry.Health
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"

	StatusReady    = "ready"
	StatusNotReady = "not_ready"
)

// Component names shared between the registry and the components reporting
// into it
const (
	ComponentZoneStore = "zonestore"
	ComponentDNS       = "dns"
	ComponentAPI       = "api"
	ComponentProbe     = "dns.probe"
)

// HealthStatus is the JSON body of /health and /ready
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
	Zones      int               `json:"zones"`
	LastLoaded *time.Time        `json:"lastLoaded,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
}

// ComponentHealth is the last state a component reported
type ComponentHealth struct {
	Name    string
	Healthy bool
	Message string
	Updated time.Time
}

// ZoneStatsFunc reports how many zones are loaded and when the most
// recently modified one was read from disk
type ZoneStatsFunc func() (zones int, lastLoaded time.Time)

// Registry aggregates component health for one server.
//
// A failed critical component makes the server unhealthy, any other failed
// component only degrades it. Readiness additionally needs at least one
// loaded zone and a passing self-probe when one is running.
type Registry struct {
	mu         sync.RWMutex
	critical   map[string]bool
	components map[string]ComponentHealth
	zoneStats  ZoneStatsFunc
	started    time.Time
	version    string
}

// NewRegistry creates a registry treating the named components as critical
func NewRegistry(critical ...string) *Registry {
	r := &Registry{
		critical:   make(map[string]bool, len(critical)),
		components: make(map[string]ComponentHealth),
		started:    time.Now(),
	}
	for _, name := range critical {
		r.critical[name] = true
	}
	return r
}

var defaultRegistry = NewRegistry(ComponentZoneStore, ComponentDNS)

// SetVersion sets the version string reported by the default registry
func SetVersion(version string) {
	defaultRegistry.SetVersion(version)
}

// RegisterComponent records a component's state in the default registry
func RegisterComponent(name string, healthy bool, message string) {
	defaultRegistry.Set(name, healthy, message)
}

// UpdateComponent is RegisterComponent for a component already running
func UpdateComponent(name string, healthy bool, message string) {
	defaultRegistry.Set(name, healthy, message)
}

// SetZoneStats points the default registry at the zone store
func SetZoneStats(fn ZoneStatsFunc) {
	defaultRegistry.SetZoneStats(fn)
}

// SetVersion sets the version string included in every status
func (r *Registry) SetVersion(version string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.version = version
}

// Set records the current state of a component
func (r *Registry) Set(name string, healthy bool, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[name] = ComponentHealth{
		Name:    name,
		Healthy: healthy,
		Message: message,
		Updated: time.Now(),
	}
}

// SetZoneStats sets the source of the zone count and load time
func (r *Registry) SetZoneStats(fn ZoneStatsFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zoneStats = fn
}

// Component returns the last reported state of name
func (r *Registry) Component(name string) (ComponentHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[name]
	return c, ok
}

// Health reports the state of every component
func (r *Registry) Health() HealthStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := r.statusLocked()
	st.Status = StatusHealthy
	for _, name := range r.namesLocked() {
		comp := r.components[name]
		if comp.Healthy {
			st.Components[name] = StatusHealthy
			continue
		}
		st.Components[name] = StatusUnhealthy + ": " + comp.Message
		switch {
		case r.critical[name]:
			st.Status = StatusUnhealthy
			st.Message = name + " is failing"
		case st.Status == StatusHealthy:
			st.Status = StatusDegraded
			st.Message = name + " is failing"
		}
	}
	return st
}

// Readiness reports whether the server can answer queries: every critical
// component reported healthy, at least one zone is loaded and the
// self-probe, if registered, passes
func (r *Registry) Readiness() HealthStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := r.statusLocked()
	st.Status = StatusReady
	notReady := func(name, state, msg string) {
		st.Components[name] = state
		if st.Status == StatusReady {
			st.Status = StatusNotReady
			st.Message = msg
		}
	}

	critical := make([]string, 0, len(r.critical))
	for name := range r.critical {
		critical = append(critical, name)
	}
	sort.Strings(critical)
	for _, name := range critical {
		comp, ok := r.components[name]
		switch {
		case !ok:
			notReady(name, "not registered", "waiting for "+name)
		case !comp.Healthy:
			notReady(name, "not ready: "+comp.Message, "waiting for "+name)
		default:
			st.Components[name] = StatusReady
		}
	}

	if probe, ok := r.components[ComponentProbe]; ok {
		if probe.Healthy {
			st.Components[ComponentProbe] = StatusReady
		} else {
			notReady(ComponentProbe, "not ready: "+probe.Message, "self-probe failing")
		}
	}

	if st.Zones == 0 && st.Status == StatusReady {
		st.Status = StatusNotReady
		st.Message = "no zones loaded"
	}
	return st
}

// statusLocked fills the fields shared by health and readiness
func (r *Registry) statusLocked() HealthStatus {
	st := HealthStatus{
		Timestamp:  time.Now(),
		Components: make(map[string]string, len(r.components)),
		Version:    r.version,
		Uptime:     time.Since(r.started).Round(time.Second).String(),
	}
	if r.zoneStats != nil {
		zones, last := r.zoneStats()
		st.Zones = zones
		if !last.IsZero() {
			st.LastLoaded = &last
		}
	}
	return st
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthHandler serves Health. Only an unhealthy server answers 503.
func (r *Registry) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		st := r.Health()
		code := http.StatusOK
		if st.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, code, st)
	}
}

// ReadyHandler serves Readiness, answering 503 until the server is ready
func (r *Registry) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		st := r.Readiness()
		code := http.StatusOK
		if st.Status != StatusReady {
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, code, st)
	}
}

// LivenessHandler answers 200 while the process runs
func (r *Registry) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": time.Since(r.started).Round(time.Second).String(),
		})
	}
}

// HealthHandler serves the default registry's health
func HealthHandler() http.HandlerFunc { return defaultRegistry.HealthHandler() }

// ReadyHandler serves the default registry's readiness
func ReadyHandler() http.HandlerFunc { return defaultRegistry.ReadyHandler() }

// LivenessHandler serves the default registry's liveness
func LivenessHandler() http.HandlerFunc { return defaultRegistry.LivenessHandler() }

func writeStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
