package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cuemby/zoned/pkg/hostedzone"
	"github.com/cuemby/zoned/pkg/log"
	"github.com/cuemby/zoned/pkg/metrics"
	"github.com/gorilla/mux"
)

const (
	// DefaultListenAddr is the management API address used when none is configured
	DefaultListenAddr = "127.0.0.1:8053"

	// Version prefixes every management route
	Version = "2010-10-01"

	shutdownTimeout = 5 * time.Second
)

// Config holds API server configuration
type Config struct {
	ListenAddr string

	// ReadOnly rejects every route that changes zones
	ReadOnly bool
}

// Server exposes the hosted zone service as a JSON HTTP API, next to the
// health, readiness and Prometheus endpoints
type Server struct {
	service    *hostedzone.Service
	router     *mux.Router
	listenAddr string
	readOnly   bool

	mu       sync.Mutex
	http     *http.Server
	listener net.Listener
	errCh    chan error
}

// NewServer creates an API server for service. A nil cfg uses defaults.
func NewServer(service *hostedzone.Service, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}
	addr := cfg.ListenAddr
	if addr == "" {
		addr = DefaultListenAddr
	}

	s := &Server{
		service:    service,
		listenAddr: addr,
		readOnly:   cfg.ReadOnly,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/health", metrics.HealthHandler()).Methods(http.MethodGet)
	r.Handle("/ready", metrics.ReadyHandler()).Methods(http.MethodGet)
	r.Handle("/live", metrics.LivenessHandler()).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	v := r.PathPrefix("/" + Version).Subrouter()
	v.Use(instrument)
	if s.readOnly {
		v.Use(readOnly)
	}

	v.HandleFunc("/hostedzone", s.listZones).Methods(http.MethodGet).Name("ListHostedZones")
	v.HandleFunc("/hostedzone", s.createZone).Methods(http.MethodPost).Name("CreateHostedZone")
	v.HandleFunc("/hostedzone/{id}", s.getZone).Methods(http.MethodGet).Name("GetHostedZone")
	v.HandleFunc("/hostedzone/{id}", s.deleteZone).Methods(http.MethodDelete).Name("DeleteHostedZone")
	v.HandleFunc("/hostedzone/{id}/rrset", s.listRecords).Methods(http.MethodGet).Name("ListResourceRecordSets")
	v.HandleFunc("/hostedzone/{id}/rrset", s.changeRecords).Methods(http.MethodPost).Name("ChangeResourceRecordSets")
	v.HandleFunc("/change/{id}", s.getChange).Methods(http.MethodGet).Name("GetChange")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, fmt.Errorf("no route for %s %s: %w", r.Method, r.URL.Path, errRouteNotFound))
	})
	return r
}

// Handler returns the HTTP handler for embedding in other servers
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.http != nil {
		return fmt.Errorf("api server already running on %s", s.listener.Addr())
	}

	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listenAddr, err)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.http = srv
	s.listener = ln
	s.errCh = make(chan error, 1)

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
		close(s.errCh)
	}()

	metrics.RegisterComponent(metrics.ComponentAPI, true, "serving")
	log.Logger.Info().
		Str("component", "api").
		Str("addr", ln.Addr().String()).
		Bool("read_only", s.readOnly).
		Msg("Management API listening")
	return nil
}

// Run starts the server and blocks until ctx is cancelled or serving fails
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	s.mu.Lock()
	errCh := s.errCh
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err, ok := <-errCh:
		_ = s.Stop()
		if ok {
			return err
		}
		return nil
	}
}

// Stop shuts the server down, waiting briefly for in-flight requests
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.http
	s.http = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	metrics.UpdateComponent(metrics.ComponentAPI, false, "stopped")
	log.Logger.Info().Str("component", "api").Msg("Stopping management API")
	return srv.Shutdown(ctx)
}

// Addr returns the bound address, or "" when the server is not running
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.http == nil {
		return ""
	}
	return s.listener.Addr().String()
}
