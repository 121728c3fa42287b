package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/cuemby/zoned/pkg/log"
	"github.com/cuemby/zoned/pkg/metrics"
	"github.com/gorilla/mux"
)

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument counts and times requests per route and logs each one
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		method := routeName(r)
		timer.ObserveDurationVec(metrics.APIRequestDuration, method)
		metrics.APIRequestsTotal.WithLabelValues(method, strconv.Itoa(rec.status)).Inc()

		log.Logger.Debug().
			Str("component", "api").
			Str("method", method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", timer.Duration()).
			Msg("API request")
	})
}

// readOnly rejects every route that is not a read
func readOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isReadOnlyMethod(routeName(r)) {
			writeError(w, fmt.Errorf("%s not allowed on a read-only API: %w", routeName(r), errdefs.ErrPermissionDenied))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isReadOnlyMethod checks if an API method only reads state
func isReadOnlyMethod(method string) bool {
	for _, prefix := range []string{"List", "Get"} {
		if strings.HasPrefix(method, prefix) {
			return true
		}
	}
	return false
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
		return route.GetName()
	}
	return "unknown"
}
