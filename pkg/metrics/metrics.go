package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Query metrics
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zoned_queries_total",
			Help: "Total number of DNS questions answered by query type and response code",
		},
		[]string{"qtype", "rcode"},
	)

	QueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "zoned_query_duration_seconds",
			Help:    "Time taken to resolve a DNS message in seconds",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		},
	)

	CNAMERedirects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zoned_cname_redirects_total",
			Help: "Total number of CNAME redirects followed while resolving",
		},
	)

	GeoSelections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zoned_geo_selections_total",
			Help: "Total number of answers chosen by client distance",
		},
	)

	// Zone metrics
	ZonesLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zoned_zones_loaded",
			Help: "Number of zones currently loaded",
		},
	)

	RecordsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zoned_records_loaded",
			Help: "Number of resource records across all loaded zones",
		},
	)

	ZoneLoadErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zoned_zone_load_errors_total",
			Help: "Total number of zone files that failed to parse",
		},
	)

	ChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zoned_changes_total",
			Help: "Total number of journaled changes by type",
		},
		[]string{"type"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zoned_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zoned_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(CNAMERedirects)
	prometheus.MustRegister(GeoSelections)
	prometheus.MustRegister(ZonesLoaded)
	prometheus.MustRegister(RecordsLoaded)
	prometheus.MustRegister(ZoneLoadErrors)
	prometheus.MustRegister(ChangesTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
