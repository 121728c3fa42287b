/*
Package metrics provides Prometheus metrics and health reporting for zoned.

All metrics are registered with the default Prometheus registry at package
init and exposed through Handler, which the management API mounts at
/metrics.

# Metrics

Query path:

	zoned_queries_total{qtype,rcode}     questions answered
	zoned_query_duration_seconds         time to resolve one message
	zoned_cname_redirects_total          CNAME hops followed
	zoned_geo_selections_total           answers picked by client distance

Zones:

	zoned_zones_loaded                   zones in memory (Collector)
	zoned_records_loaded                 records in memory (Collector)
	zoned_zone_load_errors_total         zone files skipped on parse errors
	zoned_changes_total{type}            journaled management changes

API:

	zoned_api_requests_total{method,status}
	zoned_api_request_duration_seconds{method}

# Timing

	timer := metrics.NewTimer()
	resp := engine.Resolve(q, loc)
	timer.ObserveDuration(metrics.QueryDuration)

# Health

A Registry aggregates the state components report with RegisterComponent and
UpdateComponent. A failing critical component ("zonestore", "dns") makes the
server unhealthy; any other failing component ("api", "dns.probe") degrades
it. Readiness also needs at least one loaded zone, reported through
SetZoneStats, and a passing self-probe once one is registered.

HealthHandler, ReadyHandler and LivenessHandler serve the default registry
as JSON. /health answers 503 only when unhealthy, /ready until ready.
*/
package metrics
