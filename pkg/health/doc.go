/*
Package health probes the running DNS server from the outside.

A Monitor runs a Checker on a fixed interval and publishes the outcome to
the health registry in pkg/metrics, so /health reports whether the server
actually answers rather than only whether its listeners are open. The
DNSChecker sends an SOA query for a served zone and is healthy only for an
authoritative NOERROR answer carrying the SOA.

	checker := health.NewDNSChecker("127.0.0.1:53", "example.com.")
	monitor := health.NewMonitor("dns.probe", checker, health.DefaultConfig())
	go monitor.Run(ctx)

A component is marked unhealthy after Retries consecutive failures and
healthy again after the first success. Transitions are logged.
*/
package health
