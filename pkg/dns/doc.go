/*
Package dns provides the authoritative DNS server for zones loaded by zoned.

The package has two layers: the Engine, which answers a single question from
the loaded zones, and the Server, which decodes wire messages on UDP and TCP,
locates the client and hands each question to the Engine.

# Architecture

	┌──────────────────────────────────────────────────────────┐
	│                       DNS Server                         │
	│  • Listens on :53, UDP and TCP                           │
	│  • Client location from EDNS client subnet or peer addr  │
	│  • Per-query deadline, truncation for UDP                │
	└────────┬─────────────────────────────────────────────────┘
	         │ Question{name, class, type}, *Location
	         ▼
	┌──────────────────────────────────────────────────────────┐
	│                        Engine                            │
	│  zone lookup → candidate scan → ranking → authority      │
	└────────┬───────────────────┬─────────────────────────────┘
	         ▼                   ▼
	    ZoneSource           geo.Router
	 (zonestore.Store)    (haversine ranking)

# Resolution

For each question the Engine:

 1. Finds the zone with the longest origin that is a suffix of the query
    name. No zone means REFUSED with empty sections.
 2. Scans the zone's records once, collecting exact matches (name, class
    and type), the first matching wildcard, and a CNAME at the name when
    the question is for an A record.
 3. Follows a CNAME by emitting it and scanning again for its target, up to
    a fixed number of hops. A chain longer than that is unresolved.
 4. Ranks exact matches by distance to the client when geographic ranking
    is enabled for the type; only the closest is answered and the first
    record wins a tie. Otherwise all exact matches are answered.
 5. Falls back to the wildcard, answering with the queried name in place of
    the pattern.

A resolved question carries the zone's apex NS records in the authority
section with NOERROR. An unresolved one carries the SOA with NXDOMAIN.

# Example

	store := zonestore.New("zones", nil)
	if err := store.LoadAll(); err != nil {
		return err
	}

	engine := dns.NewEngine(store, router, dns.DefaultMaxRedirects)
	srv := dns.NewServer(engine, router, &dns.Config{ListenAddr: ":53"})
	return srv.Run(ctx)

# Metrics

	zoned_queries_total{qtype,rcode}
	zoned_query_duration_seconds
	zoned_cname_redirects_total
	zoned_geo_selections_total
*/
package dns
