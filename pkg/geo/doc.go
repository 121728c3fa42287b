// Package geo provides great-circle distance and GeoIP-based answer
// selection. A Router wraps an optional Locator (a MaxMind City database, a
// static prefix table, or a chain of both) and picks the candidate address
// nearest to the client.
package geo
