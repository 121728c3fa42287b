package geo

import (
	"net"
	"net/netip"
	"strings"

	"github.com/cuemby/zoned/pkg/types"
)

// Locator resolves an IP address to a geographic location
type Locator interface {
	Locate(ip net.IP) (types.Location, bool)
}

// DefaultRankTypes are the record types ranked by distance when no other
// set is configured
var DefaultRankTypes = []string{"A"}

// Router picks the answer closest to the client among equally-qualified
// candidates. A Router without a Locator is disabled.
type Router struct {
	locator   Locator
	rankTypes map[string]bool
}

// NewRouter creates a router over locator. rankTypes lists the record types
// eligible for ranking; SOA is never ranked.
func NewRouter(locator Locator, rankTypes []string) *Router {
	if len(rankTypes) == 0 {
		rankTypes = DefaultRankTypes
	}
	r := &Router{
		locator:   locator,
		rankTypes: make(map[string]bool, len(rankTypes)),
	}
	for _, t := range rankTypes {
		t = strings.ToUpper(t)
		if t == string(types.RecordTypeSOA) {
			continue
		}
		r.rankTypes[t] = true
	}
	return r
}

// Enabled reports whether a GeoIP source is available
func (r *Router) Enabled() bool {
	return r != nil && r.locator != nil
}

// Ranks reports whether answers of the given type are ranked by distance
func (r *Router) Ranks(recordType string) bool {
	return r.Enabled() && r.rankTypes[strings.ToUpper(recordType)]
}

// Locate returns the location of an address in text form
func (r *Router) Locate(addr string) (types.Location, bool) {
	if !r.Enabled() {
		return types.Location{}, false
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return types.Location{}, false
	}
	return r.locator.Locate(ip)
}

// LocateIP returns the location of ip
func (r *Router) LocateIP(ip net.IP) (types.Location, bool) {
	if !r.Enabled() || ip == nil {
		return types.Location{}, false
	}
	return r.locator.Locate(ip)
}

// Nearest returns the index of the candidate address closest to client and
// its distance in miles. Only a strictly shorter distance replaces the
// current best, so ties keep the first candidate. Candidates that cannot be
// located are skipped; if none can, the first candidate is returned with
// located set to false.
func (r *Router) Nearest(client types.Location, candidates []string) (index int, miles float64, located bool) {
	for i, addr := range candidates {
		loc, ok := r.Locate(addr)
		if !ok {
			continue
		}
		d := Haversine(client.Latitude, client.Longitude, loc.Latitude, loc.Longitude).Miles
		if !located || d < miles {
			index, miles, located = i, d, true
		}
	}
	return index, miles, located
}

// StaticEntry pins a network to a fixed location
type StaticEntry struct {
	Prefix   netip.Prefix
	Location types.Location
}

// StaticLocator resolves addresses from a fixed table. The most specific
// matching prefix wins.
type StaticLocator struct {
	entries []StaticEntry
}

// NewStaticLocator creates a locator from a table of prefixes
func NewStaticLocator(entries []StaticEntry) *StaticLocator {
	return &StaticLocator{entries: entries}
}

// Locate implements Locator
func (s *StaticLocator) Locate(ip net.IP) (types.Location, bool) {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return types.Location{}, false
	}
	addr = addr.Unmap()

	var (
		best  types.Location
		bits  = -1
		found bool
	)
	for _, e := range s.entries {
		if e.Prefix.Contains(addr) && e.Prefix.Bits() > bits {
			best, bits, found = e.Location, e.Prefix.Bits(), true
		}
	}
	return best, found
}

// ChainLocator asks each locator in turn and returns the first hit
type ChainLocator []Locator

// Locate implements Locator
func (c ChainLocator) Locate(ip net.IP) (types.Location, bool) {
	for _, l := range c {
		if loc, ok := l.Locate(ip); ok {
			return loc, true
		}
	}
	return types.Location{}, false
}
