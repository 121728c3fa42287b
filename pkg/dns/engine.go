package dns

import (
	"regexp"
	"strings"

	"github.com/cuemby/zoned/pkg/geo"
	"github.com/cuemby/zoned/pkg/log"
	"github.com/cuemby/zoned/pkg/metrics"
	"github.com/cuemby/zoned/pkg/types"
	"github.com/cuemby/zoned/pkg/zonefile"
	"github.com/miekg/dns"
)

// DefaultMaxRedirects caps how many CNAME hops a single question may follow
const DefaultMaxRedirects = 10

var hostLabel = regexp.MustCompile(`^[-\w]+$`)

// ZoneSource finds the zone that is authoritative for a name
type ZoneSource interface {
	FindZone(qname string) (*types.Zone, bool)
}

// Response is the outcome of resolving one question
type Response struct {
	Rcode  int
	Answer []dns.RR
	Ns     []dns.RR
	Zone   string // origin of the answering zone, empty when refused

	// ClientSpecific is set when the client location picked the answer
	// among several candidates
	ClientSpecific bool
}

// Engine answers questions from the loaded zones
type Engine struct {
	zones        ZoneSource
	router       *geo.Router
	maxRedirects int
}

// NewEngine creates an engine over zones. router may be nil to disable
// geographic ranking; maxRedirects <= 0 selects DefaultMaxRedirects.
func NewEngine(zones ZoneSource, router *geo.Router, maxRedirects int) *Engine {
	if maxRedirects <= 0 {
		maxRedirects = DefaultMaxRedirects
	}
	return &Engine{
		zones:        zones,
		router:       router,
		maxRedirects: maxRedirects,
	}
}

// stepKind tags the result of scanning a zone for one name
type stepKind int

const (
	stepUnresolved stepKind = iota
	stepResolved
	stepRedirect
)

type step struct {
	kind     stepKind
	answers  []dns.RR
	next     string // stepRedirect
	byClient bool
}

// Resolve answers q. client is the location of the querying resolver, or
// nil when it is unknown. Resolve never fails: every outcome is expressed
// as a response code.
func (e *Engine) Resolve(q types.Question, client *types.Location) *Response {
	qname := zonefile.Fqdn(q.Name)

	zone, ok := e.zones.FindZone(qname)
	if !ok {
		log.Logger.Debug().
			Str("component", "dns.engine").
			Str("query", qname).
			Msg("No zone for query, refusing")
		return &Response{Rcode: dns.RcodeRefused}
	}

	resp := &Response{Zone: zone.Origin}
	name := qname
	resolved := false

	for hops := 0; ; hops++ {
		st := e.scan(zone, name, q, client)
		resp.Answer = append(resp.Answer, st.answers...)
		resp.ClientSpecific = resp.ClientSpecific || st.byClient

		if st.kind != stepRedirect {
			resolved = len(resp.Answer) > 0
			break
		}
		if hops >= e.maxRedirects {
			log.Logger.Warn().
				Str("component", "dns.engine").
				Str("query", qname).
				Int("max_redirects", e.maxRedirects).
				Msg("CNAME chain too long")
			resp.Answer = nil
			resp.ClientSpecific = false
			break
		}
		metrics.CNAMERedirects.Inc()
		name = st.next
	}

	if resolved {
		resp.Rcode = dns.RcodeSuccess
		resp.Ns = e.apexRecords(zone, types.RecordTypeNS)
	} else {
		resp.Rcode = dns.RcodeNameError
		resp.Ns = e.apexRecords(zone, types.RecordTypeSOA)
	}

	log.Logger.Debug().
		Str("component", "dns.engine").
		Str("query", qname).
		Str("type", q.Type).
		Str("zone", zone.Origin).
		Int("answers", len(resp.Answer)).
		Str("rcode", dns.RcodeToString[resp.Rcode]).
		Msg("Resolved")
	return resp
}

// scan makes one pass over the zone looking for name
func (e *Engine) scan(zone *types.Zone, name string, q types.Question, client *types.Location) step {
	var (
		st       step
		ranked   []types.ResourceRecord
		wildcard *types.ResourceRecord
		exact    bool
		rank     = client != nil && e.router.Ranks(q.Type)
	)

	for i := range zone.Records {
		rr := &zone.Records[i]
		owner := zonefile.Expand(rr.Name, zone.Origin)

		if strings.EqualFold(owner, name) {
			if sameClass(rr.Class, q.Class) && strings.EqualFold(string(rr.Type), q.Type) {
				exact = true
				if rank {
					ranked = append(ranked, *rr)
					continue
				}
				st.appendRR(*rr, zone.Origin, owner)
				continue
			}
			if rr.Type == types.RecordTypeCNAME && strings.EqualFold(q.Type, string(types.RecordTypeA)) {
				st.appendRR(*rr, zone.Origin, owner)
				st.kind = stepRedirect
				st.next = zonefile.Expand(rr.Address, zone.Origin)
				return st
			}
			continue
		}

		if wildcard == nil && rr.IsWildcard() &&
			sameClass(rr.Class, q.Class) && strings.EqualFold(string(rr.Type), q.Type) &&
			wildcardMatch(owner, name) {
			wildcard = rr
		}
	}

	if len(ranked) > 0 {
		addrs := make([]string, len(ranked))
		for i, rr := range ranked {
			addrs[i] = rr.Address
		}
		best, miles, located := e.router.Nearest(*client, addrs)
		if located {
			metrics.GeoSelections.Inc()
			st.byClient = len(ranked) > 1
		}
		log.Logger.Debug().
			Str("component", "dns.engine").
			Str("query", name).
			Str("address", addrs[best]).
			Float64("miles", miles).
			Bool("located", located).
			Msg("Geo selected answer")
		st.appendRR(ranked[best], zone.Origin, zonefile.Expand(ranked[best].Name, zone.Origin))
	}

	// the answer carries the queried name, not the pattern
	if !exact && wildcard != nil {
		st.appendRR(*wildcard, zone.Origin, name)
	}

	if len(st.answers) > 0 {
		st.kind = stepResolved
	}
	return st
}

func (st *step) appendRR(rr types.ResourceRecord, origin, owner string) {
	out, err := ToRR(rr, origin, owner)
	if err != nil {
		log.Logger.Warn().
			Str("component", "dns.engine").
			Str("record", rr.RawText).
			Err(err).
			Msg("Skipping record that cannot be encoded")
		return
	}
	st.answers = append(st.answers, out)
}

// apexRecords returns the zone's records of type t owned by the origin
func (e *Engine) apexRecords(zone *types.Zone, t types.RecordType) []dns.RR {
	var out []dns.RR
	for _, rr := range zone.Records {
		if rr.Type != t {
			continue
		}
		owner := zonefile.Expand(rr.Name, zone.Origin)
		if !strings.EqualFold(owner, zone.Origin) {
			continue
		}
		if r, err := ToRR(rr, zone.Origin, owner); err == nil {
			out = append(out, r)
		}
	}
	return out
}

func sameClass(recordClass, questionClass string) bool {
	if recordClass == "" {
		recordClass = types.DefaultClass
	}
	if questionClass == "" {
		questionClass = types.DefaultClass
	}
	return strings.EqualFold(recordClass, questionClass)
}

// wildcardMatch reports whether name is matched by pattern, where the
// leading "*" label of pattern stands for exactly one host label
func wildcardMatch(pattern, name string) bool {
	suffix := strings.TrimPrefix(pattern, "*")
	if len(suffix) == len(pattern) || len(name) <= len(suffix) {
		return false
	}
	if !strings.EqualFold(name[len(name)-len(suffix):], suffix) {
		return false
	}
	return hostLabel.MatchString(name[:len(name)-len(suffix)])
}
