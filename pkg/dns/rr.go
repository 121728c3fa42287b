package dns

import (
	"fmt"
	"net"
	"strings"

	"github.com/cuemby/zoned/pkg/types"
	"github.com/cuemby/zoned/pkg/zonefile"
	"github.com/miekg/dns"
)

// ToRR converts a stored record into a wire record owned by owner. Names and
// targets are expanded against origin.
func ToRR(rr types.ResourceRecord, origin, owner string) (dns.RR, error) {
	class, ok := dns.StringToClass[strings.ToUpper(rr.Class)]
	if !ok {
		class = dns.ClassINET
	}
	hdr := func(t uint16) dns.RR_Header {
		return dns.RR_Header{
			Name:   dns.Fqdn(owner),
			Rrtype: t,
			Class:  class,
			Ttl:    rr.TTL,
		}
	}
	target := func() string {
		return dns.Fqdn(zonefile.Expand(rr.Address, origin))
	}

	switch rr.Type {
	case types.RecordTypeA:
		ip := net.ParseIP(rr.Address).To4()
		if ip == nil {
			return nil, fmt.Errorf("invalid A address %q", rr.Address)
		}
		return &dns.A{Hdr: hdr(dns.TypeA), A: ip}, nil

	case types.RecordTypeAAAA:
		ip := net.ParseIP(rr.Address)
		if ip == nil {
			return nil, fmt.Errorf("invalid AAAA address %q", rr.Address)
		}
		return &dns.AAAA{Hdr: hdr(dns.TypeAAAA), AAAA: ip}, nil

	case types.RecordTypeCNAME:
		return &dns.CNAME{Hdr: hdr(dns.TypeCNAME), Target: target()}, nil

	case types.RecordTypeNS:
		return &dns.NS{Hdr: hdr(dns.TypeNS), Ns: target()}, nil

	case types.RecordTypePTR:
		return &dns.PTR{Hdr: hdr(dns.TypePTR), Ptr: target()}, nil

	case types.RecordTypeMX:
		return &dns.MX{Hdr: hdr(dns.TypeMX), Preference: rr.Priority, Mx: target()}, nil

	case types.RecordTypeTXT:
		return &dns.TXT{Hdr: hdr(dns.TypeTXT), Txt: characterStrings(rr.Address)}, nil

	case types.RecordTypeHINFO:
		s := append(characterStrings(rr.Address), "", "")
		return &dns.HINFO{Hdr: hdr(dns.TypeHINFO), Cpu: s[0], Os: s[1]}, nil

	case types.RecordTypeSOA:
		v := make([]uint32, 5)
		copy(v, rr.Values)
		return &dns.SOA{
			Hdr:     hdr(dns.TypeSOA),
			Ns:      dns.Fqdn(zonefile.Expand(rr.NS, origin)),
			Mbox:    dns.Fqdn(zonefile.Expand(rr.Email, origin)),
			Serial:  v[0],
			Refresh: v[1],
			Retry:   v[2],
			Expire:  v[3],
			Minttl:  v[4],
		}, nil
	}
	return nil, fmt.Errorf("unsupported record type %s", rr.Type)
}

// characterStrings splits zone file text into DNS character-strings: quoted
// runs are unquoted and unescaped, bare words stand alone
func characterStrings(s string) []string {
	var (
		out     []string
		b       strings.Builder
		inQuote bool
		escaped bool
		pending bool
	)
	flush := func() {
		if pending {
			out = append(out, b.String())
			b.Reset()
			pending = false
		}
	}
	for _, c := range s {
		switch {
		case escaped:
			b.WriteRune(c)
			escaped = false
		case c == '\\' && inQuote:
			escaped = true
		case c == '"':
			if inQuote {
				inQuote = false
				continue
			}
			flush()
			inQuote, pending = true, true
		case c == ' ' && !inQuote:
			flush()
		default:
			b.WriteRune(c)
			pending = true
		}
	}
	flush()
	return out
}
