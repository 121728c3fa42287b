package zonestore

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/cuemby/zoned/pkg/types"
	"github.com/cuemby/zoned/pkg/zonefile"
)

// BuildRecord validates a record change against the zone with the given
// origin and returns the record as it will be stored: owner and targets
// relative to the origin where possible. SOA records cannot be built.
func BuildRecord(origin, name, rtype string, ttl uint32, value string) (types.ResourceRecord, error) {
	var rr types.ResourceRecord

	t, ok := types.ParseRecordType(strings.ToUpper(strings.TrimSpace(rtype)))
	if !ok || t == types.RecordTypeSOA {
		return rr, invalidRecord("unsupported record type %q", rtype)
	}
	if strings.ContainsAny(name, "\r\n") || strings.ContainsAny(value, "\r\n") {
		return rr, invalidRecord("line breaks are not allowed")
	}

	owner := zonefile.Relativize(strings.TrimSpace(name), origin)
	if owner == "" {
		owner = "@"
	}
	if !zonefile.ValidName(owner) {
		return rr, invalidRecord("bad owner name %q", name)
	}
	if strings.HasSuffix(owner, ".") {
		return rr, invalidRecord("%s is outside zone %s", name, origin)
	}

	rr = types.ResourceRecord{
		Name:  owner,
		Type:  t,
		Class: types.DefaultClass,
		TTL:   ttl,
	}

	value = strings.TrimSpace(value)
	switch t {
	case types.RecordTypeA, types.RecordTypeAAAA:
		addr, err := netip.ParseAddr(value)
		if err != nil || (t == types.RecordTypeA && !addr.Is4()) || (t == types.RecordTypeAAAA && !addr.Is6()) {
			return rr, invalidRecord("bad %s address %q", t, value)
		}
		rr.Address = addr.String()

	case types.RecordTypeNS, types.RecordTypeCNAME, types.RecordTypePTR:
		target := zonefile.Relativize(value, origin)
		if value == "" || !zonefile.ValidName(target) {
			return rr, invalidRecord("bad %s target %q", t, value)
		}
		rr.Address = target

	case types.RecordTypeMX:
		fields := strings.Fields(value)
		if len(fields) != 2 {
			return rr, invalidRecord("MX value must be \"priority target\", got %q", value)
		}
		prio, err := strconv.ParseUint(fields[0], 10, 16)
		if err != nil {
			return rr, invalidRecord("bad MX priority %q", fields[0])
		}
		target := zonefile.Relativize(fields[1], origin)
		if !zonefile.ValidName(target) {
			return rr, invalidRecord("bad MX target %q", fields[1])
		}
		rr.Priority = uint16(prio)
		rr.Address = target

	case types.RecordTypeTXT:
		if value == "" {
			return rr, invalidRecord("empty TXT value")
		}
		if !strings.HasPrefix(value, `"`) {
			value = quote(value)
		}
		rr.Address = value

	default:
		if value == "" {
			return rr, invalidRecord("empty %s value", t)
		}
		rr.Address = value
	}

	// whatever is stored must read back identically
	lines, err := zonefile.ParseLines("$ORIGIN "+origin+"\n"+zonefile.FormatRecord(rr), "change")
	if err != nil || len(lines) != 2 || lines[1].Kind != zonefile.LineRecord || lines[1].Record.Address != rr.Address {
		return rr, invalidRecord("%s value %q cannot be stored", t, value)
	}
	return rr, nil
}

func invalidRecord(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), types.ErrInvalidRecord)
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// findRecord returns the index of the first record in zone equal to want
// once names are expanded, or -1
func findRecord(zone *types.Zone, want types.ResourceRecord) int {
	wantName := zonefile.Expand(want.Name, zone.Origin)
	for i, rr := range zone.Records {
		if rr.Type != want.Type || !strings.EqualFold(zonefile.Expand(rr.Name, zone.Origin), wantName) {
			continue
		}
		if sameData(rr, want, zone.Origin) {
			return i
		}
	}
	return -1
}

func sameData(a, b types.ResourceRecord, origin string) bool {
	switch a.Type {
	case types.RecordTypeA, types.RecordTypeAAAA:
		x, errX := netip.ParseAddr(a.Address)
		y, errY := netip.ParseAddr(b.Address)
		return errX == nil && errY == nil && x == y
	case types.RecordTypeMX:
		if a.Priority != b.Priority {
			return false
		}
		fallthrough
	case types.RecordTypeNS, types.RecordTypeCNAME, types.RecordTypePTR:
		return strings.EqualFold(zonefile.Expand(a.Address, origin), zonefile.Expand(b.Address, origin))
	}
	return a.Address == b.Address
}
