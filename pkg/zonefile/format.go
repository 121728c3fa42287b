package zonefile

import (
	"fmt"
	"strings"

	"github.com/cuemby/zoned/pkg/types"
)

const unparsedHeader = "; not served, kept as written\n"

var soaFieldNames = []string{"serial", "refresh", "retry", "expire", "minimum"}

// Format renders a zone back to zone file text. Parsing the output yields
// the same records in the same order. Unparsed lines follow the records.
func Format(zone *types.Zone) string {
	var b strings.Builder

	if zone.CallerRef != "" {
		fmt.Fprintf(&b, ";$REF %s\n", zone.CallerRef)
	}
	if zone.ID != "" {
		if zone.Comment != "" {
			fmt.Fprintf(&b, ";$ZONEID %s ; %s\n", zone.ID, oneLine(zone.Comment))
		} else {
			fmt.Fprintf(&b, ";$ZONEID %s\n", zone.ID)
		}
	}
	if zone.UID != "" {
		fmt.Fprintf(&b, ";$UID %s\n", zone.UID)
	}
	if zone.TTL > 0 {
		fmt.Fprintf(&b, "$TTL %d\n", zone.TTL)
	}
	fmt.Fprintf(&b, "$ORIGIN %s\n", zone.Origin)

	for _, rr := range zone.Records {
		b.WriteString(FormatRecord(rr))
	}

	if len(zone.Unparsed) > 0 {
		b.WriteString(unparsedHeader)
		for _, text := range zone.Unparsed {
			b.WriteString(text)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// FormatRecord renders a single record, including the trailing newline
func FormatRecord(rr types.ResourceRecord) string {
	class := rr.Class
	if class == "" {
		class = types.DefaultClass
	}

	switch rr.Type {
	case types.RecordTypeSOA:
		var b strings.Builder
		fmt.Fprintf(&b, "%s %d %s SOA %s %s (\n", rr.Name, rr.TTL, class, rr.NS, rr.Email)
		for i, name := range soaFieldNames {
			var v uint32
			if i < len(rr.Values) {
				v = rr.Values[i]
			}
			value := fmt.Sprint(v)
			if i == len(soaFieldNames)-1 {
				value += ")"
			}
			fmt.Fprintf(&b, "                     %-18s  ; %s\n", value, name)
		}
		return b.String()

	case types.RecordTypeMX:
		return fmt.Sprintf("%-20s %-9d %s MX %d  %s\n", rr.Name, rr.TTL, class, rr.Priority, rr.Address)
	}

	return fmt.Sprintf("%-20s %-9d %s %-6s %s\n", rr.Name, rr.TTL, class, rr.Type, rr.Address)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
