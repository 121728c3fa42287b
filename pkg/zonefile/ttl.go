package zonefile

import (
	"regexp"
	"strconv"
	"strings"
)

var ttlPattern = regexp.MustCompile(`^([0-9]+)([SsMmHhDdWw]?)$`)

var ttlUnits = map[string]uint64{
	"":  1,
	"S": 1,
	"M": 60,
	"H": 3600,
	"D": 86400,
	"W": 604800,
}

// ParseTTL converts a TTL literal to seconds. A bare integer is seconds; the
// suffixes S, M, H, D and W (any case) scale it. Anything else, including
// values that overflow 32 bits, is 0.
func ParseTTL(s string) uint32 {
	m := ttlPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	n, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0
	}
	v := n * ttlUnits[strings.ToUpper(m[2])]
	if v > 1<<32-1 {
		return 0
	}
	return uint32(v)
}

// isTTLLiteral reports whether s looks like a TTL rather than a class
func isTTLLiteral(s string) bool {
	return ttlPattern.MatchString(s)
}

// isClass reports whether s is a record class mnemonic
func isClass(s string) bool {
	switch strings.ToUpper(s) {
	case "IN", "CH", "CHAOS", "HS", "HESIOD":
		return true
	}
	return false
}

// FixTTLClass resolves the optional TTL and class tokens that may precede
// the record type in either order. When the first token is a TTL literal it
// is the TTL and the second (or IN) is the class; otherwise the first token
// (or IN) is the class and the second token (or defaultTTL) is the TTL.
func FixTTLClass(tok1, tok2 string, defaultTTL uint32) (ttl uint32, class string) {
	if tok1 != "" && isTTLLiteral(tok1) {
		class = "IN"
		if tok2 != "" {
			class = strings.ToUpper(tok2)
		}
		return ParseTTL(tok1), class
	}

	class = "IN"
	if tok1 != "" {
		class = strings.ToUpper(tok1)
	}
	if tok2 != "" {
		return ParseTTL(tok2), class
	}
	return defaultTTL, class
}
