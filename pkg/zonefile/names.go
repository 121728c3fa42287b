package zonefile

import (
	"regexp"
	"strings"
)

var (
	ipv4Pattern = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`)
	namePattern = regexp.MustCompile(`^(\*|\*\.[-\w.]+|[-\w]+(\.[-\w]+)*\.?|\.)$`)
)

// Expand projects a stored name or target into a fully-qualified name:
// dotted quads are returned unchanged, "@" is the origin, names ending in
// "." are absolute and anything else is relative to origin.
func Expand(value, origin string) string {
	switch {
	case ipv4Pattern.MatchString(value):
		return value
	case value == "@" || value == "":
		return origin
	case strings.HasSuffix(value, "."):
		return value
	}
	return value + "." + origin
}

// Relativize strips the origin from name so that it can be stored the way
// zone files are written. The apex becomes "@". Names outside the zone are
// returned unchanged.
func Relativize(name, origin string) string {
	bare := strings.TrimSuffix(origin, ".")
	if strings.EqualFold(name, origin) || strings.EqualFold(name, bare) {
		return "@"
	}
	for _, suffix := range []string{"." + origin, "." + bare} {
		if len(name) > len(suffix) && strings.EqualFold(name[len(name)-len(suffix):], suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}

// Fqdn appends the root label to name if it is missing
func Fqdn(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}

// ValidName reports whether s can be used as an owner name or target
func ValidName(s string) bool {
	return s == "@" || namePattern.MatchString(s)
}
