package types

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random identifier for zones and changes. Dashes are
// stripped so the id can be used as a single URL path segment.
func NewID() string {
	return compactID(uuid.New())
}

// NameID returns a stable identifier derived from a zone origin, used for
// zone files that carry no $ZONEID metadata
func NameID(origin string) string {
	return compactID(uuid.NewSHA1(uuid.NameSpaceDNS, []byte(strings.ToLower(origin))))
}

func compactID(u uuid.UUID) string {
	return strings.ToUpper(strings.ReplaceAll(u.String(), "-", ""))
}
