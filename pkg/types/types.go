package types

import (
	"sort"
	"strings"
	"time"
)

// RecordType is the DNS type of a resource record as written in a zone file
type RecordType string

const (
	RecordTypeSOA   RecordType = "SOA"
	RecordTypeNS    RecordType = "NS"
	RecordTypeMX    RecordType = "MX"
	RecordTypeA     RecordType = "A"
	RecordTypeAAAA  RecordType = "AAAA"
	RecordTypeCNAME RecordType = "CNAME"
	RecordTypePTR   RecordType = "PTR"
	RecordTypeTXT   RecordType = "TXT"
	RecordTypeHINFO RecordType = "HINFO"
)

// DefaultClass is the record class assumed when a line omits it
const DefaultClass = "IN"

// sortPriority orders records inside a zone. Types not listed sort last.
var sortPriority = map[RecordType]int{
	RecordTypeSOA:   1,
	RecordTypeNS:    2,
	RecordTypeMX:    3,
	RecordTypeA:     4,
	RecordTypeAAAA:  4,
	RecordTypeCNAME: 6,
	RecordTypePTR:   7,
	RecordTypeTXT:   8,
}

// SortPriority returns the position of the type in the zone ordering
func (t RecordType) SortPriority() int {
	if p, ok := sortPriority[t]; ok {
		return p
	}
	return 9
}

// ParseRecordType returns the record type for s (case-insensitive)
func ParseRecordType(s string) (RecordType, bool) {
	t := RecordType(strings.ToUpper(s))
	switch t {
	case RecordTypeSOA, RecordTypeNS, RecordTypeMX, RecordTypeA, RecordTypeAAAA,
		RecordTypeCNAME, RecordTypePTR, RecordTypeTXT, RecordTypeHINFO:
		return t, true
	}
	return "", false
}

// ResourceRecord is a single record as stored in a zone file.
//
// Names and targets are kept verbatim ("@", relative names, wildcards) and
// are only expanded against the zone origin when projected into answers.
// Which optional fields are set depends on Type:
//   - SOA: NS, Email and Values (serial, refresh, retry, expire, minimum)
//   - MX: Priority and Address
//   - everything else: Address
type ResourceRecord struct {
	Name     string     `json:"name" yaml:"name"`
	Type     RecordType `json:"type" yaml:"type"`
	Class    string     `json:"class" yaml:"class"`
	TTL      uint32     `json:"ttl" yaml:"ttl"`
	Address  string     `json:"address,omitempty" yaml:"address,omitempty"`
	Values   []uint32   `json:"values,omitempty" yaml:"values,omitempty"`
	Priority uint16     `json:"priority,omitempty" yaml:"priority,omitempty"`
	NS       string     `json:"ns,omitempty" yaml:"ns,omitempty"`
	Email    string     `json:"email,omitempty" yaml:"email,omitempty"`

	// Position of the record in its source file, for diagnostics
	SourceLine int    `json:"-" yaml:"-"`
	RawText    string `json:"-" yaml:"-"`
}

// IsWildcard reports whether the owner name contains a wildcard label
func (r *ResourceRecord) IsWildcard() bool {
	return strings.Contains(r.Name, "*")
}

// Zone is a parsed zone file
type Zone struct {
	ID           string
	Origin       string // always ends with "."
	TTL          uint32 // $TTL default
	Records      []ResourceRecord
	Unparsed     []string // source lines that are not served, kept as written
	SourceFile   string
	LastModified time.Time
	CallerRef    string
	Comment      string
	UID          string
}

// SOA returns the zone's SOA record
func (z *Zone) SOA() (ResourceRecord, bool) {
	for _, rr := range z.Records {
		if rr.Type == RecordTypeSOA {
			return rr, true
		}
	}
	return ResourceRecord{}, false
}

// SortRecords orders records by type priority, then by name. Records that
// compare equal keep their original order.
func SortRecords(records []ResourceRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		pi, pj := records[i].Type.SortPriority(), records[j].Type.SortPriority()
		if pi != pj {
			return pi < pj
		}
		return records[i].Name < records[j].Name
	})
}

// ChangeType identifies the management operation that produced a change
type ChangeType string

const (
	ChangeCreateHostedZone   ChangeType = "CreateHostedZone"
	ChangeDeleteHostedZone   ChangeType = "DeleteHostedZone"
	ChangeResourceRecordSets ChangeType = "ChangeResourceRecordSets"
)

// ChangeRecord is an immutable journal entry describing one mutation
type ChangeRecord struct {
	ID        string     `json:"id"`
	Zone      string     `json:"zone"`
	Type      ChangeType `json:"type"`
	Payload   []byte     `json:"payload,omitempty"`
	Timestamp string     `json:"timestamp"` // ISO-8601, UTC
}

// Question is one entry of the question section of a decoded query
type Question struct {
	Name  string
	Class string
	Type  string
}

// Location is a geographic position resolved from an IP address
type Location struct {
	Latitude  float64
	Longitude float64
	Country   string
}

// RecordSet groups the values of all records sharing name and type
type RecordSet struct {
	Name   string     `json:"name"`
	Type   RecordType `json:"type"`
	TTL    uint32     `json:"ttl"`
	Values []string   `json:"values"`
}

// RecordSetKey addresses a record set when paging through a zone
type RecordSetKey struct {
	Name string     `json:"name"`
	Type RecordType `json:"type"`
}

// ChangeAction is the operation applied by a RecordChange
type ChangeAction string

const (
	ActionCreate ChangeAction = "CREATE"
	ActionDelete ChangeAction = "DELETE"
)

// RecordChange adds or removes one record value. Name may be relative to
// the zone or fully qualified. MX values are written "priority target".
type RecordChange struct {
	Action ChangeAction `json:"action" yaml:"action"`
	Name   string       `json:"name" yaml:"name"`
	Type   string       `json:"type" yaml:"type"`
	TTL    uint32       `json:"ttl" yaml:"ttl"`
	Value  string       `json:"value" yaml:"value"`
}
