package zonefile

import (
	"fmt"
	"net/netip"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/cuemby/zoned/pkg/types"
)

// LineKind tags the entries produced by ParseLines
type LineKind int

const (
	// LineIgnored is a line none of the supported shapes matched
	LineIgnored LineKind = iota
	// LineOrigin is a $ORIGIN directive
	LineOrigin
	// LineTTL is a $TTL directive
	LineTTL
	// LineRecord is a resource record
	LineRecord
)

func (k LineKind) String() string {
	switch k {
	case LineOrigin:
		return "origin"
	case LineTTL:
		return "ttl"
	case LineRecord:
		return "record"
	}
	return "ignored"
}

// ParsedLine is one logical entry of a zone file. Multi-line records
// (parenthesized continuations) are folded into a single entry that starts
// at Line.
type ParsedLine struct {
	Kind   LineKind
	Line   int
	Text   string
	Raw    string               // source lines; an indented ignored entry gets its owner written in front
	Origin string               // LineOrigin
	TTL    uint32               // LineTTL
	Record types.ResourceRecord // LineRecord
}

// ParseError reports a zone file that cannot be loaded
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Msg)
}

var (
	refPattern    = regexp.MustCompile(`(?m)^\s*;?\s*\$REF\s+([^\s;]+)`)
	uidPattern    = regexp.MustCompile(`(?m)^\s*;?\s*\$UID\s+([^\s;]+)`)
	zoneIDPattern = regexp.MustCompile(`(?m)^\s*;?\s*\$ZONEID\s+([^\s;]+)[ \t]*(?:;[ \t]*(.*))?$`)
)

// Parse parses zone file text into a Zone. filename names the source for
// error messages and supplies the origin when the text has no $ORIGIN.
//
// Lines that match none of the supported record shapes are not served but
// are kept in Zone.Unparsed so that Format writes them back.
func Parse(text, filename string) (*types.Zone, error) {
	lines, err := ParseLines(text, filename)
	if err != nil {
		return nil, err
	}

	zone := &types.Zone{SourceFile: filename}
	zone.CallerRef, zone.ID, zone.Comment, zone.UID = readMetadata(text)

	for _, pl := range lines {
		switch pl.Kind {
		case LineOrigin:
			zone.Origin = pl.Origin
		case LineTTL:
			zone.TTL = pl.TTL
		case LineRecord:
			zone.Records = append(zone.Records, pl.Record)
		case LineIgnored:
			zone.Unparsed = append(zone.Unparsed, pl.Raw)
		}
	}

	if zone.Origin == "" {
		if len(zone.Records) == 0 {
			return nil, &ParseError{File: filename, Msg: "no $ORIGIN and no parseable records"}
		}
		zone.Origin = strings.TrimSuffix(filepath.Base(filename), ".zone")
	}
	zone.Origin = Fqdn(zone.Origin)

	if zone.ID == "" {
		zone.ID = types.NameID(zone.Origin)
	}

	types.SortRecords(zone.Records)
	return zone, nil
}

// ParseLines tokenizes zone file text into logical entries. Comments are
// stripped, tabs folded and parenthesized continuations joined before each
// entry is matched against the directive and record shapes.
func ParseLines(text, filename string) ([]ParsedLine, error) {
	logical, err := joinLines(text, filename)
	if err != nil {
		return nil, err
	}

	p := &lineParser{owner: "@", lastName: "@"}
	var out []ParsedLine
	for _, ll := range logical {
		pl, err := p.parse(ll)
		if err != nil {
			return nil, &ParseError{File: filename, Line: ll.line, Msg: err.Error()}
		}
		out = append(out, pl)
	}
	return out, nil
}

func readMetadata(text string) (ref, id, comment, uid string) {
	if m := refPattern.FindStringSubmatch(text); m != nil {
		ref = m[1]
	}
	if m := uidPattern.FindStringSubmatch(text); m != nil {
		uid = m[1]
	}
	if m := zoneIDPattern.FindStringSubmatch(text); m != nil {
		id = m[1]
		comment = strings.TrimSpace(m[2])
	}
	return
}

type logicalLine struct {
	line   int
	text   string
	raw    string
	indent bool // first physical line started with whitespace
}

// joinLines strips comments and folds parenthesized continuations into
// logical lines. Parentheses themselves are dropped.
func joinLines(text, filename string) ([]logicalLine, error) {
	var (
		out   []logicalLine
		cur   *logicalLine
		depth int
		buf   strings.Builder
		raws  []string
	)

	for i, raw := range strings.Split(text, "\n") {
		raw = strings.TrimRight(raw, "\r")
		stripped, opens, closes := stripLine(raw)

		if cur == nil {
			if strings.TrimSpace(stripped) == "" {
				continue
			}
			cur = &logicalLine{
				line:   i + 1,
				indent: len(raw) > 0 && (raw[0] == ' ' || raw[0] == '\t'),
			}
			buf.Reset()
			raws = raws[:0]
		}

		raws = append(raws, raw)
		buf.WriteString(" ")
		buf.WriteString(stripped)
		depth += opens - closes
		if depth < 0 {
			return nil, &ParseError{File: filename, Line: i + 1, Msg: "unbalanced ')'"}
		}
		if depth == 0 {
			cur.text = strings.Join(strings.Fields(buf.String()), " ")
			cur.raw = strings.Join(raws, "\n")
			out = append(out, *cur)
			cur = nil
		}
	}

	if cur != nil {
		return nil, &ParseError{File: filename, Line: cur.line, Msg: "unterminated '('"}
	}
	return out, nil
}

// stripLine removes a trailing comment, folds tabs and drops parentheses
// that are outside quoted strings, returning how many of each it removed
func stripLine(raw string) (string, int, int) {
	var (
		b       strings.Builder
		inQuote bool
		escaped bool
		opens   int
		closes  int
	)
	for _, c := range raw {
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inQuote:
			escaped = true
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == ';':
			return b.String(), opens, closes
		case c == '(':
			opens++
			c = ' '
		case c == ')':
			closes++
			c = ' '
		case c == '\t':
			c = ' '
		}
		b.WriteRune(c)
	}
	return b.String(), opens, closes
}

// tokenize splits a logical line on spaces, keeping quoted strings whole
func tokenize(s string) []string {
	var (
		tokens  []string
		b       strings.Builder
		inQuote bool
		escaped bool
	)
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, c := range s {
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inQuote:
			escaped = true
		case c == '"':
			inQuote = !inQuote
		case c == ' ' && !inQuote:
			flush()
			continue
		}
		b.WriteRune(c)
	}
	flush()
	return tokens
}

// lineParser carries the state that later lines depend on
type lineParser struct {
	defaultTTL uint32
	owner      string
	lastName   string // first token of the last unindented line
}

func (p *lineParser) parse(ll logicalLine) (ParsedLine, error) {
	pl := ParsedLine{Kind: LineIgnored, Line: ll.line, Text: ll.text, Raw: ll.raw}
	tokens := tokenize(ll.text)
	if len(tokens) == 0 {
		return pl, nil
	}

	if strings.HasPrefix(tokens[0], "$") {
		return p.parseDirective(pl, tokens)
	}

	owner := p.lastName
	if !ll.indent {
		p.lastName = tokens[0]
	}

	rr, ok := p.parseRecord(tokens, ll.indent)
	if !ok {
		if ll.indent {
			pl.Raw = owner + " " + strings.TrimLeft(ll.raw, " \t")
		}
		return pl, nil
	}
	rr.SourceLine = ll.line
	rr.RawText = ll.text
	p.owner = rr.Name

	pl.Kind = LineRecord
	pl.Record = rr
	return pl, nil
}

func (p *lineParser) parseDirective(pl ParsedLine, tokens []string) (ParsedLine, error) {
	switch strings.ToUpper(tokens[0]) {
	case "$ORIGIN":
		if len(tokens) < 2 || !ValidName(tokens[1]) || tokens[1] == "@" {
			return pl, fmt.Errorf("malformed $ORIGIN directive")
		}
		pl.Kind = LineOrigin
		pl.Origin = Fqdn(tokens[1])
	case "$TTL":
		if len(tokens) < 2 {
			return pl, fmt.Errorf("malformed $TTL directive")
		}
		pl.Kind = LineTTL
		pl.TTL = ParseTTL(tokens[1])
		p.defaultTTL = pl.TTL
	}
	return pl, nil
}

// parseRecord matches "name [ttl] [class] TYPE rdata". The owner is taken
// from the previous record when the line is indented.
func (p *lineParser) parseRecord(tokens []string, indent bool) (types.ResourceRecord, bool) {
	var rr types.ResourceRecord

	if indent {
		rr.Name = p.owner
	} else {
		rr.Name = tokens[0]
		tokens = tokens[1:]
		if !ValidName(rr.Name) {
			return rr, false
		}
	}

	var ttlClass []string
	for len(tokens) > 0 && len(ttlClass) < 2 && (isTTLLiteral(tokens[0]) || isClass(tokens[0])) {
		ttlClass = append(ttlClass, tokens[0])
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return rr, false
	}
	ttlClass = append(ttlClass, "", "")

	t, ok := types.ParseRecordType(tokens[0])
	if !ok {
		return rr, false
	}
	rr.Type = t
	rr.TTL, rr.Class = FixTTLClass(ttlClass[0], ttlClass[1], p.defaultTTL)

	if !parseRData(&rr, tokens[1:]) {
		return rr, false
	}
	return rr, true
}

func parseRData(rr *types.ResourceRecord, rdata []string) bool {
	switch rr.Type {
	case types.RecordTypeSOA:
		if len(rdata) != 7 || !ValidName(rdata[0]) || !ValidName(rdata[1]) {
			return false
		}
		rr.NS, rr.Email = rdata[0], rdata[1]
		rr.Values = make([]uint32, 5)
		for i, v := range rdata[2:] {
			rr.Values[i] = ParseTTL(v)
		}

	case types.RecordTypeMX:
		if len(rdata) != 2 || !ValidName(rdata[1]) {
			return false
		}
		prio, err := strconv.ParseUint(rdata[0], 10, 16)
		if err != nil {
			return false
		}
		rr.Priority = uint16(prio)
		rr.Address = rdata[1]

	case types.RecordTypeNS, types.RecordTypeCNAME, types.RecordTypePTR:
		if len(rdata) != 1 || !ValidName(rdata[0]) {
			return false
		}
		rr.Address = rdata[0]

	case types.RecordTypeTXT, types.RecordTypeHINFO:
		if len(rdata) == 0 {
			return false
		}
		rr.Address = strings.Join(rdata, " ")

	case types.RecordTypeAAAA:
		if len(rdata) != 1 {
			return false
		}
		addr, err := netip.ParseAddr(rdata[0])
		if err != nil || !addr.Is6() {
			return false
		}
		rr.Address = rdata[0]

	case types.RecordTypeA:
		if len(rdata) != 1 {
			return false
		}
		addr, err := netip.ParseAddr(rdata[0])
		if err != nil || !addr.Is4() {
			return false
		}
		rr.Address = rdata[0]

	default:
		return false
	}
	return true
}
