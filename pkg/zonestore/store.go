package zonestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cuemby/zoned/pkg/events"
	"github.com/cuemby/zoned/pkg/log"
	"github.com/cuemby/zoned/pkg/metrics"
	"github.com/cuemby/zoned/pkg/types"
	"github.com/cuemby/zoned/pkg/zonefile"
)

const (
	zoneExt    = ".zone"
	deletedDir = "deleted"

	// DefaultTTL is written into zones created through the store
	DefaultTTL = 86400
)

// DefaultNameServers are the placeholder NS targets of a newly created zone,
// relative to its origin
var DefaultNameServers = []string{"ns1", "ns2"}

// Recorder persists one change entry and returns its id
type Recorder interface {
	Record(zone string, changeType types.ChangeType, payload []byte) (string, error)
}

// Store holds every loaded zone keyed by origin. Readers get immutable
// *types.Zone values; mutations build a new Zone and swap it in.
type Store struct {
	dir     string
	journal Recorder

	mu    sync.RWMutex
	zones map[string]*types.Zone // lowercased origin
	order []string               // origins in load order

	// writeMu serializes read-modify-write of zone files
	writeMu sync.Mutex

	events *events.Broker
}

// New creates a store backed by the zone files in dir. journal may be nil,
// in which case mutations are not recorded.
func New(dir string, journal Recorder) *Store {
	return &Store{
		dir:     dir,
		journal: journal,
		zones:   make(map[string]*types.Zone),
	}
}

// SetEvents makes the store publish zone events to broker. It must be
// called before the store is used.
func (s *Store) SetEvents(broker *events.Broker) {
	s.events = broker
}

// Dir returns the zones directory
func (s *Store) Dir() string {
	return s.dir
}

// LoadAll parses every *.zone file in the zones directory. Files that fail
// to parse are logged and skipped; only an unreadable directory is an error.
func (s *Store) LoadAll() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return types.Internal("create zones directory", err)
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return types.Internal("read zones directory", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !isZoneFile(entry.Name()) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if _, err := s.loadFile(path); err != nil {
			metrics.ZoneLoadErrors.Inc()
			log.Logger.Warn().
				Str("component", "zonestore").
				Str("file", path).
				Err(err).
				Msg("Skipping zone file")
			continue
		}
		loaded++
	}

	zones, records := s.Stats()
	metrics.ZonesLoaded.Set(float64(zones))
	metrics.RecordsLoaded.Set(float64(records))
	metrics.SetZoneStats(s.Freshness)
	metrics.RegisterComponent(metrics.ComponentZoneStore, true, fmt.Sprintf("%d zones", zones))
	log.Logger.Info().
		Str("component", "zonestore").
		Str("dir", s.dir).
		Int("zones", loaded).
		Int("records", records).
		Msg("Zones loaded")
	return nil
}

// LoadFile parses a single zone file and publishes it, replacing the zone
// previously loaded from the same file
func (s *Store) LoadFile(path string) (*types.Zone, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.loadFile(path)
}

func (s *Store) loadFile(path string) (*types.Zone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.Internal("read zone file", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, types.Internal("stat zone file", err)
	}

	zone, err := zonefile.Parse(string(data), path)
	if err != nil {
		return nil, err
	}
	zone.LastModified = info.ModTime()

	if err := s.publish(zone); err != nil {
		return nil, err
	}
	s.emit(events.EventZoneLoaded, zone.Origin, path, map[string]string{"id": zone.ID})
	return zone, nil
}

// unloadFile drops the zone that was loaded from path, if any
func (s *Store) unloadFile(path string) (*types.Zone, bool) {
	s.mu.Lock()
	var removed *types.Zone
	for key, zone := range s.zones {
		if zone.SourceFile == path {
			s.removeLocked(key)
			removed = zone
			break
		}
	}
	s.mu.Unlock()

	if removed == nil {
		return nil, false
	}
	s.emit(events.EventZoneUnloaded, removed.Origin, path, map[string]string{"id": removed.ID})
	return removed, true
}

func (s *Store) publish(zone *types.Zone) error {
	key := strings.ToLower(zone.Origin)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.zones[key]; ok && existing.SourceFile != zone.SourceFile {
		return fmt.Errorf("origin %s already loaded from %s: %w", zone.Origin, existing.SourceFile, types.ErrAlreadyExists)
	}

	// the file may have been edited to declare a different origin
	for k, existing := range s.zones {
		if k != key && existing.SourceFile == zone.SourceFile {
			s.removeLocked(k)
		}
	}

	if _, ok := s.zones[key]; !ok {
		s.order = append(s.order, key)
	}
	s.zones[key] = zone
	return nil
}

func (s *Store) removeLocked(key string) {
	delete(s.zones, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

// Lookup returns the zone whose origin is exactly origin
func (s *Store) Lookup(origin string) (*types.Zone, bool) {
	key := strings.ToLower(zonefile.Fqdn(origin))

	s.mu.RLock()
	defer s.mu.RUnlock()
	zone, ok := s.zones[key]
	return zone, ok
}

// FindZone returns the zone with the longest origin that is qname or a
// parent of qname
func (s *Store) FindZone(qname string) (*types.Zone, bool) {
	name := strings.ToLower(zonefile.Fqdn(qname))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for {
		if zone, ok := s.zones[name]; ok {
			return zone, true
		}
		i := strings.IndexByte(name, '.')
		if i < 0 || i == len(name)-1 {
			break
		}
		name = name[i+1:]
	}
	zone, ok := s.zones["."]
	return zone, ok
}

// GetByID returns the zone with the given id
func (s *Store) GetByID(id string) (*types.Zone, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, zone := range s.zones {
		if zone.ID == id {
			return zone, true
		}
	}
	return nil, false
}

// Zones returns every loaded zone in load order
func (s *Store) Zones() []*types.Zone {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Zone, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.zones[key])
	}
	return out
}

// Stats reports the number of loaded zones and records
func (s *Store) Stats() (zones, records int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, zone := range s.zones {
		records += len(zone.Records)
	}
	return len(s.zones), records
}

// Freshness reports the number of loaded zones and the newest modification
// time among their files
func (s *Store) Freshness() (zones int, lastLoaded time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, zone := range s.zones {
		if zone.LastModified.After(lastLoaded) {
			lastLoaded = zone.LastModified
		}
	}
	return len(s.zones), lastLoaded
}

// CreateZone writes a new zone file with a default SOA and placeholder NS
// records and loads it. name must be fully qualified.
func (s *Store) CreateZone(name, callerRef, comment string) (*types.Zone, string, error) {
	if !strings.HasSuffix(name, ".") || name == "." || !zonefile.ValidName(name) || strings.HasPrefix(name, "*") {
		return nil, "", fmt.Errorf("%q: %w", name, types.ErrInvalidName)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, ok := s.Lookup(name); ok {
		return nil, "", fmt.Errorf("zone %s: %w", name, types.ErrAlreadyExists)
	}
	path := s.pathFor(name)
	if _, err := os.Stat(path); err == nil {
		return nil, "", fmt.Errorf("zone file %s: %w", path, types.ErrAlreadyExists)
	}

	zone := newZone(name, callerRef, comment, time.Now().UTC())
	text := zonefile.Format(zone)
	if err := writeAtomic(path, []byte(text)); err != nil {
		return nil, "", err
	}

	loaded, err := s.loadFile(path)
	if err != nil {
		os.Remove(path)
		return nil, "", types.Internal("load created zone", err)
	}
	s.updateGauges()

	changeID, err := s.Record(loaded.Origin, types.ChangeCreateHostedZone, []byte(text))
	if err != nil {
		return loaded, "", err
	}

	logger := log.WithZone(loaded.Origin)
	logger.Info().
		Str("zone_id", loaded.ID).
		Str("file", path).
		Msg("Zone created")
	return loaded, changeID, nil
}

// DeleteZone unloads a zone and moves its file into the deleted/
// subdirectory of the zones directory
func (s *Store) DeleteZone(name string) (*types.Zone, string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	zone, ok := s.Lookup(name)
	if !ok {
		return nil, "", fmt.Errorf("zone %s: %w", name, types.ErrNotFound)
	}

	text := zonefile.Format(zone)
	if err := s.archive(zone.SourceFile); err != nil {
		return nil, "", err
	}
	s.unloadFile(zone.SourceFile)
	s.updateGauges()

	changeID, err := s.Record(zone.Origin, types.ChangeDeleteHostedZone, []byte(text))
	if err != nil {
		return zone, "", err
	}

	logger := log.WithZone(zone.Origin)
	logger.Info().
		Str("zone_id", zone.ID).
		Msg("Zone deleted")
	return zone, changeID, nil
}

func (s *Store) archive(path string) error {
	dir := filepath.Join(s.dir, deletedDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return types.Internal("create deleted directory", err)
	}

	dest := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		dest = fmt.Sprintf("%s.%d", dest, time.Now().UnixNano())
	}
	if err := os.Rename(path, dest); err != nil {
		return types.Internal("move zone file", err)
	}
	return nil
}

// AddRecord appends one record to a zone
func (s *Store) AddRecord(zone, name, rtype string, ttl uint32, value string) error {
	_, err := s.ApplyChanges(zone, []types.RecordChange{{
		Action: types.ActionCreate, Name: name, Type: rtype, TTL: ttl, Value: value,
	}})
	return err
}

// DeleteRecord removes the first record matching name, type and value.
// Nothing is removed, and no error returned, when no record matches.
func (s *Store) DeleteRecord(zone, name, rtype string, ttl uint32, value string) error {
	_, err := s.ApplyChanges(zone, []types.RecordChange{{
		Action: types.ActionDelete, Name: name, Type: rtype, TTL: ttl, Value: value,
	}})
	return err
}

// ApplyChanges applies a batch of record changes to the zone with origin
// zoneName as a single rewrite of its file. If any change is invalid the
// file is left untouched. A rewrite increments the SOA serial and keeps the
// lines the parser does not serve. It returns the number of records added
// plus removed.
func (s *Store) ApplyChanges(zoneName string, changes []types.RecordChange) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, ok := s.Lookup(zoneName)
	if !ok {
		return 0, fmt.Errorf("zone %s: %w", zoneName, types.ErrNotFound)
	}

	// the file on disk is the source of truth
	data, err := os.ReadFile(current.SourceFile)
	if err != nil {
		return 0, types.Internal("read zone file", err)
	}
	zone, err := zonefile.Parse(string(data), current.SourceFile)
	if err != nil {
		return 0, types.Internal("parse zone file", err)
	}

	applied := 0
	for _, change := range changes {
		rr, err := BuildRecord(zone.Origin, change.Name, change.Type, change.TTL, change.Value)
		if err != nil {
			return 0, err
		}
		switch change.Action {
		case types.ActionCreate:
			zone.Records = append(zone.Records, rr)
			applied++
		case types.ActionDelete:
			if i := findRecord(zone, rr); i >= 0 {
				zone.Records = append(zone.Records[:i:i], zone.Records[i+1:]...)
				applied++
			}
		default:
			return 0, fmt.Errorf("unknown change action %q: %w", change.Action, types.ErrInvalidRecord)
		}
	}
	if applied == 0 {
		return 0, nil
	}

	bumpSerial(zone)
	types.SortRecords(zone.Records)
	if err := writeAtomic(current.SourceFile, []byte(zonefile.Format(zone))); err != nil {
		return 0, err
	}
	if _, err := s.loadFile(current.SourceFile); err != nil {
		return 0, types.Internal("reload zone file", err)
	}
	s.updateGauges()

	logger := log.WithZone(zone.Origin)
	logger.Debug().
		Int("changes", applied).
		Msg("Zone file rewritten")
	return applied, nil
}

// bumpSerial increments the SOA serial so secondaries notice the rewrite.
// The serial wraps as sequence space arithmetic allows.
func bumpSerial(zone *types.Zone) {
	for i := range zone.Records {
		rr := &zone.Records[i]
		if rr.Type == types.RecordTypeSOA && len(rr.Values) > 0 {
			rr.Values[0]++
			return
		}
	}
}

// Record writes a change to the journal and announces it. Without a journal
// it records nothing and returns an empty id.
func (s *Store) Record(zone string, changeType types.ChangeType, payload []byte) (string, error) {
	if s.journal == nil {
		return "", nil
	}
	id, err := s.journal.Record(zone, changeType, payload)
	if err != nil {
		return "", err
	}
	s.emit(events.EventChangeRecorded, zone, string(changeType), map[string]string{"change": id})
	return id, nil
}

func (s *Store) emit(t events.EventType, zone, msg string, meta map[string]string) {
	if s.events == nil {
		return
	}
	s.events.Publish(&events.Event{
		Type:     t,
		Zone:     zone,
		Message:  msg,
		Metadata: meta,
	})
}

func (s *Store) updateGauges() {
	zones, records := s.Stats()
	metrics.ZonesLoaded.Set(float64(zones))
	metrics.RecordsLoaded.Set(float64(records))
}

func (s *Store) pathFor(origin string) string {
	return filepath.Join(s.dir, strings.TrimSuffix(strings.ToLower(origin), ".")+zoneExt)
}

func isZoneFile(name string) bool {
	return strings.HasSuffix(name, zoneExt) && !strings.HasPrefix(name, ".")
}

func newZone(origin, callerRef, comment string, now time.Time) *types.Zone {
	serial := uint32(now.Year()*1000000 + int(now.Month())*10000 + now.Day()*100 + 1)

	zone := &types.Zone{
		ID:        types.NewID(),
		Origin:    origin,
		TTL:       DefaultTTL,
		CallerRef: callerRef,
		Comment:   comment,
		UID:       types.NewID(),
	}
	zone.Records = append(zone.Records, types.ResourceRecord{
		Name:   "@",
		Type:   types.RecordTypeSOA,
		Class:  types.DefaultClass,
		TTL:    DefaultTTL,
		NS:     DefaultNameServers[0],
		Email:  "hostmaster",
		Values: []uint32{serial, 10800, 3600, 604800, DefaultTTL},
	})
	for _, ns := range DefaultNameServers {
		zone.Records = append(zone.Records, types.ResourceRecord{
			Name:    "@",
			Type:    types.RecordTypeNS,
			Class:   types.DefaultClass,
			TTL:     DefaultTTL,
			Address: ns,
		})
	}
	return zone
}

// writeAtomic replaces path with data through a temporary file in the same
// directory, so readers see either the old or the new content
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".zoned-*.tmp")
	if err != nil {
		return types.Internal("create temp file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return types.Internal("write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return types.Internal("sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return types.Internal("close temp file", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return types.Internal("chmod temp file", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return types.Internal("rename zone file", err)
	}
	return nil
}

// ListZones returns up to maxItems zones in load order, starting after the
// zone whose id is marker. nextMarker is empty on the last page.
func (s *Store) ListZones(maxItems int, marker string) ([]*types.Zone, string, error) {
	all := s.Zones()

	start := 0
	if marker != "" {
		start = -1
		for i, zone := range all {
			if zone.ID == marker {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return nil, "", fmt.Errorf("marker %s: %w", marker, types.ErrNotFound)
		}
	}

	rest := all[start:]
	if maxItems <= 0 || maxItems >= len(rest) {
		return rest, "", nil
	}
	page := rest[:maxItems]
	return page, page[len(page)-1].ID, nil
}

// ListRecords returns up to maxItems record sets of a zone. When name is
// set the listing starts at the set with that name (and type, when rtype is
// set). The returned key identifies the first set of the next page.
func (s *Store) ListRecords(zoneName, name, rtype string, maxItems int) ([]types.RecordSet, *types.RecordSetKey, error) {
	zone, ok := s.Lookup(zoneName)
	if !ok {
		return nil, nil, fmt.Errorf("zone %s: %w", zoneName, types.ErrNotFound)
	}

	sets := RecordSets(zone)

	start := 0
	if name != "" || rtype != "" {
		start = len(sets)
		want := strings.ToLower(zonefile.Fqdn(name))
		for i, set := range sets {
			if name != "" && strings.ToLower(set.Name) != want {
				continue
			}
			if rtype != "" && !strings.EqualFold(string(set.Type), rtype) {
				continue
			}
			start = i
			break
		}
	}

	rest := sets[start:]
	if maxItems <= 0 || maxItems >= len(rest) {
		return rest, nil, nil
	}
	next := rest[maxItems]
	return rest[:maxItems], &types.RecordSetKey{Name: next.Name, Type: next.Type}, nil
}

// RecordSets groups a zone's records by fully-qualified owner name and
// type, in order of first appearance
func RecordSets(zone *types.Zone) []types.RecordSet {
	var (
		sets  []types.RecordSet
		index = make(map[types.RecordSetKey]int)
	)
	for _, rr := range zone.Records {
		name := zonefile.Expand(rr.Name, zone.Origin)
		key := types.RecordSetKey{Name: strings.ToLower(name), Type: rr.Type}
		i, ok := index[key]
		if !ok {
			i = len(sets)
			index[key] = i
			sets = append(sets, types.RecordSet{Name: name, Type: rr.Type, TTL: rr.TTL})
		}
		sets[i].Values = append(sets[i].Values, RecordValue(rr, zone.Origin))
	}
	return sets
}

// RecordValue renders the data of a record with names fully qualified
func RecordValue(rr types.ResourceRecord, origin string) string {
	switch rr.Type {
	case types.RecordTypeSOA:
		v := make([]uint32, 5)
		copy(v, rr.Values)
		return fmt.Sprintf("%s %s %d %d %d %d %d",
			zonefile.Expand(rr.NS, origin), zonefile.Expand(rr.Email, origin),
			v[0], v[1], v[2], v[3], v[4])
	case types.RecordTypeMX:
		return fmt.Sprintf("%d %s", rr.Priority, zonefile.Expand(rr.Address, origin))
	case types.RecordTypeNS, types.RecordTypeCNAME, types.RecordTypePTR:
		return zonefile.Expand(rr.Address, origin)
	}
	return rr.Address
}
