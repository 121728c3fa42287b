package hostedzone

import (
	"fmt"
	"strings"
	"time"

	"github.com/cuemby/zoned/pkg/journal"
	"github.com/cuemby/zoned/pkg/log"
	"github.com/cuemby/zoned/pkg/types"
	"github.com/cuemby/zoned/pkg/zonefile"
	"github.com/cuemby/zoned/pkg/zonestore"
	"gopkg.in/yaml.v3"
)

// Change statuses. Mutations are applied synchronously, so a change is
// PENDING only in the response to its submission.
const (
	StatusPending = "PENDING"
	StatusInsync  = "INSYNC"
)

const (
	// DefaultMaxItems is the page size used when none is requested
	DefaultMaxItems = 100
	maxMaxItems     = 100
)

// HostedZone describes a loaded zone
type HostedZone struct {
	ID                     string `json:"id"`
	Name                   string `json:"name"`
	CallerReference        string `json:"callerReference,omitempty"`
	Comment                string `json:"comment,omitempty"`
	ResourceRecordSetCount int    `json:"resourceRecordSetCount"`
}

// DelegationSet lists the name servers a zone delegates to
type DelegationSet struct {
	NameServers []string `json:"nameServers"`
}

// ChangeInfo reports the state of a submitted change
type ChangeInfo struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	SubmittedAt string `json:"submittedAt"`
	Comment     string `json:"comment,omitempty"`
}

// ZoneList is one page of ListZones
type ZoneList struct {
	HostedZones []HostedZone `json:"hostedZones"`
	Marker      string       `json:"marker,omitempty"`
	NextMarker  string       `json:"nextMarker,omitempty"`
	IsTruncated bool         `json:"isTruncated"`
	MaxItems    int          `json:"maxItems"`
}

// RecordSetList is one page of ListRecords
type RecordSetList struct {
	ResourceRecordSets []types.RecordSet `json:"resourceRecordSets"`
	IsTruncated        bool              `json:"isTruncated"`
	MaxItems           int               `json:"maxItems"`
	NextRecordName     string            `json:"nextRecordName,omitempty"`
	NextRecordType     string            `json:"nextRecordType,omitempty"`
}

// Change is one entry of a ChangeRecordSet batch. Every value becomes a
// separate record.
type Change struct {
	Action types.ChangeAction `json:"action" yaml:"action"`
	Name   string             `json:"name" yaml:"name"`
	Type   string             `json:"type" yaml:"type"`
	TTL    uint32             `json:"ttl" yaml:"ttl"`
	Values []string           `json:"values" yaml:"values"`
}

// changeBatch is the journal payload of a ChangeRecordSet call
type changeBatch struct {
	Comment string   `yaml:"comment,omitempty"`
	Changes []Change `yaml:"changes"`
}

// Service is the management facade over the zone store and change journal.
// Each operation maps onto one store or journal operation.
type Service struct {
	store   *zonestore.Store
	journal journal.Journal
}

// NewService creates a service. The store should record zone creation and
// deletion into the same journal.
func NewService(store *zonestore.Store, journal journal.Journal) *Service {
	return &Service{store: store, journal: journal}
}

// ListZones returns a page of zones in load order, starting after marker
func (s *Service) ListZones(maxItems int, marker string) (*ZoneList, error) {
	maxItems = clampMaxItems(maxItems)

	zones, next, err := s.store.ListZones(maxItems, marker)
	if err != nil {
		return nil, err
	}

	list := &ZoneList{
		HostedZones: make([]HostedZone, 0, len(zones)),
		Marker:      marker,
		NextMarker:  next,
		IsTruncated: next != "",
		MaxItems:    maxItems,
	}
	for _, zone := range zones {
		list.HostedZones = append(list.HostedZones, describe(zone))
	}
	return list, nil
}

// GetZone returns a zone by id or by name, with its delegation set
func (s *Service) GetZone(idOrName string) (*HostedZone, *DelegationSet, error) {
	zone, err := s.find(idOrName)
	if err != nil {
		return nil, nil, err
	}
	hz := describe(zone)
	return &hz, delegation(zone), nil
}

// CreateZone creates an empty zone with default SOA and NS records
func (s *Service) CreateZone(name, callerRef, comment string) (*HostedZone, *ChangeInfo, *DelegationSet, error) {
	zone, changeID, err := s.store.CreateZone(name, callerRef, comment)
	if err != nil {
		return nil, nil, nil, err
	}
	hz := describe(zone)
	return &hz, pending(changeID, ""), delegation(zone), nil
}

// DeleteZone deletes a zone by id or by name
func (s *Service) DeleteZone(idOrName string) (*ChangeInfo, error) {
	zone, err := s.find(idOrName)
	if err != nil {
		return nil, err
	}
	_, changeID, err := s.store.DeleteZone(zone.Origin)
	if err != nil {
		return nil, err
	}
	return pending(changeID, ""), nil
}

// ListRecords returns a page of record sets. name and rtype optionally give
// the set to start from.
func (s *Service) ListRecords(zoneID, name, rtype string, maxItems int) (*RecordSetList, error) {
	zone, err := s.find(zoneID)
	if err != nil {
		return nil, err
	}
	maxItems = clampMaxItems(maxItems)

	sets, next, err := s.store.ListRecords(zone.Origin, name, rtype, maxItems)
	if err != nil {
		return nil, err
	}

	list := &RecordSetList{
		ResourceRecordSets: sets,
		MaxItems:           maxItems,
	}
	if list.ResourceRecordSets == nil {
		list.ResourceRecordSets = []types.RecordSet{}
	}
	if next != nil {
		list.IsTruncated = true
		list.NextRecordName = next.Name
		list.NextRecordType = string(next.Type)
	}
	return list, nil
}

// ChangeRecordSet applies a batch of record changes to a zone as one
// rewrite of its file and records the batch in the journal
func (s *Service) ChangeRecordSet(zoneID, comment string, changes []Change) (*ChangeInfo, error) {
	zone, err := s.find(zoneID)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, fmt.Errorf("empty change batch: %w", types.ErrInvalidRecord)
	}

	var edits []types.RecordChange
	for _, c := range changes {
		action := types.ChangeAction(strings.ToUpper(string(c.Action)))
		if action != types.ActionCreate && action != types.ActionDelete {
			return nil, fmt.Errorf("unknown action %q: %w", c.Action, types.ErrInvalidRecord)
		}
		if len(c.Values) == 0 {
			return nil, fmt.Errorf("%s %s %s has no values: %w", action, c.Name, c.Type, types.ErrInvalidRecord)
		}
		for _, v := range c.Values {
			edits = append(edits, types.RecordChange{
				Action: action,
				Name:   c.Name,
				Type:   c.Type,
				TTL:    c.TTL,
				Value:  v,
			})
		}
	}

	applied, err := s.store.ApplyChanges(zone.Origin, edits)
	if err != nil {
		return nil, err
	}

	payload, err := yaml.Marshal(&changeBatch{Comment: comment, Changes: changes})
	if err != nil {
		return nil, types.Internal("encode change batch", err)
	}
	changeID, err := s.store.Record(zone.Origin, types.ChangeResourceRecordSets, payload)
	if err != nil {
		return nil, err
	}

	logger := log.WithChangeID(changeID)
	logger.Info().
		Str("zone", zone.Origin).
		Int("records", applied).
		Msg("Record sets changed")
	return pending(changeID, comment), nil
}

// GetChange returns the status of a change. Changes are applied before
// they are acknowledged, so every known change is in sync.
func (s *Service) GetChange(id string) (*ChangeInfo, error) {
	change, err := s.journal.Get(id)
	if err != nil {
		return nil, err
	}
	return &ChangeInfo{
		ID:          change.ID,
		Status:      StatusInsync,
		SubmittedAt: change.Timestamp,
	}, nil
}

// find resolves a zone id, falling back to an origin name
func (s *Service) find(idOrName string) (*types.Zone, error) {
	if zone, ok := s.store.GetByID(idOrName); ok {
		return zone, nil
	}
	if idOrName != "" {
		if zone, ok := s.store.Lookup(idOrName); ok {
			return zone, nil
		}
	}
	return nil, fmt.Errorf("hosted zone %s: %w", idOrName, types.ErrNotFound)
}

func describe(zone *types.Zone) HostedZone {
	return HostedZone{
		ID:                     zone.ID,
		Name:                   zone.Origin,
		CallerReference:        zone.CallerRef,
		Comment:                zone.Comment,
		ResourceRecordSetCount: len(zonestore.RecordSets(zone)),
	}
}

func delegation(zone *types.Zone) *DelegationSet {
	ds := &DelegationSet{NameServers: []string{}}
	for _, rr := range zone.Records {
		if rr.Type != types.RecordTypeNS {
			continue
		}
		if !strings.EqualFold(zonefile.Expand(rr.Name, zone.Origin), zone.Origin) {
			continue
		}
		ds.NameServers = append(ds.NameServers, zonestore.RecordValue(rr, zone.Origin))
	}
	return ds
}

func pending(changeID, comment string) *ChangeInfo {
	return &ChangeInfo{
		ID:          changeID,
		Status:      StatusPending,
		SubmittedAt: time.Now().UTC().Format(time.RFC3339),
		Comment:     comment,
	}
}

func clampMaxItems(n int) int {
	if n <= 0 || n > maxMaxItems {
		return DefaultMaxItems
	}
	return n
}
