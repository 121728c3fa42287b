package hostedzone

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/cuemby/zoned/pkg/journal"
	"github.com/cuemby/zoned/pkg/types"
	"github.com/cuemby/zoned/pkg/zonestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const exampleZone = `;$ZONEID ZEXAMPLE ; main site
$TTL 3600
$ORIGIN example.com.
@	IN	SOA	ns1 hostmaster 1 2 3 4 5
@	IN	NS	ns1
@	IN	NS	ns2.example.net.
www	IN	A	192.0.2.10
`

func newService(t *testing.T) (*Service, *zonestore.Store) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "example.com.zone"), []byte(exampleZone), 0644))

	j, err := journal.Open(journal.BackendFile, filepath.Join(dir, "changes"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	store := zonestore.New(dir, j)
	require.NoError(t, store.LoadAll())
	return NewService(store, j), store
}

func TestGetZone(t *testing.T) {
	svc, _ := newService(t)

	for _, key := range []string{"ZEXAMPLE", "example.com.", "example.com"} {
		t.Run(key, func(t *testing.T) {
			hz, ds, err := svc.GetZone(key)
			require.NoError(t, err)
			assert.Equal(t, "ZEXAMPLE", hz.ID)
			assert.Equal(t, "example.com.", hz.Name)
			assert.Equal(t, "main site", hz.Comment)
			assert.Equal(t, 3, hz.ResourceRecordSetCount)
			assert.Equal(t, []string{"ns1.example.com.", "ns2.example.net."}, ds.NameServers)
		})
	}

	_, _, err := svc.GetZone("ZMISSING")
	assert.True(t, errdefs.IsNotFound(err))
	_, _, err = svc.GetZone("")
	assert.True(t, errdefs.IsNotFound(err))
}

func TestCreateAndDeleteZone(t *testing.T) {
	svc, store := newService(t)

	hz, change, ds, err := svc.CreateZone("example.org.", "ref-42", "new zone")
	require.NoError(t, err)
	assert.Equal(t, "example.org.", hz.Name)
	assert.Equal(t, "ref-42", hz.CallerReference)
	assert.Equal(t, StatusPending, change.Status)
	assert.NotEmpty(t, change.SubmittedAt)
	assert.Equal(t, []string{"ns1.example.org.", "ns2.example.org."}, ds.NameServers)

	got, err := svc.GetChange(change.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInsync, got.Status)

	_, _, _, err = svc.CreateZone("example.org.", "ref-43", "")
	assert.True(t, errdefs.IsAlreadyExists(err))
	_, _, _, err = svc.CreateZone("example.net", "", "")
	assert.ErrorIs(t, err, types.ErrInvalidName)

	change, err = svc.DeleteZone(hz.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, change.Status)
	_, ok := store.Lookup("example.org.")
	assert.False(t, ok)

	_, err = svc.DeleteZone(hz.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestListZones(t *testing.T) {
	svc, _ := newService(t)
	for _, name := range []string{"a.test.", "b.test."} {
		_, _, _, err := svc.CreateZone(name, "", "")
		require.NoError(t, err)
	}

	page, err := svc.ListZones(2, "")
	require.NoError(t, err)
	assert.Len(t, page.HostedZones, 2)
	assert.True(t, page.IsTruncated)
	assert.Equal(t, 2, page.MaxItems)
	assert.Equal(t, "example.com.", page.HostedZones[0].Name)

	page, err = svc.ListZones(2, page.NextMarker)
	require.NoError(t, err)
	require.Len(t, page.HostedZones, 1)
	assert.Equal(t, "b.test.", page.HostedZones[0].Name)
	assert.False(t, page.IsTruncated)
	assert.Empty(t, page.NextMarker)
}

func TestClampMaxItems(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 100},
		{-5, 100},
		{1, 1},
		{100, 100},
		{500, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampMaxItems(tt.in), tt.in)
	}
}

func TestChangeRecordSet(t *testing.T) {
	svc, store := newService(t)

	change, err := svc.ChangeRecordSet("ZEXAMPLE", "add api", []Change{
		{Action: "CREATE", Name: "api.example.com.", Type: "A", TTL: 60, Values: []string{"192.0.2.20", "192.0.2.21"}},
		{Action: "delete", Name: "www.example.com.", Type: "A", TTL: 3600, Values: []string{"192.0.2.10"}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, change.Status)
	assert.Equal(t, "add api", change.Comment)

	list, err := svc.ListRecords("ZEXAMPLE", "api.example.com.", "A", 0)
	require.NoError(t, err)
	require.NotEmpty(t, list.ResourceRecordSets)
	assert.Equal(t, []string{"192.0.2.20", "192.0.2.21"}, list.ResourceRecordSets[0].Values)
	assert.Equal(t, 100, list.MaxItems)

	zone, _ := store.Lookup("example.com.")
	for _, rr := range zone.Records {
		assert.NotEqual(t, "192.0.2.10", rr.Address)
	}

	// the journal keeps the whole batch
	j := svc.journal
	rec, err := j.Get(change.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ChangeResourceRecordSets, rec.Type)
	assert.Equal(t, "example.com.", rec.Zone)

	var batch changeBatch
	require.NoError(t, yaml.Unmarshal(rec.Payload, &batch))
	assert.Equal(t, "add api", batch.Comment)
	require.Len(t, batch.Changes, 2)
	assert.Equal(t, []string{"192.0.2.20", "192.0.2.21"}, batch.Changes[0].Values)
}

func TestChangeRecordSetErrors(t *testing.T) {
	svc, _ := newService(t)

	tests := []struct {
		name    string
		zone    string
		changes []Change
		check   func(error) bool
	}{
		{"unknown zone", "ZNOPE", []Change{{Action: "CREATE", Name: "x", Type: "A", Values: []string{"192.0.2.1"}}}, errdefs.IsNotFound},
		{"empty batch", "ZEXAMPLE", nil, errdefs.IsInvalidArgument},
		{"unknown action", "ZEXAMPLE", []Change{{Action: "UPSERT", Name: "x", Type: "A", Values: []string{"192.0.2.1"}}}, errdefs.IsInvalidArgument},
		{"no values", "ZEXAMPLE", []Change{{Action: "CREATE", Name: "x", Type: "A"}}, errdefs.IsInvalidArgument},
		{"bad value", "ZEXAMPLE", []Change{{Action: "CREATE", Name: "x", Type: "A", Values: []string{"nope"}}}, errdefs.IsInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ChangeRecordSet(tt.zone, "", tt.changes)
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}
}

func TestListRecordsPaging(t *testing.T) {
	svc, _ := newService(t)

	list, err := svc.ListRecords("example.com.", "", "", 2)
	require.NoError(t, err)
	assert.Len(t, list.ResourceRecordSets, 2)
	assert.True(t, list.IsTruncated)
	assert.Equal(t, "www.example.com.", list.NextRecordName)
	assert.Equal(t, "A", list.NextRecordType)

	list, err = svc.ListRecords("example.com.", list.NextRecordName, list.NextRecordType, 2)
	require.NoError(t, err)
	assert.Len(t, list.ResourceRecordSets, 1)
	assert.False(t, list.IsTruncated)

	list, err = svc.ListRecords("example.com.", "missing.example.com.", "", 2)
	require.NoError(t, err)
	assert.NotNil(t, list.ResourceRecordSets)
	assert.Empty(t, list.ResourceRecordSets)
}

func TestGetChangeNotFound(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.GetChange("CNOPE")
	assert.True(t, errdefs.IsNotFound(err))
}
