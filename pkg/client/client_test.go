package client

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/cuemby/zoned/pkg/api"
	"github.com/cuemby/zoned/pkg/hostedzone"
	"github.com/cuemby/zoned/pkg/journal"
	"github.com/cuemby/zoned/pkg/types"
	"github.com/cuemby/zoned/pkg/zonestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleZone = `;$ZONEID ZEXAMPLE
$TTL 3600
$ORIGIN example.com.
@	IN	SOA	ns1 hostmaster 1 2 3 4 5
@	IN	NS	ns1
www	IN	A	192.0.2.10
`

func newTestClient(t *testing.T, cfg *api.Config) *Client {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "example.com.zone"), []byte(exampleZone), 0644))

	j, err := journal.Open(journal.BackendFile, filepath.Join(dir, "changes"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	store := zonestore.New(dir, j)
	require.NoError(t, store.LoadAll())

	srv := httptest.NewServer(api.NewServer(hostedzone.NewService(store, j), cfg).Handler())
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		addr string
		base string
	}{
		{"", "http://127.0.0.1:8053/2010-10-01"},
		{"localhost:9000", "http://localhost:9000/2010-10-01"},
		{"https://dns.example.com/", "https://dns.example.com/2010-10-01"},
	}
	for _, tt := range tests {
		c, err := NewClient(tt.addr)
		require.NoError(t, err, tt.addr)
		assert.Equal(t, tt.base, c.base)
	}

	_, err := NewClient("http://")
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestZoneRoundTrip(t *testing.T) {
	c := newTestClient(t, nil)

	created, err := c.CreateZone("example.org.", "ref-1", "client test")
	require.NoError(t, err)
	assert.Equal(t, "example.org.", created.HostedZone.Name)
	assert.Equal(t, hostedzone.StatusPending, created.ChangeInfo.Status)

	got, err := c.GetZone("example.org.")
	require.NoError(t, err)
	assert.Equal(t, created.HostedZone.ID, got.HostedZone.ID)
	assert.Equal(t, "client test", got.HostedZone.Comment)

	list, err := c.ListZones(0, "")
	require.NoError(t, err)
	assert.Len(t, list.HostedZones, 2)

	change, err := c.GetChange(created.ChangeInfo.ID)
	require.NoError(t, err)
	assert.Equal(t, hostedzone.StatusInsync, change.Status)

	_, err = c.DeleteZone(created.HostedZone.ID)
	require.NoError(t, err)
	_, err = c.GetZone(created.HostedZone.ID)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestRecordRoundTrip(t *testing.T) {
	c := newTestClient(t, nil)

	_, err := c.ChangeRecords("ZEXAMPLE", "add api", []hostedzone.Change{
		{Action: types.ActionCreate, Name: "api", Type: "A", TTL: 300, Values: []string{"192.0.2.20"}},
	})
	require.NoError(t, err)

	list, err := c.ListRecords("ZEXAMPLE", "api.example.com.", "A", 1)
	require.NoError(t, err)
	require.Len(t, list.ResourceRecordSets, 1)
	assert.Equal(t, []string{"192.0.2.20"}, list.ResourceRecordSets[0].Values)
}

func TestErrorClasses(t *testing.T) {
	c := newTestClient(t, &api.Config{ReadOnly: true})

	_, err := c.GetZone("ZNOPE")
	assert.True(t, errdefs.IsNotFound(err))

	_, err = c.CreateZone("example.org.", "", "")
	assert.True(t, errdefs.IsPermissionDenied(err))
	assert.Contains(t, err.Error(), "read-only")
}
