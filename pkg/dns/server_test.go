package dns

import (
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/cuemby/zoned/pkg/geo"
	"github.com/cuemby/zoned/pkg/types"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, router *geo.Router) *Server {
	t.Helper()
	store := loadZones(t, map[string]string{
		"example.com": exampleZone,
		"geo.test":    geoZone,
	})
	srv := NewServer(NewEngine(store, router, 0), router, &Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })
	return srv
}

func exchange(t *testing.T, network, addr string, m *dns.Msg) *dns.Msg {
	t.Helper()
	c := &dns.Client{Net: network, Timeout: 2 * time.Second}
	resp, _, err := c.Exchange(m, addr)
	require.NoError(t, err)
	return resp
}

func TestNewServerDefaults(t *testing.T) {
	srv := NewServer(nil, nil, nil)
	assert.Equal(t, DefaultListenAddr, srv.listenAddr)
	assert.Equal(t, DefaultQueryTimeout, srv.timeout)
	assert.False(t, srv.IsRunning())
	assert.Empty(t, srv.Addr())
}

func TestServerStartStop(t *testing.T) {
	srv := startServer(t, nil)
	assert.True(t, srv.IsRunning())
	assert.NotEmpty(t, srv.Addr())
	assert.Error(t, srv.Start())

	require.NoError(t, srv.Stop())
	assert.False(t, srv.IsRunning())
	assert.NoError(t, srv.Stop())
}

func TestServerAnswersOverUDPAndTCP(t *testing.T) {
	srv := startServer(t, nil)

	for _, network := range []string{"udp", "tcp"} {
		t.Run(network, func(t *testing.T) {
			m := new(dns.Msg)
			m.SetQuestion("www.example.com.", dns.TypeA)

			resp := exchange(t, network, srv.Addr(), m)
			assert.Equal(t, dns.RcodeSuccess, resp.Rcode)
			assert.True(t, resp.Authoritative)
			require.Len(t, resp.Answer, 1)
			assert.Equal(t, "1.2.3.4", resp.Answer[0].(*dns.A).A.String())
			require.Len(t, resp.Ns, 1)
			assert.Equal(t, "ns1.example.com.", resp.Ns[0].(*dns.NS).Ns)
		})
	}
}

func TestServerResponseCodes(t *testing.T) {
	srv := startServer(t, nil)

	tests := []struct {
		name  string
		qname string
		rcode int
		auth  bool
	}{
		{"nxdomain", "nope.dev.x.example.com.", dns.RcodeNameError, true},
		{"refused", "www.example.org.", dns.RcodeRefused, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(dns.Msg)
			m.SetQuestion(tt.qname, dns.TypeA)
			resp := exchange(t, "udp", srv.Addr(), m)
			assert.Equal(t, tt.rcode, resp.Rcode)
			assert.Equal(t, tt.auth, resp.Authoritative)
			assert.Empty(t, resp.Answer)
		})
	}
}

func TestServerNotImplementedOpcode(t *testing.T) {
	srv := startServer(t, nil)

	m := new(dns.Msg)
	m.SetNotify("example.com.")
	resp := exchange(t, "udp", srv.Addr(), m)
	assert.Equal(t, dns.RcodeNotImplemented, resp.Rcode)
}

func TestServerClientSubnet(t *testing.T) {
	router := geo.NewRouter(geo.ChainLocator{
		geoLocator(),
		geo.NewStaticLocator([]geo.StaticEntry{
			{Prefix: netip.MustParsePrefix("10.1.0.0/16"), Location: types.Location{Latitude: 48.86, Longitude: 2.35}},
		}),
	}, nil)
	srv := startServer(t, router)

	tests := []struct {
		name   string
		qname  string
		answer string
		scope  uint8
	}{
		{"ranked answer", "www.geo.test.", "203.0.113.1", 24},
		{"single candidate", "www.example.com.", "1.2.3.4", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(dns.Msg)
			m.SetQuestion(tt.qname, dns.TypeA)
			m.SetEdns0(4096, false)
			m.IsEdns0().Option = append(m.IsEdns0().Option, &dns.EDNS0_SUBNET{
				Code:          dns.EDNS0SUBNET,
				Family:        1,
				SourceNetmask: 24,
				Address:       net.ParseIP("10.1.2.0").To4(),
			})

			resp := exchange(t, "udp", srv.Addr(), m)
			require.Len(t, resp.Answer, 1)
			assert.Equal(t, tt.answer, resp.Answer[0].(*dns.A).A.String())

			opt := resp.IsEdns0()
			require.NotNil(t, opt)
			require.Len(t, opt.Option, 1)
			subnet, ok := opt.Option[0].(*dns.EDNS0_SUBNET)
			require.True(t, ok)
			assert.Equal(t, uint8(24), subnet.SourceNetmask)
			assert.Equal(t, tt.scope, subnet.SourceScope)
		})
	}
}

func TestServerUnlocatedClientGetsAllAnswers(t *testing.T) {
	router := geo.NewRouter(geoLocator(), nil)
	srv := startServer(t, router)

	// 127.0.0.1 is not in the locator table
	m := new(dns.Msg)
	m.SetQuestion("www.geo.test.", dns.TypeA)
	resp := exchange(t, "udp", srv.Addr(), m)
	assert.Len(t, resp.Answer, 3)
}
