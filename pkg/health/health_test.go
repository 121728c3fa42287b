package health

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startDNS serves handler on a local UDP port
func startDNS(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go srv.ActivateAndServe()
	<-started
	t.Cleanup(func() { srv.Shutdown() })
	return pc.LocalAddr().String()
}

func soaHandler(rcode int, authoritative bool) dns.HandlerFunc {
	return func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetRcode(r, rcode)
		m.Authoritative = authoritative
		if rcode == dns.RcodeSuccess {
			soa, _ := dns.NewRR(r.Question[0].Name + " 3600 IN SOA ns1.example.com. hostmaster.example.com. 1 2 3 4 5")
			m.Answer = append(m.Answer, soa)
		}
		_ = w.WriteMsg(m)
	}
}

func TestDNSChecker(t *testing.T) {
	tests := []struct {
		name    string
		handler dns.HandlerFunc
		healthy bool
	}{
		{"authoritative soa", soaHandler(dns.RcodeSuccess, true), true},
		{"not authoritative", soaHandler(dns.RcodeSuccess, false), false},
		{"refused", soaHandler(dns.RcodeRefused, false), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := startDNS(t, tt.handler)
			result := NewDNSChecker(addr, "example.com").Check(context.Background())
			assert.Equal(t, tt.healthy, result.Healthy, result.Message)
			assert.False(t, result.CheckedAt.IsZero())
		})
	}
}

func TestDNSCheckerNoServer(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := pc.LocalAddr().String()
	pc.Close()

	checker := NewDNSChecker(addr, "example.com.").WithTimeout(200 * time.Millisecond)
	assert.Equal(t, CheckTypeDNS, checker.Type())
	result := checker.Check(context.Background())
	assert.False(t, result.Healthy)
	assert.Contains(t, result.Message, "query failed")
}

func TestStatusUpdate(t *testing.T) {
	config := Config{Retries: 2}
	s := NewStatus()
	assert.True(t, s.Healthy)

	s.Update(Result{Healthy: false}, config)
	assert.True(t, s.Healthy, "one failure is below the retry threshold")
	s.Update(Result{Healthy: false}, config)
	assert.False(t, s.Healthy)
	assert.Equal(t, 2, s.ConsecutiveFailures)

	s.Update(Result{Healthy: true}, config)
	assert.True(t, s.Healthy)
	assert.Equal(t, 0, s.ConsecutiveFailures)
	assert.Equal(t, 1, s.ConsecutiveSuccesses)
}

func TestStatusInStartPeriod(t *testing.T) {
	s := NewStatus()
	assert.False(t, s.InStartPeriod(Config{}))
	assert.True(t, s.InStartPeriod(Config{StartPeriod: time.Hour}))
}

type fakeChecker struct {
	results chan Result
}

func (f *fakeChecker) Check(ctx context.Context) Result { return <-f.results }
func (f *fakeChecker) Type() CheckType                  { return CheckTypeDNS }

func TestMonitorCheckNow(t *testing.T) {
	checker := &fakeChecker{results: make(chan Result, 3)}
	m := NewMonitor("test.probe", checker, Config{Retries: 2})

	checker.results <- Result{Healthy: false, Message: "down"}
	checker.results <- Result{Healthy: false, Message: "down"}
	m.CheckNow(context.Background())
	assert.True(t, m.Status().Healthy)
	m.CheckNow(context.Background())
	assert.False(t, m.Status().Healthy)

	checker.results <- Result{Healthy: true, Message: "up"}
	m.CheckNow(context.Background())
	status := m.Status()
	assert.True(t, status.Healthy)
	assert.Equal(t, "up", status.LastResult.Message)
}

func TestMonitorRunStopsWithContext(t *testing.T) {
	addr := startDNS(t, soaHandler(dns.RcodeSuccess, true))
	m := NewMonitor("test.run", NewDNSChecker(addr, "example.com."), Config{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool {
		return m.Status().ConsecutiveSuccesses >= 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
}
