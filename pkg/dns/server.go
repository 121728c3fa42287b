package dns

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cuemby/zoned/pkg/geo"
	"github.com/cuemby/zoned/pkg/log"
	"github.com/cuemby/zoned/pkg/metrics"
	"github.com/cuemby/zoned/pkg/types"
	"github.com/miekg/dns"
)

const (
	// DefaultListenAddr is the address served on both UDP and TCP
	DefaultListenAddr = ":53"

	// DefaultQueryTimeout is how long a query may take before it is
	// dropped without an answer
	DefaultQueryTimeout = 2 * time.Second
)

// Server is the authoritative DNS server
type Server struct {
	engine     *Engine
	router     *geo.Router
	listenAddr string
	timeout    time.Duration

	udp     *dns.Server
	tcp     *dns.Server
	errCh   chan error
	mu      sync.RWMutex
	running bool
}

// Config holds DNS server configuration
type Config struct {
	ListenAddr   string        // Address to listen on (default: :53)
	QueryTimeout time.Duration // Per-query deadline (default: 2s)
}

// NewServer creates a new DNS server. router supplies client locations and
// may be nil.
func NewServer(engine *Engine, router *geo.Router, config *Config) *Server {
	if config == nil {
		config = &Config{}
	}
	if config.ListenAddr == "" {
		config.ListenAddr = DefaultListenAddr
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = DefaultQueryTimeout
	}

	return &Server{
		engine:     engine,
		router:     router,
		listenAddr: config.ListenAddr,
		timeout:    config.QueryTimeout,
	}
}

// Start binds the UDP and TCP listeners and begins serving in the
// background. It returns once both listeners are serving.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("DNS server already running")
	}

	pc, err := net.ListenPacket("udp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on udp %s: %w", s.listenAddr, err)
	}
	// bind TCP to the port UDP got so ":0" yields one shared port
	ln, err := net.Listen("tcp", pc.LocalAddr().String())
	if err != nil {
		pc.Close()
		return fmt.Errorf("failed to listen on tcp %s: %w", s.listenAddr, err)
	}

	mux := dns.NewServeMux()
	mux.HandleFunc(".", s.handleDNSQuery)

	s.udp = &dns.Server{PacketConn: pc, Net: "udp", Handler: mux}
	s.tcp = &dns.Server{Listener: ln, Net: "tcp", Handler: mux}
	s.errCh = make(chan error, 2)

	var started sync.WaitGroup
	started.Add(2)
	for _, srv := range []*dns.Server{s.udp, s.tcp} {
		srv.NotifyStartedFunc = started.Done
		go func(srv *dns.Server) {
			if err := srv.ActivateAndServe(); err != nil {
				log.Logger.Error().
					Err(err).
					Str("component", "dns").
					Str("net", srv.Net).
					Msg("DNS server error")
				s.errCh <- err
			}
		}(srv)
	}

	ready := make(chan struct{})
	go func() {
		started.Wait()
		close(ready)
	}()
	select {
	case <-ready:
	case err := <-s.errCh:
		pc.Close()
		ln.Close()
		return err
	}

	s.running = true
	metrics.RegisterComponent(metrics.ComponentDNS, true, "serving")

	log.Logger.Info().
		Str("component", "dns").
		Str("address", pc.LocalAddr().String()).
		Msg("DNS server started")
	return nil
}

// Run starts the server and blocks until ctx is cancelled or a listener
// fails, then stops it
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-s.errCh:
		s.Stop()
		return err
	}
}

// Stop stops the DNS server
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	log.Logger.Info().
		Str("component", "dns").
		Msg("Stopping DNS server")

	var firstErr error
	for _, srv := range []*dns.Server{s.udp, s.tcp} {
		if err := srv.Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.running = false
	metrics.UpdateComponent(metrics.ComponentDNS, false, "stopped")
	return firstErr
}

// Addr returns the bound address, shared by UDP and TCP
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.running {
		return ""
	}
	return s.udp.PacketConn.LocalAddr().String()
}

// IsRunning returns true if the DNS server is running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// handleDNSQuery answers every question of r from the engine
func (s *Server) handleDNSQuery(w dns.ResponseWriter, r *dns.Msg) {
	timer := metrics.NewTimer()

	msg := new(dns.Msg)
	msg.SetReply(r)
	msg.Authoritative = true

	switch {
	case r.Opcode != dns.OpcodeQuery:
		msg.SetRcode(r, dns.RcodeNotImplemented)
		msg.Authoritative = false
	case len(r.Question) == 0:
		msg.SetRcode(r, dns.RcodeFormatError)
		msg.Authoritative = false
	default:
		client, subnet := s.clientLocation(w, r)
		specific := false
		for i, q := range r.Question {
			qtype := dns.TypeToString[q.Qtype]
			resp := s.engine.Resolve(types.Question{
				Name:  q.Name,
				Class: dns.ClassToString[q.Qclass],
				Type:  qtype,
			}, client)

			// the first question decides the response code
			if i == 0 {
				msg.Rcode = resp.Rcode
				msg.Authoritative = resp.Rcode != dns.RcodeRefused
			}
			msg.Answer = append(msg.Answer, resp.Answer...)
			msg.Ns = append(msg.Ns, resp.Ns...)
			specific = specific || resp.ClientSpecific
			metrics.QueriesTotal.WithLabelValues(qtype, dns.RcodeToString[resp.Rcode]).Inc()
		}
		if opt := r.IsEdns0(); opt != nil {
			msg.SetEdns0(opt.UDPSize(), opt.Do())
			if subnet != nil {
				// a non-zero scope tells caches the answer only holds for
				// that subnet
				echo := *subnet
				echo.SourceScope = 0
				if specific {
					echo.SourceScope = subnet.SourceNetmask
				}
				msg.IsEdns0().Option = append(msg.IsEdns0().Option, &echo)
			}
		}
	}

	if elapsed := timer.Duration(); elapsed > s.timeout {
		log.Logger.Warn().
			Str("component", "dns").
			Dur("elapsed", elapsed).
			Msg("Query exceeded deadline, dropping")
		return
	}

	msg.Truncate(maxResponseSize(w, r))
	if err := w.WriteMsg(msg); err != nil {
		log.Logger.Error().
			Err(err).
			Str("component", "dns").
			Msg("failed to write DNS response")
	}
	timer.ObserveDuration(metrics.QueryDuration)
}

// clientLocation locates the querying client, preferring an EDNS client
// subnet option over the socket peer
func (s *Server) clientLocation(w dns.ResponseWriter, r *dns.Msg) (*types.Location, *dns.EDNS0_SUBNET) {
	var (
		ip     net.IP
		subnet *dns.EDNS0_SUBNET
	)
	if opt := r.IsEdns0(); opt != nil {
		for _, o := range opt.Option {
			if e, ok := o.(*dns.EDNS0_SUBNET); ok {
				subnet = e
				ip = e.Address
				break
			}
		}
	}
	if ip == nil {
		switch addr := w.RemoteAddr().(type) {
		case *net.UDPAddr:
			ip = addr.IP
		case *net.TCPAddr:
			ip = addr.IP
		}
	}

	loc, ok := s.router.LocateIP(ip)
	if !ok {
		return nil, subnet
	}
	return &loc, subnet
}

func maxResponseSize(w dns.ResponseWriter, r *dns.Msg) int {
	if _, ok := w.RemoteAddr().(*net.TCPAddr); ok {
		return dns.MaxMsgSize
	}
	if opt := r.IsEdns0(); opt != nil && opt.UDPSize() > dns.MinMsgSize {
		return int(opt.UDPSize())
	}
	return dns.MinMsgSize
}
