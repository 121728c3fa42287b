package health

import (
	"context"
	"fmt"
	"time"

	"github.com/miekg/dns"
)

// DNSChecker queries a zone's SOA record and expects an authoritative answer
type DNSChecker struct {
	// Address is the server to query, host:port
	Address string

	// Zone is the origin whose SOA is requested
	Zone string

	// Network is "udp" (default) or "tcp"
	Network string

	// Timeout is the exchange timeout (default: 2 seconds)
	Timeout time.Duration
}

// NewDNSChecker creates a new DNS health checker
func NewDNSChecker(address, zone string) *DNSChecker {
	return &DNSChecker{
		Address: address,
		Zone:    dns.Fqdn(zone),
		Network: "udp",
		Timeout: 2 * time.Second,
	}
}

// Check performs the DNS health check
func (d *DNSChecker) Check(ctx context.Context) Result {
	start := time.Now()
	fail := func(format string, args ...any) Result {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf(format, args...),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	m := new(dns.Msg)
	m.SetQuestion(d.Zone, dns.TypeSOA)

	c := &dns.Client{Net: d.Network, Timeout: d.Timeout}
	resp, _, err := c.ExchangeContext(ctx, m, d.Address)
	if err != nil {
		return fail("query failed: %v", err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return fail("SOA %s: %s", d.Zone, dns.RcodeToString[resp.Rcode])
	}
	if !resp.Authoritative {
		return fail("SOA %s: answer is not authoritative", d.Zone)
	}
	for _, rr := range resp.Answer {
		if _, ok := rr.(*dns.SOA); ok {
			return Result{
				Healthy:   true,
				Message:   fmt.Sprintf("SOA %s answered over %s", d.Zone, d.Network),
				CheckedAt: start,
				Duration:  time.Since(start),
			}
		}
	}
	return fail("SOA %s: no SOA in answer", d.Zone)
}

// Type returns the health check type
func (d *DNSChecker) Type() CheckType {
	return CheckTypeDNS
}

// WithNetwork sets the transport used for the query
func (d *DNSChecker) WithNetwork(network string) *DNSChecker {
	d.Network = network
	return d
}

// WithTimeout sets the exchange timeout
func (d *DNSChecker) WithTimeout(timeout time.Duration) *DNSChecker {
	d.Timeout = timeout
	return d
}
