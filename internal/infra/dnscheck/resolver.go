package dnscheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/testwebinoue-debug/sept3/internal/core/service"
)

// Defaults.
const (
	DefaultTimeout    = 5 * time.Second
	DefaultResolvConf = "/etc/resolv.conf"
)

// ErrNoServers is returned when no nameserver could be determined.
var ErrNoServers = errors.New("dnscheck: no nameservers configured")

// Config configures a Resolver.
type Config struct {
	// Servers are "host:port" nameservers. Empty reads ResolvConf.
	Servers []string

	// ResolvConf is read when Servers is empty. Default: /etc/resolv.conf.
	ResolvConf string

	Timeout time.Duration
}

// Resolver implements service.DomainResolver.
type Resolver struct {
	client  *dns.Client
	servers []string
}

// New creates a Resolver.
func New(cfg Config) (*Resolver, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	servers := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		servers = append(servers, s)
	}

	if len(servers) == 0 {
		path := cfg.ResolvConf
		if path == "" {
			path = DefaultResolvConf
		}
		cc, err := dns.ClientConfigFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("dnscheck: read %s: %w", path, err)
		}
		for _, s := range cc.Servers {
			servers = append(servers, net.JoinHostPort(s, cc.Port))
		}
	}
	if len(servers) == 0 {
		return nil, ErrNoServers
	}

	return &Resolver{
		client:  &dns.Client{Timeout: cfg.Timeout},
		servers: servers,
	}, nil
}

// HasMailHost reports whether domain has MX records or, failing that, an
// A record. A non-existent domain is (false, nil); transport failures are
// returned as errors.
func (r *Resolver) HasMailHost(ctx context.Context, domain string) (bool, error) {
	domain = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	if domain == "" {
		return false, nil
	}
	fqdn := dns.Fqdn(domain)

	for _, qtype := range []uint16{dns.TypeMX, dns.TypeA} {
		resp, err := r.exchange(ctx, fqdn, qtype)
		if err != nil {
			return false, err
		}
		if resp.Rcode == dns.RcodeNameError {
			return false, nil
		}
		if resp.Rcode != dns.RcodeSuccess {
			return false, fmt.Errorf("dnscheck: %s %s: %s",
				dns.TypeToString[qtype], domain, dns.RcodeToString[resp.Rcode])
		}
		if hasType(resp.Answer, qtype) {
			return true, nil
		}
	}
	return false, nil
}

func (r *Resolver) exchange(ctx context.Context, fqdn string, qtype uint16) (*dns.Msg, error) {
	m := new(dns.Msg)
	m.SetQuestion(fqdn, qtype)
	m.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, _, err := r.client.ExchangeContext(ctx, m, server)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Truncated {
			tcp := *r.client
			tcp.Net = "tcp"
			resp, _, err = tcp.ExchangeContext(ctx, m, server)
			if err != nil {
				lastErr = err
				continue
			}
		}
		return resp, nil
	}
	return nil, fmt.Errorf("dnscheck: %s %s: %w", dns.TypeToString[qtype], fqdn, lastErr)
}

func hasType(rrs []dns.RR, qtype uint16) bool {
	for _, rr := range rrs {
		if rr.Header().Rrtype == qtype {
			return true
		}
	}
	return false
}

var _ service.DomainResolver = (*Resolver)(nil)
