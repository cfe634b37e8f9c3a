// Package security guards outbound fetches against server-side request forgery.
package security

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tavily-mcp/internal/domain"
)

// blockedRanges lists private, loopback, link-local and otherwise reserved
// blocks that a fetch must never reach when the guard is enabled.
var blockedRanges = []string{
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.0.0.0/24",
	"192.168.0.0/16",
	"198.18.0.0/15",
	"224.0.0.0/4",
	"240.0.0.0/4",
	"::/128",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
	"ff00::/8",
}

var parsedRanges []*net.IPNet

func init() {
	for _, cidr := range blockedRanges {
		_, ipnet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR %q: %v", cidr, err))
		}
		parsedRanges = append(parsedRanges, ipnet)
	}
}

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// IsPrivateIP reports whether ip falls within any blocked range.
func IsPrivateIP(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	for _, ipnet := range parsedRanges {
		if ipnet.Contains(ip) {
			return true
		}
	}
	return false
}

// Guard validates fetch targets and dials only public addresses.
type Guard struct {
	resolver Resolver
	dialer   *net.Dialer
}

// NewGuard returns a Guard. A nil resolver uses net.DefaultResolver.
func NewGuard(resolver Resolver) *Guard {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Guard{
		resolver: resolver,
		dialer: &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		},
	}
}

// CheckURL rejects non-http(s) URLs and hosts that resolve to a blocked address.
func (g *Guard) CheckURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return domain.NewDomainError("Guard.CheckURL", domain.ErrSSRFBlocked, fmt.Sprintf("invalid URL: %v", err))
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return domain.NewDomainError("Guard.CheckURL", domain.ErrSSRFBlocked,
			fmt.Sprintf("scheme %q not allowed, only http/https", u.Scheme))
	}
	host := u.Hostname()
	if host == "" {
		return domain.NewDomainError("Guard.CheckURL", domain.ErrSSRFBlocked, "empty hostname")
	}
	_, err = g.resolve(ctx, host)
	return err
}

// resolve returns the validated addresses of host. Every address must be
// public; one private answer fails the whole lookup.
func (g *Guard) resolve(ctx context.Context, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if IsPrivateIP(ip) {
			return nil, domain.NewDomainError("Guard.resolve", domain.ErrSSRFBlocked,
				fmt.Sprintf("IP %s is private/reserved", ip))
		}
		return []net.IP{ip}, nil
	}

	addrs, err := g.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, domain.NewDomainError("Guard.resolve", err, fmt.Sprintf("DNS lookup failed for %s", host))
	}
	if len(addrs) == 0 {
		return nil, domain.NewDomainError("Guard.resolve", fmt.Errorf("no addresses"), host)
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		if IsPrivateIP(a.IP) {
			return nil, domain.NewDomainError("Guard.resolve", domain.ErrSSRFBlocked,
				fmt.Sprintf("host %s resolves to private IP %s", host, a.IP))
		}
		ips = append(ips, a.IP)
	}
	return ips, nil
}

// DialContext resolves once, validates every answer, and connects to the
// first validated address so DNS cannot change between check and connect.
func (g *Guard) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}
	ips, err := g.resolve(ctx, host)
	if err != nil {
		return nil, err
	}
	return g.dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
}

// Transport returns an http.Transport whose every connection goes through
// the guard, redirects included.
func (g *Guard) Transport() *http.Transport {
	return &http.Transport{
		Proxy:                 nil,
		DialContext:           g.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
