// Package netx validates outbound URLs before the system connects to them,
// rejecting destinations that resolve into private, loopback, link-local, or
// otherwise reserved address space (SSRF defense).
package netx

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/authcore/internal/common"
)

// Address ranges rejected by the guard. The devOnly ranges are the ones a
// developer-mode deployment may legitimately need to reach (local services,
// docker networks); the rest are blocked unconditionally.
var blockedCIDRs = []struct {
	cidr    string
	devOnly bool
}{
	// IPv4 private networks (RFC1918).
	{"10.0.0.0/8", true},
	{"172.16.0.0/12", true},
	{"192.168.0.0/16", true},

	// IPv4 loopback.
	{"127.0.0.0/8", true},

	// Link-local, including the 169.254.169.254 cloud metadata endpoint.
	{"169.254.0.0/16", false},

	// IPv4 special purpose.
	{"0.0.0.0/8", false},          // "this" network
	{"100.64.0.0/10", true},       // shared address space (CGN)
	{"192.0.0.0/24", false},       // IETF protocol assignments
	{"192.0.2.0/24", false},       // TEST-NET-1
	{"198.18.0.0/15", false},      // benchmarking
	{"198.51.100.0/24", false},    // TEST-NET-2
	{"203.0.113.0/24", false},     // TEST-NET-3
	{"224.0.0.0/4", false},        // multicast
	{"240.0.0.0/4", false},        // reserved
	{"255.255.255.255/32", false}, // broadcast

	// IPv6.
	{"::1/128", true},       // loopback
	{"::/128", false},       // unspecified
	{"100::/64", false},     // discard prefix
	{"2001:db8::/32", false},
	{"fc00::/7", true},  // unique local
	{"fe80::/10", false}, // link-local
	{"ff00::/8", false}, // multicast
}

// Hostnames rejected outright regardless of what they resolve to.
var blockedHosts = []string{
	"metadata.google.internal",
	"metadata",
	"instance-data",
	"localhost",
}

// defaultResolveTimeout caps the DNS lookup inside Validate. It is
// deliberately much shorter than any HTTP request timeout so a slow
// resolver cannot turn the validation step itself into a stall.
const defaultResolveTimeout = 3 * time.Second

// ResolvedTarget is the result of a successful validation: the parsed URL
// and every address the hostname resolved to at validation time. It is a
// fresh per-call verdict; DNS answers change, so it must never be cached or
// reused for a later connection attempt.
type ResolvedTarget struct {
	URL   *url.URL
	Addrs []net.IP
}

// Guard validates egress URLs. It holds no mutable state and is safe for
// concurrent use.
type Guard struct {
	allowPrivate   bool
	resolveTimeout time.Duration

	// lookup is a test seam; defaults to net.DefaultResolver.
	lookup func(ctx context.Context, host string) ([]net.IP, error)

	strict []*net.IPNet // always blocked
	dev    []*net.IPNet // blocked unless allowPrivate
}

// NewGuard builds a Guard. allowPrivate permits loopback and RFC1918-style
// destinations for local development; the default posture is deny.
func NewGuard(allowPrivate bool) *Guard {
	g := &Guard{
		allowPrivate:   allowPrivate,
		resolveTimeout: defaultResolveTimeout,
		lookup: func(ctx context.Context, host string) ([]net.IP, error) {
			return net.DefaultResolver.LookupIP(ctx, "ip", host)
		},
	}
	for _, b := range blockedCIDRs {
		_, network, err := net.ParseCIDR(b.cidr)
		if err != nil {
			panic(fmt.Sprintf("bad builtin CIDR %q: %v", b.cidr, err))
		}
		if b.devOnly {
			g.dev = append(g.dev, network)
		} else {
			g.strict = append(g.strict, network)
		}
	}
	return g
}

// Validate parses rawURL, resolves its hostname, and rejects it with
// common.ErrSSRFBlocked if the scheme is not http/https, the hostname is a
// known internal name, or ANY resolved address falls in a blocked range
// (fail closed on mixed public/private answers).
//
// The resolved addresses are returned so the caller can pin the actual
// connection to a validated address (see Guard.Client). Even then a DNS
// rebinding window remains between this call and the dial unless the
// transport itself uses the pinned address; callers must re-validate
// immediately before every connection attempt, not once at config time.
func (g *Guard) Validate(ctx context.Context, rawURL string) (*ResolvedTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable url", common.ErrSSRFBlocked)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q not permitted", common.ErrSSRFBlocked, u.Scheme)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return nil, fmt.Errorf("%w: empty hostname", common.ErrSSRFBlocked)
	}

	lower := strings.ToLower(hostname)
	for _, blocked := range blockedHosts {
		if lower == blocked || strings.HasSuffix(lower, "."+blocked) {
			return nil, fmt.Errorf("%w: hostname %q", common.ErrSSRFBlocked, hostname)
		}
	}

	var addrs []net.IP
	if ip := net.ParseIP(hostname); ip != nil {
		addrs = []net.IP{ip}
	} else {
		rctx, cancel := context.WithTimeout(ctx, g.resolveTimeout)
		defer cancel()

		addrs, err = g.lookup(rctx, hostname)
		if err != nil {
			return nil, fmt.Errorf("%w: resolving %q: %v", common.ErrSSRFBlocked, hostname, err)
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: no addresses for %q", common.ErrSSRFBlocked, hostname)
	}

	for _, ip := range addrs {
		if g.isBlocked(ip) {
			return nil, fmt.Errorf("%w: %s resolves to blocked address %s", common.ErrSSRFBlocked, hostname, ip)
		}
	}

	return &ResolvedTarget{URL: u, Addrs: addrs}, nil
}

func (g *Guard) isBlocked(ip net.IP) bool {
	for _, network := range g.strict {
		if network.Contains(ip) {
			return true
		}
	}
	if g.allowPrivate {
		return false
	}
	for _, network := range g.dev {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
