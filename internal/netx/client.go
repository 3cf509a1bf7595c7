package netx

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authcore/internal/common"
)

// Client returns an http.Client whose dials go through the guard: the
// hostname is re-resolved at connection time, every answer is re-checked
// against the blocklist, and the socket is opened to the first validated
// address rather than letting the transport resolve on its own. Redirect
// targets are re-validated the same way.
//
// This narrows the DNS-rebinding window between Validate and the actual
// connection; it does not close it entirely, because the check and the dial
// are still two steps. That residual window is an accepted limitation.
func (g *Guard) Client(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}

			var ips []net.IP
			if ip := net.ParseIP(host); ip != nil {
				ips = []net.IP{ip}
			} else {
				rctx, cancel := context.WithTimeout(ctx, g.resolveTimeout)
				defer cancel()
				ips, err = g.lookup(rctx, host)
				if err != nil {
					return nil, err
				}
			}
			if len(ips) == 0 {
				return nil, common.ErrSSRFBlocked
			}
			for _, ip := range ips {
				if g.isBlocked(ip) {
					return nil, common.ErrSSRFBlocked
				}
			}

			return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
		},
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return http.ErrUseLastResponse
			}
			_, err := g.Validate(req.Context(), req.URL.String())
			return err
		},
	}
}
