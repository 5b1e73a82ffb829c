package infra

import (
	"net"
	"net/url"
	"time"

	"github.com/shieldtechhub/shieldagent/internal/domain"
)

const netcheckTimeout = 3 * time.Second

// DialNetworkChecker implements domain.NetworkChecker by attempting a TCP
// connection to the backend host. Cheaper than a full HTTPS round trip and
// honest about the path that matters: DNS plus reachability of the actual
// upstream.
type DialNetworkChecker struct {
	addr string
}

// NewDialNetworkChecker derives the probe address from the backend base
// URL. A URL without an explicit port probes 443.
func NewDialNetworkChecker(baseURL string) *DialNetworkChecker {
	addr := "8.8.8.8:53"
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host := u.Host
		if u.Port() == "" {
			port := "443"
			if u.Scheme == "http" {
				port = "80"
			}
			host = net.JoinHostPort(u.Hostname(), port)
		}
		addr = host
	}
	return &DialNetworkChecker{addr: addr}
}

func (c *DialNetworkChecker) IsNetworkAvailable() bool {
	conn, err := net.DialTimeout("tcp", c.addr, netcheckTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

var _ domain.NetworkChecker = (*DialNetworkChecker)(nil)
