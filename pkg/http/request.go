package http

import (
	"net"
	"net/http"
	"strings"
)

// IPConfig holds the proxies whose forwarding headers are believed
type IPConfig struct {
	TrustedProxies []string // CIDR ranges

	nets []*net.IPNet
}

// NewIPConfig parses the trusted proxy CIDRs once. Invalid ranges are skipped.
func NewIPConfig(trustedProxies []string) *IPConfig {
	cfg := &IPConfig{TrustedProxies: trustedProxies}
	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			continue
		}
		cfg.nets = append(cfg.nets, ipNet)
	}
	return cfg
}

// ExtractClientIP returns the address the login limiter keys on.
// X-Forwarded-For and X-Real-IP are only honoured when the direct peer is a
// trusted proxy; otherwise a client could pick its own bucket.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := remoteAddr(r)

	if config == nil || !config.trusts(remoteIP) {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			ip = strings.TrimSpace(ip)
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}

	return remoteIP
}

func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

func (c *IPConfig) trusts(ip string) bool {
	nets := c.nets
	if nets == nil && len(c.TrustedProxies) > 0 {
		// built as a literal, ranges not parsed yet
		nets = NewIPConfig(c.TrustedProxies).nets
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, ipNet := range nets {
		if ipNet.Contains(parsed) {
			return true
		}
	}
	return false
}
