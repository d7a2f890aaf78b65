package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/chorely/chorely/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP(t *testing.T) {
	proxies := []string{"10.0.0.0/8", "127.0.0.1/32", "fd00::/8"}

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		config     *pkghttp.IPConfig
		want       string
	}{
		{
			name:       "direct client cannot spoof forwarded headers",
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4, 5.6.7.8",
			xri:        "192.168.1.1",
			config:     pkghttp.NewIPConfig(proxies),
			want:       "203.0.113.10",
		},
		{
			name:       "trusted proxy forwards first valid address",
			remoteAddr: "10.0.0.5:54321",
			xff:        "garbage, 203.0.113.42, 10.0.0.5",
			config:     pkghttp.NewIPConfig(proxies),
			want:       "203.0.113.42",
		},
		{
			name:       "trusted proxy falls back to X-Real-IP",
			remoteAddr: "10.0.0.5:54321",
			xri:        "203.0.113.7",
			config:     pkghttp.NewIPConfig(proxies),
			want:       "203.0.113.7",
		},
		{
			name:       "ipv6 trusted proxy",
			remoteAddr: "[fd00::1]:443",
			xff:        "2001:db8::42",
			config:     pkghttp.NewIPConfig(proxies),
			want:       "2001:db8::42",
		},
		{
			name:       "nil config ignores headers",
			remoteAddr: "127.0.0.1:1234",
			xff:        "1.2.3.4",
			want:       "127.0.0.1",
		},
		{
			name:       "literal config is honoured",
			remoteAddr: "127.0.0.1:1234",
			xff:        "1.2.3.4",
			config:     &pkghttp.IPConfig{TrustedProxies: proxies},
			want:       "1.2.3.4",
		},
		{
			name:       "invalid cidr is skipped",
			remoteAddr: "10.0.0.5:1234",
			xff:        "1.2.3.4",
			config:     pkghttp.NewIPConfig([]string{"not-a-cidr"}),
			want:       "10.0.0.5",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "198.51.100.3",
			config:     pkghttp.NewIPConfig(nil),
			want:       "198.51.100.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/auth/login", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			assert.Equal(t, tt.want, pkghttp.ExtractClientIP(req, tt.config))
		})
	}
}
