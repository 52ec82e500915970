package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIPIgnoresHeadersFromUntrustedPeer(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	req.RemoteAddr = "198.51.100.10:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	req.Header.Set("X-Real-IP", "203.0.113.6")

	if got := ClientIP(req, nil); got != "198.51.100.10" {
		t.Fatalf("client ip = %q, want peer address", got)
	}
}

func TestClientIPBehindTrustedProxy(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"10.0.0.0/8", " ", "192.168.1.10"})
	if err != nil {
		t.Fatalf("new trusted proxies: %v", err)
	}
	cases := map[string]struct {
		xff, realIP, want string
	}{
		"single forwarded hop":        {xff: "203.0.113.5", want: "203.0.113.5"},
		"skips trusted hops":          {xff: "203.0.113.5, 10.1.2.3", want: "203.0.113.5"},
		"spoofed left hop ignored":    {xff: "1.1.1.1, 203.0.113.9, 10.1.2.3", want: "203.0.113.9"},
		"only trusted hops":           {xff: "10.0.0.5, 10.0.0.6", want: "10.0.0.5"},
		"garbage xff uses x-real-ip":  {xff: "nope", realIP: "203.0.113.7", want: "203.0.113.7"},
		"no headers returns the peer": {want: "10.0.0.20"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
			req.RemoteAddr = "10.0.0.20:443"
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			if got := ClientIP(req, trusted); got != tc.want {
				t.Fatalf("client ip = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewTrustedProxiesRejectsGarbage(t *testing.T) {
	if _, err := NewTrustedProxies([]string{"10.0.0.0/33"}); err == nil {
		t.Fatalf("expected error for invalid prefix")
	}
	if _, err := NewTrustedProxies([]string{"proxy.local"}); err == nil {
		t.Fatalf("expected error for hostname entry")
	}
	tp, err := NewTrustedProxies([]string{"", "  "})
	if err != nil || tp != nil {
		t.Fatalf("expected nil proxies for blank input, got %v %v", tp, err)
	}
}
