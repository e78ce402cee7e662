package geoip

import (
	"testing"
)

func TestOpen_EmptyPathDisabled(t *testing.T) {
	l := Open("")
	if l.Enabled() {
		t.Error("expected locator without database to be disabled")
	}
	if c := l.Country("8.8.8.8"); c != "" {
		t.Errorf("expected no country, got %q", c)
	}
}

func TestOpen_MissingFileDisabled(t *testing.T) {
	l := Open("/nonexistent/GeoLite2-Country.mmdb")
	if l.Enabled() {
		t.Error("expected locator to be disabled")
	}
	if err := l.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestPublicAddr(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"8.8.8.8", true},
		{"2001:4860:4860::8888", true},
		{"::ffff:8.8.4.4", true},
		{"10.0.0.5", false},
		{"192.168.1.20", false},
		{"127.0.0.1", false},
		{"::1", false},
		{"169.254.10.1", false},
		{"0.0.0.0", false},
		{"", false},
		{"kitchen.local", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if _, got := publicAddr(tt.addr); got != tt.want {
				t.Errorf("publicAddr(%q) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}
