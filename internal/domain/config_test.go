package domain

import (
	"net/netip"
	"testing"
)

func TestTrustedProxyPrefixes(t *testing.T) {
	cfg := ServerConfig{TrustedProxies: []string{"10.1.2.3/8", " 192.0.2.7 ", "", "::ffff:198.51.100.1", "2001:db8::/32"}}

	prefixes, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		t.Fatalf("TrustedProxyPrefixes failed: %v", err)
	}

	want := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.0.2.7/32"),
		netip.MustParsePrefix("198.51.100.1/32"),
		netip.MustParsePrefix("2001:db8::/32"),
	}
	if len(prefixes) != len(want) {
		t.Fatalf("expected %d prefixes, got %v", len(want), prefixes)
	}
	for i := range want {
		if prefixes[i] != want[i] {
			t.Errorf("prefix %d: expected %v, got %v", i, want[i], prefixes[i])
		}
	}

	for _, bad := range []string{"proxy.internal", "10.0.0.0/40", "300.1.1.1"} {
		if _, err := (ServerConfig{TrustedProxies: []string{bad}}).TrustedProxyPrefixes(); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
