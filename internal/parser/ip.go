package parser

import (
	"net/netip"
	"regexp"
	"strings"
)

var ipv4Re = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

// ExtractIPv4 returns the first valid IPv4 address found in text, or "".
func ExtractIPv4(text string) string {
	for _, cand := range ipv4Re.FindAllString(text, -1) {
		if addr, err := netip.ParseAddr(cand); err == nil && addr.Is4() {
			return addr.String()
		}
	}
	return ""
}

// normalizeIP validates an address that may carry a port or brackets.
func normalizeIP(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return "", false
	}
	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.Unmap().String(), true
	}
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap().String(), true
	}
	return "", false
}

// IsPrivate reports whether ip is a private, loopback or link-local address.
// Unparsable input is reported as not private.
func IsPrivate(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast()
}
