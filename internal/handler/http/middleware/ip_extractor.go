package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPExtractor extracts the client IP used as the rate limit key.
type IPExtractor interface {
	ExtractIP(r *http.Request) (string, error)
}

// RemoteAddrExtractor uses the connection address only. Forwarding headers
// are ignored, so clients cannot rotate their key by spoofing them.
type RemoteAddrExtractor struct{}

// ExtractIP implements IPExtractor.
func (RemoteAddrExtractor) ExtractIP(r *http.Request) (string, error) {
	return extractIPFromAddr(r.RemoteAddr)
}

// ForwardedExtractor trusts X-Forwarded-For and X-Real-IP. Use it only when
// the relay runs behind a proxy that overwrites those headers.
type ForwardedExtractor struct{}

// ExtractIP implements IPExtractor.
func (ForwardedExtractor) ExtractIP(r *http.Request) (string, error) {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := parseFirstIP(xff); ip != "" {
			return ip, nil
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
			return ip.String(), nil
		}
	}
	return extractIPFromAddr(r.RemoteAddr)
}

// NewIPExtractor returns ForwardedExtractor when trustProxy is set and
// RemoteAddrExtractor otherwise.
func NewIPExtractor(trustProxy bool) IPExtractor {
	if trustProxy {
		return ForwardedExtractor{}
	}
	return RemoteAddrExtractor{}
}

// extractIPFromAddr extracts the IP address from a "host:port" or "IP" string.
//
//   - "192.168.1.1:8080" → "192.168.1.1"
//   - "[2001:db8::1]:8080" → "2001:db8::1"
//   - "127.0.0.1" → "127.0.0.1"
func extractIPFromAddr(addr string) (string, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		if ip := net.ParseIP(addr); ip != nil {
			return ip.String(), nil
		}
		return "", fmt.Errorf("invalid address format: %s", addr)
	}
	return host, nil
}

// parseFirstIP returns the first entry of a "client, proxy1, proxy2" list
// when it is a valid IP.
func parseFirstIP(s string) string {
	first, _, _ := strings.Cut(s, ",")
	if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
		return ip.String()
	}
	return ""
}
