package http

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// securityMetrics counts security events for shutdown-time reporting.
type securityMetrics struct {
	rateLimitHits int64
}

// Networks allowed to set X-Forwarded-For / X-Real-IP. Headers from any
// other peer are ignored so clients cannot spoof their own IP.
var trustedProxies = mustCIDRs(
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
)

func mustCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, len(cidrs))
	for i, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("bad trusted proxy CIDR %s: %v", cidr, err))
		}
		nets[i] = network
	}
	return nets
}

func fromTrustedProxy(ip net.IP) bool {
	for _, network := range trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// extractClientIP resolves the client address for rate limiting and logs.
// Forwarding headers are only honored when the direct peer is a trusted
// proxy, and only when they carry a parseable address.
func extractClientIP(r *http.Request) string {
	direct, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		direct = r.RemoteAddr
	}

	parsed := net.ParseIP(direct)
	if parsed == nil || !fromTrustedProxy(parsed) {
		return direct
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}
	return direct
}
