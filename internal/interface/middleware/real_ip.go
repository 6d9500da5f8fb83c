package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIP sets the real client IP into Gin context (key: "real_ip").
//
// Forwarding headers are honored only when the peer address is one of
// trustedProxies (IPs or CIDRs). Otherwise the peer address is used as is.
// Priority behind a trusted proxy: CF-Connecting-IP, the right-most
// untrusted X-Forwarded-For hop, X-Real-IP, then the peer address.
func RealIP(trustedProxies []string) gin.HandlerFunc {
	trusted := parseProxies(trustedProxies)
	return func(c *gin.Context) {
		c.Set("real_ip", resolveIP(c, trusted))
		c.Next()
	}
}

func resolveIP(c *gin.Context, trusted []*net.IPNet) string {
	remote := parseIP(c.RemoteIP())
	if remote == "" || !isTrusted(remote, trusted) {
		return remote
	}
	if ip := parseIP(c.GetHeader("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip := parseIP(hops[i])
			if ip == "" {
				break
			}
			if !isTrusted(ip, trusted) {
				return ip
			}
		}
	}
	if ip := parseIP(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}
	return remote
}

func parseProxies(list []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(list))
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.Contains(s, "/") {
			ip := net.ParseIP(s)
			if ip == nil {
				continue
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		if _, n, err := net.ParseCIDR(s); err == nil {
			nets = append(nets, n)
		}
	}
	return nets
}

func isTrusted(ip string, trusted []*net.IPNet) bool {
	parsed := net.ParseIP(ip)
	for _, n := range trusted {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
