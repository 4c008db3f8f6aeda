package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuditMiddleware extracts and stores the client IP for audit logging.
func AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("client_ip", getClientIP(c))
		c.Next()
	}
}

// getClientIP prefers proxy headers and falls back to RemoteAddr.
func getClientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); isValidIP(ip) {
			return ip
		}
	}

	for _, header := range []string{"X-Real-Ip", "CF-Connecting-IP"} {
		if ip := strings.TrimSpace(c.GetHeader(header)); isValidIP(ip) {
			return ip
		}
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}

func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}

// GetIPFromContext retrieves the IP stored by AuditMiddleware.
func GetIPFromContext(c *gin.Context) string {
	if ip, ok := c.Get("client_ip"); ok {
		if s, ok := ip.(string); ok {
			return s
		}
	}
	return getClientIP(c)
}
