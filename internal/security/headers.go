// Package security provides HTTP hardening shared by both services.
package security

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeadersMiddleware adds security headers to all responses. Both services
// only speak JSON and WebSocket, so the CSP forbids everything else.
func HeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; connect-src 'self' ws: wss:; frame-ancestors 'none'")
		h.Set("Cache-Control", "no-store")
		c.Next()
	}
}

// Origins is the set of browser origins allowed to call the services.
type Origins struct {
	any     bool
	allowed map[string]struct{}
}

// NewOrigins parses a configured origin list. "*" allows every origin.
// Entries are compared case-insensitively and without a trailing slash.
func NewOrigins(list []string) Origins {
	o := Origins{allowed: make(map[string]struct{}, len(list))}
	for _, s := range list {
		if s == "*" {
			o.any = true
			continue
		}
		o.allowed[normalizeOrigin(s)] = struct{}{}
	}
	return o
}

// Allows reports whether a browser origin is on the list.
func (o Origins) Allows(origin string) bool {
	if o.any {
		return true
	}
	_, ok := o.allowed[normalizeOrigin(origin)]
	return ok
}

// CheckWebSocket is a websocket.Upgrader CheckOrigin func. Non-browser
// clients send no Origin and are always allowed, as are pages served from
// the same host.
func (o Origins) CheckWebSocket(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || o.Allows(origin) {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// CORS answers preflights and decorates responses for allowed origins.
func (o Origins) CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || !o.Allows(origin) {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
		h.Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")
		// no credentials when every origin is allowed
		if !o.any {
			h.Set("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			h.Set("Access-Control-Max-Age", "86400")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func normalizeOrigin(s string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(s), "/"))
}
