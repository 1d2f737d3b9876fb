package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders hardening headers for a JSON API. Grade data and
// workbooks are personal, so no response may be stored by a shared cache.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		if c.Request.URL.Path != "/health" {
			h.Set("Cache-Control", "no-store")
		}

		c.Next()
	}
}
