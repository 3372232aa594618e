package middlewares

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultContentSecurityPolicy fits a JSON API: nothing it returns should be
// rendered, framed or allowed to load anything.
const DefaultContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

type SecurityOptions struct {
	// HSTSMaxAge enables Strict-Transport-Security when positive. Leave it
	// zero unless the API is only reachable over TLS.
	HSTSMaxAge            time.Duration
	HSTSIncludeSubdomains bool
	// ContentSecurityPolicy overrides DefaultContentSecurityPolicy.
	ContentSecurityPolicy string
}

func (o SecurityOptions) hstsValue() string {
	if o.HSTSMaxAge <= 0 {
		return ""
	}
	value := "max-age=" + strconv.FormatInt(int64(o.HSTSMaxAge/time.Second), 10)
	if o.HSTSIncludeSubdomains {
		value += "; includeSubDomains"
	}
	return value
}

// SecurityHeaders sets the response headers shared by every route. Floor
// state changes every cycle, so /api responses are never cached.
func SecurityHeaders(opts SecurityOptions) gin.HandlerFunc {
	csp := opts.ContentSecurityPolicy
	if csp == "" {
		csp = DefaultContentSecurityPolicy
	}
	hsts := opts.hstsValue()

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Content-Security-Policy", csp)
		h.Set("Referrer-Policy", "no-referrer")
		if hsts != "" {
			h.Set("Strict-Transport-Security", hsts)
		}
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			h.Set("Cache-Control", "no-store")
		}

		c.Next()
	}
}
