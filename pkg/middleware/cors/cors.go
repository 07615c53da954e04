package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	allowHeaders  = "Authorization, Content-Type, X-Requested-With, X-Request-ID"
	allowMethods  = "GET, POST, PUT, DELETE, OPTIONS"
	exposeHeaders = "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, Retry-After, Content-Disposition"
)

// Origins matches request origins against a configured allow list. An empty
// list, or one containing "*", admits every origin.
type Origins struct {
	allowAll bool
	set      map[string]struct{}
}

// NewOrigins normalises allowed into a matcher.
func NewOrigins(allowed []string) Origins {
	o := Origins{allowAll: len(allowed) == 0, set: make(map[string]struct{}, len(allowed))}
	for _, origin := range allowed {
		origin = normalize(origin)
		if origin == "*" {
			o.allowAll = true
			continue
		}
		if origin != "" {
			o.set[origin] = struct{}{}
		}
	}
	return o
}

// AllowAll reports whether every origin is admitted.
func (o Origins) AllowAll() bool {
	return o.allowAll
}

// OriginAllowed reports whether origin may call the API. Matching ignores
// case and a trailing slash.
func (o Origins) OriginAllowed(origin string) bool {
	if o.allowAll {
		return true
	}
	_, ok := o.set[normalize(origin)]
	return ok
}

// New returns a CORS middleware that honors a list of allowed origins.
func New(allowedOrigins []string) gin.HandlerFunc {
	origins := NewOrigins(allowedOrigins)

	return func(c *gin.Context) {
		header := c.Writer.Header()
		origin := c.GetHeader("Origin")
		switch {
		case origin != "" && origins.OriginAllowed(origin):
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
		case origin == "" && origins.AllowAll():
			header.Set("Access-Control-Allow-Origin", "*")
		}

		header.Set("Vary", "Origin")
		header.Set("Access-Control-Allow-Headers", allowHeaders)
		header.Set("Access-Control-Allow-Methods", allowMethods)
		header.Set("Access-Control-Expose-Headers", exposeHeaders)
		header.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func normalize(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}
