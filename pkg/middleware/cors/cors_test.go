package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestOriginsMatching(t *testing.T) {
	origins := NewOrigins([]string{"https://Portal.example.com/", " "})

	assert.False(t, origins.AllowAll())
	assert.True(t, origins.OriginAllowed("https://portal.example.com"))
	assert.True(t, origins.OriginAllowed("https://PORTAL.example.com/"))
	assert.False(t, origins.OriginAllowed("https://evil.example.com"))
	assert.False(t, origins.OriginAllowed(""))

	assert.True(t, NewOrigins(nil).OriginAllowed("https://anything.test"))
	assert.True(t, NewOrigins([]string{"https://a.test", "*"}).AllowAll())
}

func TestMiddlewareHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New([]string{"https://portal.example.com"}))
	r.GET("/grades", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/grades", nil)
	req.Header.Set("Origin", "https://portal.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://portal.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Retry-After")

	req = httptest.NewRequest(http.MethodGet, "/grades", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestPreflightShortCircuits(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(nil))
	r.OPTIONS("/grades", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/grades", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
