package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func corsRequest(allowed, method, origin string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(CORSMiddleware(allowed))
	r.GET("/api/settings", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(method, "/api/settings", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSMiddleware_AllowAll(t *testing.T) {
	w := corsRequest("*", http.MethodGet, "http://example.com")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Vary"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"), "no credentials with the wildcard")
}

func TestCORSMiddleware_ListedOrigin(t *testing.T) {
	w := corsRequest("http://allowed.com, http://also-allowed.com", http.MethodGet, "http://also-allowed.com")

	assert.Equal(t, "http://also-allowed.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSMiddleware_UnlistedOrigin(t *testing.T) {
	w := corsRequest("http://allowed.com", http.MethodGet, "http://evil.com")

	assert.Equal(t, http.StatusOK, w.Code, "the request itself is served, the browser blocks it")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	w := corsRequest("*", http.MethodOptions, "http://example.com")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestCORSMiddleware_EmptyList(t *testing.T) {
	w := corsRequest("", http.MethodGet, "http://example.com")

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
