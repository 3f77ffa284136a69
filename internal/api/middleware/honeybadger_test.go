package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bassista/go_relboard/internal/api/controller"
	"github.com/bassista/go_relboard/internal/cache"
	"github.com/bassista/go_relboard/internal/remote"
	"github.com/bassista/go_relboard/internal/repository"
	"github.com/bassista/go_relboard/internal/storage"
	"github.com/gin-gonic/gin"
	honeybadger "github.com/honeybadger-io/honeybadger-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notice struct {
	err   interface{}
	extra []interface{}
}

// recorder collects notices instead of sending them.
type recorder struct {
	mu      sync.Mutex
	notices []notice
}

func (r *recorder) notify(err interface{}, extra ...interface{}) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice{err: err, extra: extra})
	return "id", nil
}

func (r *recorder) tags(i int) honeybadger.Tags {
	for _, e := range r.notices[i].extra {
		if tags, ok := e.(honeybadger.Tags); ok {
			return tags
		}
	}
	return nil
}

func TestHoneybadgerMiddleware_DisabledPassesThrough(t *testing.T) {
	t.Setenv("HONEYBADGER_API_KEY", "")

	r := gin.New()
	r.Use(HoneybadgerMiddleware(logrus.New()))
	r.PUT("/api/settings", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/settings", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestReportFailures_StoreFailureIsReportedWithCause(t *testing.T) {
	client := remote.NewMemoryClient(nil)
	client.FailWrites(errors.New("502 bad gateway"))
	writes := storage.NewWriteSerializer()
	t.Cleanup(writes.Close)
	settings := repository.NewSettingsStore(storage.NewDocuments(client, cache.NewTTLCache(), writes))

	rec := &recorder{}
	r := gin.New()
	r.Use(reportFailures(logrus.New(), rec.notify))
	r.PUT("/api/settings", controller.NewSettingsController(settings).SaveSettings)

	req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{"locale":"de"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Len(t, rec.notices, 1)
	cause, ok := rec.notices[0].err.(error)
	require.True(t, ok, "the store error is the notice error")
	assert.ErrorIs(t, cause, storage.ErrRemoteUnavailable)
	assert.Equal(t, honeybadger.Tags{"store", "http"}, rec.tags(0))
	assert.Contains(t, rec.notices[0].extra, honeybadger.Context{"method": http.MethodPut, "path": "/api/settings", "status": http.StatusBadGateway})
}

func TestReportFailures_StatusesWithoutAttachedError(t *testing.T) {
	tests := []struct {
		status int
		tags   honeybadger.Tags
	}{
		{http.StatusOK, nil},
		{http.StatusNotFound, nil},
		{http.StatusBadRequest, honeybadger.Tags{"4XX", "http"}},
		{http.StatusInternalServerError, honeybadger.Tags{"5XX", "http"}},
		{http.StatusServiceUnavailable, honeybadger.Tags{"5XX", "http"}},
		{http.StatusGatewayTimeout, honeybadger.Tags{"timeout", "http"}},
	}
	for _, tt := range tests {
		rec := &recorder{}
		r := gin.New()
		r.Use(reportFailures(logrus.New(), rec.notify))
		r.GET("/api/status", func(c *gin.Context) { c.Status(tt.status) })

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/status", nil))

		if tt.tags == nil {
			assert.Empty(t, rec.notices, "status %d", tt.status)
			continue
		}
		require.Len(t, rec.notices, 1, "status %d", tt.status)
		assert.Equal(t, tt.tags, rec.tags(0), "status %d", tt.status)
		assert.Contains(t, rec.notices[0].err, "/api/status")
	}
}

func TestReportFailures_PanicIsReportedAndRecovered(t *testing.T) {
	rec := &recorder{}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reportFailures(logrus.New(), rec.notify))
	r.GET("/api/status", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, rec.notices, 1)
	assert.Equal(t, "Panic: GET /api/status", rec.notices[0].err)
	assert.Equal(t, honeybadger.Tags{"panic", "http"}, rec.tags(0))
}
