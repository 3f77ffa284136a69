package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bassista/go_relboard/internal/api/controller"
	"github.com/bassista/go_relboard/internal/cache"
	"github.com/bassista/go_relboard/internal/remote"
	"github.com/bassista/go_relboard/internal/repository"
	"github.com/bassista/go_relboard/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestTimeout_DisabledForNonPositiveDuration(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		r := gin.New()
		r.Use(RequestTimeout(d))

		var hasDeadline bool
		r.GET("/api/settings", func(c *gin.Context) {
			_, hasDeadline = c.Request.Context().Deadline()
			c.String(http.StatusOK, "ok")
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/settings", nil))

		assert.Equal(t, http.StatusOK, w.Code, "duration %v", d)
		assert.False(t, hasDeadline, "duration %v", d)
	}
}

func TestRequestTimeout_HandlerGivingUpGets504(t *testing.T) {
	r := gin.New()
	r.Use(RequestTimeout(30 * time.Millisecond))
	r.GET("/api/status", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.JSONEq(t, `{"error":"request timeout"}`, w.Body.String())
}

func TestRequestTimeout_ResponseWrittenInTimeIsKept(t *testing.T) {
	r := gin.New()
	r.Use(RequestTimeout(30 * time.Millisecond))
	r.GET("/api/status", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
		<-c.Request.Context().Done()
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestTimeout_QueuedWriteSkippedAfterDeadline(t *testing.T) {
	client := remote.NewMemoryClient(map[string]string{repository.SettingsDocument: `{"locale":"en"}`})
	writes := storage.NewWriteSerializer()
	t.Cleanup(writes.Close)
	docs := storage.NewDocuments(client, cache.NewTTLCache(), writes)
	settings := repository.NewSettingsStore(docs)

	// Occupy the queue with a slow write that outlives the request deadline.
	started := make(chan struct{})
	release := make(chan struct{})
	slow := make(chan error, 1)
	go func() {
		slow <- writes.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	time.AfterFunc(120*time.Millisecond, func() { close(release) })

	r := gin.New()
	r.Use(RequestTimeout(40 * time.Millisecond))
	r.PUT("/api/settings", controller.NewSettingsController(settings).SaveSettings)

	req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{"locale":"de"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.NoError(t, <-slow)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "could not save settings")
	assert.Contains(t, w.Body.String(), context.DeadlineExceeded.Error())

	assert.Zero(t, client.Patches(), "the skipped write never reached the store")
	stored, _ := client.File(repository.SettingsDocument)
	assert.JSONEq(t, `{"locale":"en"}`, stored)
	assert.Equal(t, "en", settings.Get(context.Background()).Locale)
}
