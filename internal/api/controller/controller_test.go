package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bassista/go_relboard/internal/cache"
	"github.com/bassista/go_relboard/internal/remote"
	"github.com/bassista/go_relboard/internal/repository"
	"github.com/bassista/go_relboard/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stack struct {
	client   *remote.MemoryClient
	settings *repository.SettingsStore
	repos    *repository.RepositoryListStore
	status   *repository.StatusStore
	router   *gin.Engine
}

func newStack(t *testing.T, files map[string]string) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client := remote.NewMemoryClient(files)
	writes := storage.NewWriteSerializer()
	t.Cleanup(writes.Close)
	docs := storage.NewDocuments(client, cache.NewTTLCache(), writes)

	s := &stack{
		client:   client,
		settings: repository.NewSettingsStore(docs, repository.WithRefreshWindow(0)),
		repos:    repository.NewRepositoryListStore(docs, repository.WithRefreshWindow(0)),
		status:   repository.NewStatusStore(),
		router:   gin.New(),
	}

	sc := NewSettingsController(s.settings)
	s.router.GET("/settings", sc.GetSettings)
	s.router.PUT("/settings", sc.SaveSettings)
	s.router.GET("/settings/locale", sc.GetLocale)

	rc := NewRepositoryController(s.repos)
	s.router.POST("/repository/:name/acknowledge", rc.Acknowledge)

	st := NewStatusController(s.status)
	s.router.GET("/status", st.GetStatus)
	s.router.POST("/status/dismiss", st.Dismiss)
	return s
}

func (s *stack) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestSettingsController_GetReturnsDefaults(t *testing.T) {
	s := newStack(t, nil)

	w := s.do(http.MethodGet, "/settings", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got repository.AppSettings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, repository.DefaultSettings(), got)
}

func TestSettingsController_SaveAndLocale(t *testing.T) {
	s := newStack(t, nil)

	w := s.do(http.MethodPut, "/settings", `{"locale":"de"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got repository.AppSettings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "de", got.Locale)
	assert.Equal(t, "24h", got.TimeFormat)

	w = s.do(http.MethodGet, "/settings/locale", "")
	assert.JSONEq(t, `{"locale":"de"}`, w.Body.String())
}

func TestSettingsController_SaveErrors(t *testing.T) {
	s := newStack(t, nil)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, "/settings", `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, "/settings", `{"timeFormat":"99h"}`).Code)

	s.client.FailWrites(errors.New("503"))
	w := s.do(http.MethodPut, "/settings", `{"locale":"fr"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "could not save settings")
}

func TestSettingsController_ReadsSurviveRemoteFailure(t *testing.T) {
	s := newStack(t, nil)
	s.client.FailReads(errors.New("offline"))

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/settings", "").Code)
}

func TestRepositoryController_Acknowledge(t *testing.T) {
	s := newStack(t, nil)
	ctx := context.Background()
	require.NoError(t, s.repos.Save(ctx, []repository.TrackedRepository{{
		URL:           "https://github.com/acme/rocket",
		IsNew:         true,
		LatestRelease: &repository.ReleaseSnapshot{Tag: "v1.0.0"},
	}}))

	w := s.do(http.MethodPost, "/repository/acme_rocket/acknowledge", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got repository.TrackedRepository
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.False(t, got.IsNew)
	assert.Equal(t, "v1.0.0", got.LastSeenReleaseTag)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/repository/nope/acknowledge", "").Code)
}

func TestStatusController_Dismiss(t *testing.T) {
	s := newStack(t, nil)
	ctx := context.Background()

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/status/dismiss", "").Code,
		"nothing to dismiss before a version is known")

	v := "v1.4.0"
	require.NoError(t, s.status.Save(ctx, repository.SystemStatus{LatestKnownVersion: &v}))

	w := s.do(http.MethodPost, "/status/dismiss", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "v1.4.0", *s.status.Get(ctx).DismissedVersion)

	w = s.do(http.MethodPost, "/status/dismiss", `{"version":"v1.3.0"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got repository.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "v1.3.0", *got.DismissedVersion)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(storage.ErrSerializerClosed))
	assert.Equal(t, http.StatusBadGateway, statusFor(storage.ErrRemoteUnavailable))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(fmt.Errorf("could not save settings: %w", context.DeadlineExceeded)))
	assert.Equal(t, http.StatusBadRequest, statusFor(fmt.Errorf("could not save settings: %w: bad", repository.ErrInvalid)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestRepositoryController_AcknowledgeWhileStoreUnreadable(t *testing.T) {
	s := newStack(t, map[string]string{
		repository.RepositoriesDocument: `[{"url":"https://github.com/acme/rocket","isNew":true}]`,
	})
	s.client.FailReads(errors.New("connection reset"))

	w := s.do(http.MethodPost, "/repository/acme_rocket/acknowledge", "")
	assert.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())
	assert.Zero(t, s.client.Patches())

	stored, _ := s.client.File(repository.RepositoriesDocument)
	assert.JSONEq(t, `[{"url":"https://github.com/acme/rocket","isNew":true}]`, stored)
}
