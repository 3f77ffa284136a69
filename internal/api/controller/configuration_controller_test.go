package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bassista/go_relboard/internal/config"
	"github.com/gin-gonic/gin"
)

func TestConfigurationController_GetConfiguration(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name         string
		store        config.StoreConfig
		poller       bool
		expectedBody ConfigurationResponse
	}{
		{
			name:         "gist with credentials",
			store:        config.StoreConfig{Backend: config.BackendGist, Mode: config.ModeLive, Token: "t", GistID: "g", CacheTTL: 30 * time.Second},
			poller:       true,
			expectedBody: ConfigurationResponse{Backend: "gist", Mode: "live", CacheTTLSec: 30, PollerEnabled: true, RemoteAttached: true},
		},
		{
			name:         "gist without credentials",
			store:        config.StoreConfig{Backend: config.BackendGist, Mode: config.ModeLive, CacheTTL: time.Minute},
			expectedBody: ConfigurationResponse{Backend: "gist", Mode: "live", CacheTTLSec: 60},
		},
		{
			name:         "offline mode disables the poller",
			store:        config.StoreConfig{Backend: config.BackendDir, Mode: config.ModeOffline, CacheTTL: time.Second},
			poller:       true,
			expectedBody: ConfigurationResponse{Backend: "dir", Mode: "offline", CacheTTLSec: 1, RemoteAttached: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Store: tt.store, Poller: config.PollerConfig{Enabled: tt.poller}}
			controller := NewConfigurationController(cfg)

			router := gin.New()
			router.GET("/configuration", controller.GetConfiguration)

			req := httptest.NewRequest(http.MethodGet, "/configuration", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", w.Code)
			}

			var response ConfigurationResponse
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if response != tt.expectedBody {
				t.Errorf("expected %+v, got %+v", tt.expectedBody, response)
			}
			if strings.Contains(w.Body.String(), `"t"`) {
				t.Error("response must not expose the token")
			}
		})
	}
}
