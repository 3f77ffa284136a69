package controller

import (
	"net/http"

	"github.com/bassista/go_relboard/internal/config"
	"github.com/gin-gonic/gin"
)

// ConfigurationResponse represents the configuration response structure for the API.
type ConfigurationResponse struct {
	Backend        string `json:"backend"`
	Mode           string `json:"mode"`
	CacheTTLSec    int    `json:"cacheTtlSec"`
	PollerEnabled  bool   `json:"pollerEnabled"`
	RemoteAttached bool   `json:"remoteAttached"`
}

// ConfigurationController handles configuration-related API endpoints.
type ConfigurationController struct {
	config *config.Config
}

// NewConfigurationController creates a new ConfigurationController.
func NewConfigurationController(cfg *config.Config) *ConfigurationController {
	return &ConfigurationController{
		config: cfg,
	}
}

// GetConfiguration returns how the process reaches its document store. No
// credentials are included.
func (cc *ConfigurationController) GetConfiguration(c *gin.Context) {
	store := cc.config.Store
	response := ConfigurationResponse{
		Backend:       store.Backend,
		Mode:          store.Mode,
		CacheTTLSec:   int(store.CacheTTL.Seconds()),
		PollerEnabled: cc.config.Poller.Enabled && store.Mode != config.ModeOffline,
	}
	switch store.Backend {
	case config.BackendGist:
		response.RemoteAttached = store.Token != "" && store.GistID != ""
	default:
		response.RemoteAttached = true
	}
	c.JSON(http.StatusOK, response)
}
