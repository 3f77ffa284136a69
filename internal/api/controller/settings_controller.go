package controller

import (
	"context"
	"net/http"

	"github.com/bassista/go_relboard/internal/repository"
	"github.com/gin-gonic/gin"
)

// SettingsService is the settings store API used by the controller.
type SettingsService interface {
	Get(ctx context.Context) repository.AppSettings
	Save(ctx context.Context, settings repository.AppSettings) error
	Locale(ctx context.Context) string
}

// SettingsController handles settings.json over HTTP.
type SettingsController struct {
	store SettingsService
}

// NewSettingsController creates a new SettingsController.
func NewSettingsController(store SettingsService) *SettingsController {
	return &SettingsController{store: store}
}

// GetSettings returns the current settings. Reads never fail; an unreachable
// store yields the last known or default settings.
func (sc *SettingsController) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, sc.store.Get(c.Request.Context()))
}

// SaveSettings replaces the settings. Fields left out of the payload take
// their default value.
func (sc *SettingsController) SaveSettings(c *gin.Context) {
	var settings repository.AppSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := sc.store.Save(c.Request.Context(), settings); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, sc.store.Get(c.Request.Context()))
}

// GetLocale returns only the UI locale.
func (sc *SettingsController) GetLocale(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"locale": sc.store.Locale(c.Request.Context())})
}
