package controller

import (
	"context"
	"net/http"

	"github.com/bassista/go_relboard/internal/repository"
	"github.com/gin-gonic/gin"
)

// StatusService is the status store API used by the controller.
type StatusService interface {
	Get(ctx context.Context) repository.SystemStatus
	Update(ctx context.Context, fn func(repository.SystemStatus) repository.SystemStatus) repository.SystemStatus
}

// DismissRequest names the version to stop announcing. When empty, the
// latest known version is dismissed.
type DismissRequest struct {
	Version string `json:"version"`
}

// StatusController exposes the in-memory system status.
type StatusController struct {
	store StatusService
}

// NewStatusController creates a new StatusController.
func NewStatusController(store StatusService) *StatusController {
	return &StatusController{store: store}
}

// GetStatus returns the current status.
func (sc *StatusController) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, sc.store.Get(c.Request.Context()))
}

// Dismiss records a dismissed version.
func (sc *StatusController) Dismiss(c *gin.Context) {
	var req DismissRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
	}

	missing := false
	status := sc.store.Update(c.Request.Context(), func(s repository.SystemStatus) repository.SystemStatus {
		version := req.Version
		if version == "" && s.LatestKnownVersion != nil {
			version = *s.LatestKnownVersion
		}
		if version == "" {
			missing = true
			return s
		}
		s.DismissedVersion = &version
		return s
	})
	if missing {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no version to dismiss"})
		return
	}
	c.JSON(http.StatusOK, status)
}
