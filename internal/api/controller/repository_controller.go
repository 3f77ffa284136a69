package controller

import (
	"context"
	"net/http"

	"github.com/bassista/go_relboard/internal/repository"
	"github.com/gin-gonic/gin"
)

// Acknowledger marks a repository's latest release as seen.
type Acknowledger interface {
	Acknowledge(ctx context.Context, id string) (repository.TrackedRepository, error)
}

// RepositoryController handles repository actions beyond plain CRUD.
type RepositoryController struct {
	store Acknowledger
}

// NewRepositoryController creates a new RepositoryController.
func NewRepositoryController(store Acknowledger) *RepositoryController {
	return &RepositoryController{store: store}
}

// Acknowledge clears the new-release marker of one repository.
func (rc *RepositoryController) Acknowledge(c *gin.Context) {
	repo, err := rc.store.Acknowledge(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, repo)
}
