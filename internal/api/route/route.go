package route

import (
	"net/http"

	"github.com/bassista/go_relboard/internal/app"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, appCtx *app.App) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "UP",
		})
	})

	apiRouter := r.Group("/api")

	// All Public APIs
	timeout := appCtx.Config.Server.RequestTimeout

	NewConfigurationRouter(timeout, apiRouter, appCtx.Config)
	NewSettingsRouter(timeout, apiRouter, appCtx.Settings)
	NewRepositoryRouter(timeout, apiRouter, appCtx.Repositories)
	NewStatusRouter(timeout, apiRouter, appCtx.Status)
}
