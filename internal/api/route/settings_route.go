package route

import (
	"time"

	"github.com/bassista/go_relboard/internal/api/controller"
	"github.com/bassista/go_relboard/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// NewSettingsRouter sets up settings.json routes.
func NewSettingsRouter(timeout time.Duration, group *gin.RouterGroup, store controller.SettingsService) {
	sc := controller.NewSettingsController(store)
	timeoutMiddleware := middleware.RequestTimeout(timeout)

	group.GET("settings", timeoutMiddleware, sc.GetSettings)
	group.PUT("settings", timeoutMiddleware, sc.SaveSettings)
	group.GET("settings/locale", timeoutMiddleware, sc.GetLocale)
}
