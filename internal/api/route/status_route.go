package route

import (
	"time"

	"github.com/bassista/go_relboard/internal/api/controller"
	"github.com/bassista/go_relboard/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// NewStatusRouter sets up the system status routes.
func NewStatusRouter(timeout time.Duration, group *gin.RouterGroup, store controller.StatusService) {
	sc := controller.NewStatusController(store)
	timeoutMiddleware := middleware.RequestTimeout(timeout)

	group.GET("status", timeoutMiddleware, sc.GetStatus)
	group.POST("status/dismiss", timeoutMiddleware, sc.Dismiss)
}
