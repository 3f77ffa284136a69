package route

import (
	"time"

	"github.com/bassista/go_relboard/internal/api/controller"
	"github.com/bassista/go_relboard/internal/api/middleware"
	"github.com/bassista/go_relboard/internal/repository"
	"github.com/gin-gonic/gin"
)

// NewRepositoryRouter sets up the tracked repository routes.
func NewRepositoryRouter(timeout time.Duration, group *gin.RouterGroup, store *repository.RepositoryListStore) {
	rg := group.Group("", middleware.RequestTimeout(timeout))

	crud := &controller.CrudController[repository.TrackedRepository]{
		Service:   &controller.RepositoryCrudService{Store: store},
		Validator: controller.RepositoryCrudValidator{},
	}
	crud.RegisterCrudRoutes(rg, "repository")

	rc := controller.NewRepositoryController(store)
	rg.POST("/repository/:name/acknowledge", rc.Acknowledge)
}
