package datasource

import (
	"go-reports/internal/config"
	"go-reports/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DataSourceApi struct {
	DataSourceController *DataSourceController
	Config               *config.Config
}

func NewDataSourceApi(dataSourceController *DataSourceController, config *config.Config) *DataSourceApi {
	return &DataSourceApi{
		DataSourceController: dataSourceController,
		Config:               config,
	}
}

func (api *DataSourceApi) Setup(app *fiber.App) {
	group := app.Group("/api/datasources", middleware.AuthMiddleware(api.Config.SkipAuth))

	group.Post("/", api.DataSourceController.Create)
	group.Get("/", api.DataSourceController.List)
	group.Get("/:id", api.DataSourceController.Get)
	group.Put("/:id", api.DataSourceController.Update)
	group.Delete("/:id", api.DataSourceController.Delete)
	group.Post("/:id/test", api.DataSourceController.Test)
	group.Get("/:id/schema", api.DataSourceController.Schema)
}
