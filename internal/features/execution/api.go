package execution

import (
	"go-reports/internal/config"
	"go-reports/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ExecutionApi struct {
	ExecutionController *ExecutionController
	Config              *config.Config
}

func NewExecutionApi(executionController *ExecutionController, config *config.Config) *ExecutionApi {
	return &ExecutionApi{
		ExecutionController: executionController,
		Config:              config,
	}
}

func (api *ExecutionApi) Setup(app *fiber.App) {
	group := app.Group("/api/executions", middleware.AuthMiddleware(api.Config.SkipAuth))

	group.Get("/", api.ExecutionController.List)
	group.Get("/:id", api.ExecutionController.Get)
	group.Post("/:id/cancel", api.ExecutionController.Cancel)
	group.Post("/:id/retry", api.ExecutionController.Retry)
}
