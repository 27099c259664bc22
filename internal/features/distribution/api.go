package distribution

import (
	"go-reports/internal/config"
	"go-reports/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DistributionApi struct {
	DistributionController *DistributionController
	Config                 *config.Config
}

func NewDistributionApi(distributionController *DistributionController, config *config.Config) *DistributionApi {
	return &DistributionApi{
		DistributionController: distributionController,
		Config:                 config,
	}
}

func (api *DistributionApi) Setup(app *fiber.App) {
	group := app.Group("/api/reports/:reportId/distribution", middleware.AuthMiddleware(api.Config.SkipAuth))

	group.Get("/", api.DistributionController.Get)
	group.Put("/", api.DistributionController.Save)
}
