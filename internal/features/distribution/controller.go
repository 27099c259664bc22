package distribution

import (
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DistributionController struct {
	DistributionService DistributionService
}

func NewDistributionController(distributionService DistributionService) *DistributionController {
	return &DistributionController{DistributionService: distributionService}
}

// Get godoc
func (c *DistributionController) Get(ctx *fiber.Ctx) error {
	reportID := ctx.Params("reportId")
	dist, err := c.DistributionService.GetByReport(ctx.Context(), reportID)
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Distribution not configured"})
	}
	return ctx.JSON(dist)
}

// Save godoc
func (c *DistributionController) Save(ctx *fiber.Ctx) error {
	reportID, err := primitive.ObjectIDFromHex(ctx.Params("reportId"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid report id"})
	}

	var dist Distribution
	if err := ctx.BodyParser(&dist); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	dist.ReportID = reportID

	if err := c.DistributionService.SaveDistribution(ctx.Context(), &dist); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(dist)
}
