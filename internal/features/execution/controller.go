package execution

import (
	"github.com/gofiber/fiber/v2"
)

type ExecutionController struct {
	ExecutionService ExecutionService
}

func NewExecutionController(executionService ExecutionService) *ExecutionController {
	return &ExecutionController{ExecutionService: executionService}
}

// List godoc
func (c *ExecutionController) List(ctx *fiber.Ctx) error {
	if reportID := ctx.Query("report_id"); reportID != "" {
		execs, err := c.ExecutionService.ListByReport(ctx.Context(), reportID)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.JSON(execs)
	}

	execs, err := c.ExecutionService.ListExecutions(ctx.Context())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(execs)
}

// Get godoc
func (c *ExecutionController) Get(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	exec, err := c.ExecutionService.GetExecution(ctx.Context(), id)
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Execution not found"})
	}
	return ctx.JSON(exec)
}

// Cancel godoc
func (c *ExecutionController) Cancel(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	if err := c.ExecutionService.Cancel(ctx.Context(), id); err != nil {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"status": string(StatusCancelled)})
}

// Retry godoc
func (c *ExecutionController) Retry(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	execID, err := c.ExecutionService.Retry(ctx.Context(), id)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"execution_id": execID.Hex(),
		"status":       string(StatusPending),
	})
}
