package schedule

import (
	"github.com/gofiber/fiber/v2"
)

type ScheduleController struct {
	ScheduleService ScheduleService
}

func NewScheduleController(scheduleService ScheduleService) *ScheduleController {
	return &ScheduleController{ScheduleService: scheduleService}
}

// Create godoc
func (c *ScheduleController) Create(ctx *fiber.Ctx) error {
	var schedule Schedule
	if err := ctx.BodyParser(&schedule); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.ScheduleService.CreateSchedule(ctx.Context(), &schedule); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(schedule)
}

// List godoc
func (c *ScheduleController) List(ctx *fiber.Ctx) error {
	if reportID := ctx.Query("report_id"); reportID != "" {
		schedules, err := c.ScheduleService.ListByReport(ctx.Context(), reportID)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.JSON(schedules)
	}

	schedules, err := c.ScheduleService.ListSchedules(ctx.Context())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(schedules)
}

// Get godoc
func (c *ScheduleController) Get(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	schedule, err := c.ScheduleService.GetSchedule(ctx.Context(), id)
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Schedule not found"})
	}
	return ctx.JSON(schedule)
}

// Update godoc
func (c *ScheduleController) Update(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	var schedule Schedule
	if err := ctx.BodyParser(&schedule); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.ScheduleService.UpdateSchedule(ctx.Context(), id, &schedule); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(schedule)
}

// Delete godoc
func (c *ScheduleController) Delete(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	if err := c.ScheduleService.DeleteSchedule(ctx.Context(), id); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
