package datasource

import (
	"github.com/gofiber/fiber/v2"
)

type DataSourceController struct {
	DataSourceService DataSourceService
}

func NewDataSourceController(dataSourceService DataSourceService) *DataSourceController {
	return &DataSourceController{DataSourceService: dataSourceService}
}

// Create godoc
func (c *DataSourceController) Create(ctx *fiber.Ctx) error {
	var ds DataSource
	if err := ctx.BodyParser(&ds); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.DataSourceService.CreateDataSource(ctx.Context(), &ds); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(ds)
}

// List godoc
func (c *DataSourceController) List(ctx *fiber.Ctx) error {
	sources, err := c.DataSourceService.ListDataSources(ctx.Context())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(sources)
}

// Get godoc
func (c *DataSourceController) Get(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	ds, err := c.DataSourceService.GetDataSource(ctx.Context(), id)
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Data source not found"})
	}
	return ctx.JSON(ds)
}

// Update godoc
func (c *DataSourceController) Update(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	var ds DataSource
	if err := ctx.BodyParser(&ds); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.DataSourceService.UpdateDataSource(ctx.Context(), id, &ds); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(ds)
}

// Delete godoc
func (c *DataSourceController) Delete(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	if err := c.DataSourceService.DeleteDataSource(ctx.Context(), id); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// Test godoc
func (c *DataSourceController) Test(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	if err := c.DataSourceService.TestDataSource(ctx.Context(), id); err != nil {
		return ctx.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error(), "status": "error"})
	}
	return ctx.JSON(fiber.Map{"status": "connected"})
}

// Schema godoc
func (c *DataSourceController) Schema(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	schema, suggestions, err := c.DataSourceService.SchemaInfo(ctx.Context(), id)
	if err != nil {
		return ctx.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{
		"tables":                  schema.Tables,
		"suggested_relationships": suggestions,
	})
}
