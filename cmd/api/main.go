package main

import (
	"context"
	"fmt"
	common_api "go-reports/internal/common/api"
	"go-reports/internal/config"
	"go-reports/internal/database"
	"go-reports/internal/features/datasource"
	"go-reports/internal/features/distribution"
	"go-reports/internal/features/execution"
	"go-reports/internal/features/report"
	"go-reports/internal/features/schedule"
	"go-reports/internal/logger"
	"go-reports/internal/middleware"
	"go-reports/internal/taskqueue"
	"go-reports/pkg/utils"
	"log"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	// Generated report artifacts are served straight from disk
	app.Static(cfg.FSURL, cfg.FSPath)

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
	log.Printf("Registered %d route groups\n", len(routes))
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			utils.SetSecret(cfg.JWTSecret)
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// RegisterTaskHandlers binds the queue task kinds to their services
func RegisterTaskHandlers(
	queue taskqueue.Queue,
	executionService execution.ExecutionService,
	distributionService distribution.DistributionService,
) {
	queue.RegisterHandler(taskqueue.TaskGenerate, executionService.Generate)
	queue.RegisterHandler(taskqueue.TaskDeliver, distributionService.Deliver)
}

func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Task queue
			taskqueue.NewQueue,

			// Initialize Repositories
			datasource.NewDataSourceRepository,
			report.NewReportRepository,
			schedule.NewScheduleRepository,
			execution.NewExecutionRepository,
			distribution.NewDistributionRepository,

			// Query compiler and renderer
			report.NewQueryCompiler,
			execution.NewRenderer,

			// Initialize Services
			datasource.NewDataSourceService,
			report.NewReportService,
			schedule.NewScheduleService,
			execution.NewExecutionService,
			distribution.NewDistributionService,

			// Interface Adapters to break circular dependencies and satisfy Fx
			func(s execution.ExecutionService) report.ExecutionLauncher { return s },
			func(s execution.ExecutionService) schedule.ExecutionLauncher { return s },
			func(s execution.ExecutionService) report.ExecutionCleanup { return s },
			func(r schedule.ScheduleRepository) report.ScheduleCleanup { return r },
			func(s distribution.DistributionService) report.DistributionCleanup { return s },
			func(s distribution.DistributionService) execution.DeliveryPlanner { return s },

			// Initialize Controllers
			datasource.NewDataSourceController,
			report.NewReportController,
			schedule.NewScheduleController,
			execution.NewExecutionController,
			distribution.NewDistributionController,

			// Initialize API Routes
			AsRoute(datasource.NewDataSourceApi),
			AsRoute(report.NewReportApi),
			AsRoute(schedule.NewScheduleApi),
			AsRoute(execution.NewExecutionApi),
			AsRoute(distribution.NewDistributionApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			RegisterTaskHandlers,
			StartServer,
			func(lc fx.Lifecycle, scheduleService schedule.ScheduleService) {
				scheduleService.Initialize(lc)
			},
		),
	)

	app.Run()
}
