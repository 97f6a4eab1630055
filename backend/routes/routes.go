package routes

import (
	"cactus/backend/config"
	"cactus/backend/controllers"
	"cactus/backend/cycle"
	"cactus/backend/middleware"
	"cactus/backend/notify"
	"cactus/backend/scheduler"
	"cactus/backend/store"
	"log"

	"github.com/gofiber/fiber/v2"
)

// Deps are the services the routes are wired to.
type Deps struct {
	Store       store.Store
	Clock       cycle.Clock
	Coordinator *cycle.Coordinator
	Notifier    *notify.Notifier
	Scheduler   *scheduler.Scheduler
	Logger      *log.Logger
}

func SetupRoutes(app *fiber.App, deps Deps, cfg *config.Config) {
	authMiddleware := middleware.AuthMiddleware(cfg)

	// Cycle routes
	cycleController := controllers.NewCycleController(deps.Coordinator, deps.Store, deps.Notifier, deps.Scheduler, cfg, deps.Logger)
	cycleRoutes := app.Group("/api/cycle", authMiddleware)
	cycleRoutes.Get("/status", cycleController.GetStatus)
	cycleRoutes.Post("/check", cycleController.Check)
	cycleRoutes.Post("/reset", cycleController.Reset)
	cycleRoutes.Get("/summary", cycleController.GetSummary)
	cycleRoutes.Post("/lock", cycleController.Lock)

	// Tasks routes
	tasksController := controllers.NewTasksController(deps.Store, deps.Clock, cfg)
	tasks := app.Group("/api/tasks", authMiddleware)
	tasks.Get("/", tasksController.ListTasks)
	tasks.Post("/", tasksController.CreateTask)
	tasks.Post("/:id/complete", tasksController.CompleteTask)
	tasks.Delete("/:id", tasksController.DeleteTask)

	// Usage routes
	usageController := controllers.NewUsageController(deps.Store, cfg)
	app.Post("/api/mood", authMiddleware, usageController.RecordMood)
	app.Post("/api/usage/:kind", authMiddleware, usageController.RecordUsage)

	// Scheduler hook
	app.Post("/api/internal/sweep", middleware.SweepSecretMiddleware(cfg), cycleController.Sweep)
}
