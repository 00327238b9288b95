package routes

import (
	"fiber-monitor/config"
	"fiber-monitor/controllers/monitor"
	"fiber-monitor/database"
	"fiber-monitor/middleware"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Setup wires the full monitor into a Fiber app: it opens the storage file,
// registers the capture middleware and mounts the dashboard. Register any
// outer middleware (e.g. recover) before calling Setup, and application
// routes after.
func Setup(app *fiber.App, cfg config.Config) (*gorm.DB, error) {
	db, err := database.InitDB(cfg.StorageLocation)
	if err != nil {
		return nil, err
	}

	store := database.NewStore(db)
	app.Use(middleware.NewMonitor(store, cfg.ExcludePaths).Handler())
	SetupDashboard(app, db, cfg)
	return db, nil
}

// SetupDashboard mounts the dashboard page and read API on the app, behind
// the auth gate when credentials are configured.
func SetupDashboard(app *fiber.App, db *gorm.DB, cfg config.Config) {
	store := database.NewStore(db)
	controller := monitor.NewMonitorController(store, cfg)

	dashboard := app.Group(cfg.DashboardPath, middleware.DashboardAuth(cfg))
	dashboard.Get("/", controller.Dashboard)

	api := dashboard.Group("/api")
	api.Get("/stats", controller.GetStats)
	api.Get("/requests", controller.GetRequests)
	api.Get("/requests/:id", controller.GetRequestDetail)
	api.Get("/analytics", controller.GetAnalytics)
	api.Post("/token", controller.GetToken)
}
