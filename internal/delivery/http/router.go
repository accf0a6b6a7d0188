package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/krishisakhi/backend/internal/service"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, engine *service.TwinEngine, repo service.DataRepository, jwtSecret string) {
	handler := NewHandler(engine, repo)

	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes, farmer-scoped
	api := app.Group("/api/v1", FarmerAuth(jwtSecret))
	{
		api.Post("/twins", handler.CreateTwin)
		api.Get("/twins", handler.ListFarmerTwins)
		api.Get("/twins/:id", handler.GetTwin)
		api.Get("/twins/:id/snapshots", handler.GetSnapshots)

		// Twin data ingestion
		api.Post("/twins/:id/sensors", handler.UpdateSensor)
		api.Post("/twins/:id/signals", handler.SubmitSignal)
		api.Post("/twins/:id/activities", handler.RecordActivity)

		// Advisory outputs
		api.Get("/twins/:id/recommendations", handler.GetRecommendations)
		api.Get("/twins/:id/recommendations/personalized", handler.GetPersonalized)
		api.Get("/twins/:id/alerts", handler.GetAlerts)
	}
}
