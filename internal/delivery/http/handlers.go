package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/krishisakhi/backend/internal/domain"
	"github.com/krishisakhi/backend/internal/service"
)

// Handler contains all HTTP handlers
type Handler struct {
	engine *service.TwinEngine
	repo   service.DataRepository
}

// NewHandler creates a new handler
func NewHandler(engine *service.TwinEngine, repo service.DataRepository) *Handler {
	return &Handler{
		engine: engine,
		repo:   repo,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := h.repo.Health(c.Context()); err != nil {
		dbStatus = "degraded"
	}

	return c.JSON(fiber.Map{
		"status":   "ok",
		"service":  "krishisakhi-backend",
		"version":  "1.0.0",
		"database": dbStatus,
	})
}

// CreateTwinRequest is the payload for twin creation
type CreateTwinRequest struct {
	Profile domain.FarmerProfile `json:"profile"`
	Crop    domain.CropData      `json:"crop"`
}

// CreateTwin registers a new crop twin for the authenticated farmer
func (h *Handler) CreateTwin(c *fiber.Ctx) error {
	var req CreateTwinRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Crop.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Crop name is required")
	}

	twin, err := h.engine.CreateCropTwin(c.Context(), farmerID(c), req.Profile, req.Crop)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to create crop twin")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    twin,
	})
}

// GetTwin returns the full state of one crop twin
func (h *Handler) GetTwin(c *fiber.Ctx) error {
	twin, err := h.engine.GetCropTwin(c.Params("id"))
	if err != nil {
		return twinError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    twin,
	})
}

// ListFarmerTwins returns all twins owned by the authenticated farmer
func (h *Handler) ListFarmerTwins(c *fiber.Ctx) error {
	twins := h.engine.GetFarmerCropTwins(farmerID(c))

	return c.JSON(fiber.Map{
		"success": true,
		"data":    twins,
		"count":   len(twins),
	})
}

// UpdateSensor ingests a sensor reading into a twin
func (h *Handler) UpdateSensor(c *fiber.Ctx) error {
	var reading domain.SensorReading
	if err := c.BodyParser(&reading); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now()
	}

	if err := h.engine.UpdateSensorData(c.Context(), c.Params("id"), reading); err != nil {
		return twinError(err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// SubmitSignal ingests a community signal into a twin
func (h *Handler) SubmitSignal(c *fiber.Ctx) error {
	var signal domain.CommunitySignal
	if err := c.BodyParser(&signal); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if signal.ID == "" {
		signal.ID = uuid.New().String()
	}
	if signal.Timestamp.IsZero() {
		signal.Timestamp = time.Now()
	}

	if err := h.engine.UpdateCommunitySignal(c.Context(), c.Params("id"), signal); err != nil {
		return twinError(err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// RecordActivity logs a farm activity against a twin
func (h *Handler) RecordActivity(c *fiber.Ctx) error {
	var activity domain.Activity
	if err := c.BodyParser(&activity); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now()
	}

	if err := h.engine.RecordActivity(c.Context(), c.Params("id"), activity); err != nil {
		return twinError(err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// GetRecommendations returns current recommendations for a twin
func (h *Handler) GetRecommendations(c *fiber.Ctx) error {
	recs, err := h.engine.GetProactiveRecommendations(c.Params("id"))
	if err != nil {
		return twinError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    recs,
		"count":   len(recs),
	})
}

// GetAlerts returns current proactive alerts for a twin
func (h *Handler) GetAlerts(c *fiber.Ctx) error {
	alerts, err := h.engine.GetProactiveAlerts(c.Params("id"))
	if err != nil {
		return twinError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    alerts,
		"count":   len(alerts),
	})
}

// GetPersonalized returns federated-model recommendations for a twin
func (h *Handler) GetPersonalized(c *fiber.Ctx) error {
	recs, err := h.engine.GetPersonalizedRecommendations(c.Params("id"))
	if err != nil {
		return twinError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    recs,
		"count":   len(recs),
	})
}

// GetSnapshots returns persisted snapshot history for a twin
func (h *Handler) GetSnapshots(c *fiber.Ctx) error {
	hours := c.QueryInt("hours", 24)
	if hours < 1 || hours > 720 { // max 30 days
		hours = 24
	}

	to := time.Now()
	from := to.Add(-time.Duration(hours) * time.Hour)

	data, err := h.repo.GetTwinSnapshots(c.Context(), c.Params("id"), from, to)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch snapshot history")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}

// twinError maps engine errors to HTTP status codes
func twinError(err error) error {
	if errors.Is(err, domain.ErrTwinNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Crop twin not found")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "Internal server error")
}
