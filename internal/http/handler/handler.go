package handler

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"demoapi/internal/locale"
	"demoapi/internal/service"
)

// ServiceInfo identifies the running service in the root and health payloads.
type ServiceInfo struct {
	Name         string
	Version      string
	DashboardURL string
}

// Handler serves the demo endpoints.
type Handler struct {
	svc     service.CatalogService
	msgs    locale.Messages
	info    ServiceInfo
	log     *zap.Logger
	started time.Time
	now     func() time.Time
}

// New constructs a Handler. Uptime is measured from this call.
func New(svc service.CatalogService, msgs locale.Messages, info ServiceInfo, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		svc:     svc,
		msgs:    msgs,
		info:    info,
		log:     log,
		started: time.Now(),
		now:     time.Now,
	}
}

// Root describes the API.
// @Summary API overview
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]any
// @Router / [get]
func (h *Handler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": h.msgs.Welcome,
		"version": h.info.Version,
		"endpoints": fiber.Map{
			"health": "GET /api/health",
			"users": fiber.Map{
				"list":   "GET /api/users",
				"get":    "GET /api/users/:id",
				"create": "POST /api/users",
			},
			"products":    h.msgs.ProductsEndpoint,
			"slow":        h.msgs.SlowEndpoint,
			"randomError": "GET /api/random-error",
			"redirect":    "GET /api/redirect-demo",
			"metrics":     "GET /metrics",
			"docs":        "GET /swagger/index.html",
		},
		"dashboard":       h.info.DashboardURL,
		"instrumentation": h.msgs.Instrumentation,
	})
}

// Health is the liveness probe.
// @Summary Liveness probe
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/health [get]
func (h *Handler) Health(c *fiber.Ctx) error {
	now := h.now()
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": now.UTC().Format(time.RFC3339Nano),
		"uptime":    now.Sub(h.started).Seconds(),
		"service":   h.info.Name,
		"version":   h.info.Version,
	})
}

// ListUsers returns every user after the list delay.
// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {object} service.UserListResult
// @Router /api/users [get]
func (h *Handler) ListUsers(c *fiber.Ctx) error {
	res, err := h.svc.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// GetUser looks a user up by integer id.
// @Summary Get user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} model.User
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/users/{id} [get]
func (h *Handler) GetUser(c *fiber.Ctx) error {
	raw := c.Params("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": h.msgs.InvalidUserID, "requestedId": raw})
	}

	u, err := h.svc.GetUser(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			requestLogger(c, h.log).Info("user not found", zap.Int("user_id", id))
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": h.msgs.UserNotFound, "requestedId": id})
		}
		return err
	}
	return c.JSON(u)
}

// CreateUser appends a user.
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Param user body service.CreateUserInput true "User"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/users [post]
func (h *Handler) CreateUser(c *fiber.Ctx) error {
	var in service.CreateUserInput
	if err := c.BodyParser(&in); err != nil {
		requestLogger(c, h.log).Info("invalid user payload", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": h.msgs.NameEmailRequired})
	}

	u, err := h.svc.CreateUser(c.UserContext(), in)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": h.msgs.NameEmailRequired})
		}
		return err
	}

	requestLogger(c, h.log).Info("user created", zap.Int("user_id", u.ID))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": h.msgs.UserCreated, "user": u})
}

// ListProducts returns every product, or a simulated backend failure.
// @Summary List products
// @Tags products
// @Produce json
// @Success 200 {object} service.ProductListResult
// @Failure 500 {object} map[string]any
// @Router /api/products [get]
func (h *Handler) ListProducts(c *fiber.Ctx) error {
	res, err := h.svc.ListProducts(c.UserContext())
	if err != nil {
		if errors.Is(err, service.ErrSimulatedFailure) {
			requestLogger(c, h.log).Error("products listing failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   h.msgs.ProductsFailed,
				"message": h.msgs.ProductsFailedWhy,
			})
		}
		return err
	}
	return c.JSON(res)
}

// Slow waits for a random duration and reports it.
// @Summary Slow operation
// @Tags simulation
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/slow [get]
func (h *Handler) Slow(c *fiber.Ctx) error {
	d, err := h.svc.SlowOperation(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":  h.msgs.SlowCompleted,
		"duration": fmt.Sprintf("%dms", d.Milliseconds()),
	})
}

// RandomError answers with a uniformly drawn 404, 500 or 200.
// @Summary Random outcome
// @Tags simulation
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Failure 500 {object} map[string]any
// @Router /api/random-error [get]
func (h *Handler) RandomError(c *fiber.Ctx) error {
	o := h.svc.RandomOutcome(c.UserContext())
	switch o {
	case service.OutcomeNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": h.msgs.ResourceNotFound, "type": o})
	case service.OutcomeInternal:
		requestLogger(c, h.log).Error("random internal error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": h.msgs.InternalError, "type": o})
	default:
		return c.JSON(fiber.Map{"message": h.msgs.RandomSuccess, "type": o})
	}
}

// RedirectDemo redirects to the health endpoint.
// @Summary Redirect to health
// @Tags simulation
// @Success 302
// @Router /api/redirect-demo [get]
func (h *Handler) RedirectDemo(c *fiber.Ctx) error {
	return c.Redirect("/api/health", fiber.StatusFound)
}
