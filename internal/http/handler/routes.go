package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// /metrics is only mounted when a registry is given.
func RegisterRoutes(app *fiber.App, h *Handler, registry *prometheus.Registry) {
	app.Get("/", h.Root)

	api := app.Group("/api")
	api.Get("/health", h.Health)
	api.Get("/users", h.ListUsers)
	api.Get("/users/:id", h.GetUser)
	api.Post("/users", h.CreateUser)
	api.Get("/products", h.ListProducts)
	api.Get("/slow", h.Slow)
	api.Get("/random-error", h.RandomError)
	api.Get("/redirect-demo", h.RedirectDemo)

	if registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}
}
