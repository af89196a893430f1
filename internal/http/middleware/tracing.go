package middleware

import (
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Tracing returns the otelfiber server instrumentation, or a pass-through handler when
// the http-server instrumentation is disabled. Requests to /metrics are not traced.
// Nil providers fall back to the otel globals.
func Tracing(enabled bool, tp trace.TracerProvider, mp metric.MeterProvider) fiber.Handler {
	if !enabled {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	opts := []otelfiber.Option{
		otelfiber.WithNext(func(c *fiber.Ctx) bool {
			return c.Path() == "/metrics"
		}),
	}
	if tp != nil {
		opts = append(opts, otelfiber.WithTracerProvider(tp))
	}
	if mp != nil {
		opts = append(opts, otelfiber.WithMeterProvider(mp))
	}
	return otelfiber.Middleware(opts...)
}
