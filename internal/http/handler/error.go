package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"demoapi/internal/http/middleware"
	"demoapi/internal/locale"
	"demoapi/internal/logging"
)

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// requestLogger returns base enriched with the request id and the active span.
func requestLogger(c *fiber.Ctx, base *zap.Logger) *zap.Logger {
	return logging.WithTrace(c.UserContext(), base).With(zap.String("request_id", requestIDFromCtx(c)))
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
//
// Unmatched routes and methods get a 404/405 body carrying the path. Other client errors
// raised by Fiber keep their status. Everything else, recovered panics included, becomes a
// 500 whose message is the error text when exposeDetails is set and a fixed string otherwise.
func ErrorHandler(msgs locale.Messages, exposeDetails bool, log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch {
		case status == fiber.StatusNotFound:
			return c.Status(status).JSON(fiber.Map{"error": msgs.RouteNotFound, "path": c.Path()})
		case status == fiber.StatusMethodNotAllowed:
			return c.Status(status).JSON(fiber.Map{"error": msgs.MethodNotAllowed, "path": c.Path()})
		case status < fiber.StatusInternalServerError:
			return c.Status(status).JSON(fiber.Map{"error": fe.Message})
		}

		requestLogger(c, log).Error("unhandled error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)

		detail := msgs.InternalErrorQuiet
		if exposeDetails {
			detail = err.Error()
		}
		return c.Status(status).JSON(fiber.Map{"error": msgs.InternalError, "message": detail})
	}
}
