package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// RequestContext derives every request's user context from base, so cancelling base
// aborts the context-aware waits of in-flight handlers. Register it before Tracing so
// server spans are children of the derived context.
func RequestContext(base context.Context) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithCancel(c.UserContext())
		defer cancel()
		stop := context.AfterFunc(base, cancel)
		defer stop()

		c.SetUserContext(ctx)
		return c.Next()
	}
}
