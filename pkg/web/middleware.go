package web

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/log"
)

// RequestLogger stores a logger tagged with the request id and actor in the
// request context. It must run after requestid.New.
func RequestLogger(logger *slog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		scoped := logger.With(
			"request_id", requestid.FromContext(c),
			"actor_id", c.Get(HeaderUserID),
		)

		c.SetContext(log.NewContext(c.Context(), scoped))

		return c.Next()
	}
}
