package web

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
)

// Identity headers set by the authenticating gateway.
const (
	HeaderUserID           = "X-User-ID"
	HeaderUserName         = "X-User-Name"
	HeaderUserRole         = "X-User-Role"
	HeaderUserCapabilities = "X-User-Capabilities"
)

func actorFrom(c fiber.Ctx) models.Actor {
	actor := models.Actor{
		ID:   strings.TrimSpace(c.Get(HeaderUserID)),
		Name: strings.TrimSpace(c.Get(HeaderUserName)),
		Role: models.Role(strings.ToLower(strings.TrimSpace(c.Get(HeaderUserRole)))),
	}

	for _, capability := range strings.Split(c.Get(HeaderUserCapabilities), ",") {
		if capability = strings.TrimSpace(capability); capability != "" {
			actor.Capabilities = append(actor.Capabilities, models.Capability(capability))
		}
	}

	return actor
}
