package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/catalog"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/dashboard"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/eventbus"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/notify"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/services"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/web"
)

type API struct {
	streams     context.Context
	logger      *slog.Logger
	persistence persistence.Persistence
	catalog     *catalog.Catalog
	eventBus    eventbus.EventPublisher
	hub         *notify.Hub
	stats       *dashboard.Service
	location    *time.Location
	options     []services.Option
	validate    *validator.Validate
}

// NewAPI wires the services behind the HTTP handlers. Event streams end when
// streams is cancelled.
func NewAPI(
	streams context.Context,
	logger *slog.Logger,
	persistence persistence.Persistence,
	catalog *catalog.Catalog,
	eventBus eventbus.EventPublisher,
	hub *notify.Hub,
	stats *dashboard.Service,
	location *time.Location,
	opts ...services.Option,
) *API {
	return &API{
		streams:     streams,
		logger:      logger,
		persistence: persistence,
		catalog:     catalog,
		eventBus:    eventBus,
		hub:         hub,
		stats:       stats,
		location:    location,
		options:     opts,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.streams, web.Services{
		Workflow:  services.NewWorkflow(a.persistence, a.catalog, a.eventBus, a.options...),
		Checklist: services.NewChecklist(a.persistence, a.catalog, a.options...),
		Delays:    services.NewDelays(a.persistence, a.eventBus, a.options...),
		Listing:   services.NewListing(a.persistence, services.TodayDefaultPolicy{Location: a.location}, a.options...),
		Dashboard: a.stats,
		Hub:       a.hub,
	}, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(requestid.New())
	app.Use(web.RequestLogger(a.logger))
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Cadastro API")
	})

	handlers.Register(app)

	return app
}
