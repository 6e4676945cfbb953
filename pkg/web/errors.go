package web

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/log"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/services"
)

var kindStatus = map[services.Kind]int{
	services.KindNotFound:           fiber.StatusNotFound,
	services.KindInvalidTransition:  fiber.StatusConflict,
	services.KindTerminalState:      fiber.StatusConflict,
	services.KindValidation:         fiber.StatusBadRequest,
	services.KindAlreadyInitialized: fiber.StatusConflict,
	services.KindForbidden:          fiber.StatusForbidden,
	services.KindInternal:           fiber.StatusInternalServerError,
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType(string(services.KindValidation)).
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

// handleServiceError maps the service error taxonomy to problem documents
// whose type is the stable error kind.
func handleServiceError(c fiber.Ctx, err error) error {
	kind := services.KindOf(err)
	status := kindStatus[kind]

	problem := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(string(kind))

	if kind == services.KindInternal {
		log.FromContext(c.Context(), slog.Default()).ErrorContext(c.Context(), "request failed",
			"method", c.Method(), "path", c.Path(), "error", err)

		// Internal details stay in the logs.
		problem = problem.WithDetail("internal error")
	} else {
		problem = problem.WithDetail(err.Error())
	}

	return c.Status(status).JSON(problem)
}

var errInvalidJSON = errors.New("invalid JSON format")
