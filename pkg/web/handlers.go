// Package web provides HTTP handlers and REST API endpoints for submission review.
package web

import (
	"bufio"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/dashboard"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/log"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/notify"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/services"
)

// Services groups the collaborators the handlers call.
type Services struct {
	Workflow  *services.Workflow
	Checklist *services.Checklist
	Delays    *services.Delays
	Listing   *services.Listing
	Dashboard *dashboard.Service
	Hub       *notify.Hub
}

type APIHandlers struct {
	Services

	validator *validator.Validate

	// streams ends every open event stream when cancelled.
	streams   context.Context
	heartbeat time.Duration
}

func NewAPIHandlers(streams context.Context, svc Services, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		Services:  svc,
		validator: validator,
		streams:   streams,
		heartbeat: notify.DefaultHeartbeat,
	}
}

// Register mounts every route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)

	s := router.Group("/submissions")
	s.Get("/", h.ListSubmissions)
	s.Post("/", h.CreateSubmission)
	s.Get("/:id", h.GetSubmission)
	s.Patch("/:id", h.UpdateSubmission)
	s.Get("/:id/history", h.GetHistory)
	s.Post("/:id/start-review", h.StartReview)
	s.Post("/:id/approve", h.Approve)
	s.Post("/:id/reject", h.Reject)
	s.Post("/:id/return", h.Return)
	s.Post("/:id/resubmit", h.Resubmit)
	s.Get("/:id/delays", h.ListDelays)
	s.Post("/:id/delays", h.AddDelay)
	s.Get("/:id/checklist", h.GetChecklist)
	s.Post("/:id/checklist", h.InitializeChecklist)
	s.Post("/:id/checklist/items", h.AddChecklistItem)

	i := router.Group("/checklist-items")
	i.Post("/:itemId/complete", h.CompleteChecklistItem)
	i.Post("/:itemId/uncomplete", h.UncompleteChecklistItem)
	i.Delete("/:itemId", h.RemoveChecklistItem)

	router.Get("/dashboard/stats", h.DashboardStats)
	router.Get("/events", h.Events)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.Workflow.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusServiceUnavailable

	if ok {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"subscribers": h.Hub.Len(),
		"timestamp":   time.Now().UTC(),
	})
}

func (h *APIHandlers) ListSubmissions(c fiber.Ctx) error {
	query, err := parseListQuery(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	page, err := h.Listing.List(c.Context(), actorFrom(c), query)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(page)
}

func parseListQuery(c fiber.Ctx) (services.ListQuery, error) {
	query := services.ListQuery{
		Priority:     models.Priority(c.Query("priority")),
		OperatorID:   c.Query("operator_id"),
		AnalystID:    c.Query("analyst_id"),
		CadastroType: c.Query("cadastro_type"),
		Search:       c.Query("q"),
		Scope:        services.Scope(c.Query("scope")),
	}

	for _, status := range strings.Split(c.Query("status"), ",") {
		if status = strings.TrimSpace(status); status != "" {
			query.Statuses = append(query.Statuses, models.SubmissionStatus(status))
		}
	}

	var err error

	if query.From, err = parseTime(c.Query("from")); err != nil {
		return query, err
	}

	if query.To, err = parseTime(c.Query("to")); err != nil {
		return query, err
	}

	if page := c.Query("page"); page != "" {
		if query.Page, err = strconv.Atoi(page); err != nil {
			return query, err
		}
	}

	if pageSize := c.Query("page_size"); pageSize != "" {
		if query.PageSize, err = strconv.Atoi(pageSize); err != nil {
			return query, err
		}
	}

	return query, nil
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t, err = time.Parse(time.DateOnly, value)
		if err != nil {
			return nil, err
		}
	}

	return &t, nil
}

func (h *APIHandlers) CreateSubmission(c fiber.Ctx) error {
	var req CreateSubmissionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	submission, err := h.Workflow.Create(c.Context(), actorFrom(c), services.CreateSubmissionInput{
		CadastroType:   req.CadastroType,
		Priority:       models.Priority(req.Priority),
		Name:           req.Name,
		DocumentNumber: req.DocumentNumber,
		Plate:          req.Plate,
		DocumentIDs:    req.DocumentIDs,
		Fields:         req.Fields,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(submission)
}

func (h *APIHandlers) GetSubmission(c fiber.Ctx) error {
	submission, err := h.Workflow.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(submission)
}

func (h *APIHandlers) UpdateSubmission(c fiber.Ctx) error {
	var req UpdateSubmissionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	submission, err := h.Workflow.UpdateFields(c.Context(), actorFrom(c), c.Params("id"), req.patch())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(submission)
}

func (h *APIHandlers) GetHistory(c fiber.Ctx) error {
	history, err := h.Workflow.History(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(history)
}

func (h *APIHandlers) StartReview(c fiber.Ctx) error {
	return h.respond(c)(h.Workflow.StartReview(c.Context(), actorFrom(c), c.Params("id")))
}

func (h *APIHandlers) Approve(c fiber.Ctx) error {
	var req ApproveRequest
	if err := h.bindOptional(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	return h.respond(c)(h.Workflow.Approve(c.Context(), actorFrom(c), c.Params("id"), req.Note))
}

func (h *APIHandlers) Reject(c fiber.Ctx) error {
	var req OutcomeRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	return h.respond(c)(h.Workflow.Reject(c.Context(), actorFrom(c), c.Params("id"), req.Reason, req.Category))
}

func (h *APIHandlers) Return(c fiber.Ctx) error {
	var req OutcomeRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	return h.respond(c)(h.Workflow.Return(c.Context(), actorFrom(c), c.Params("id"), req.Reason, req.Category))
}

func (h *APIHandlers) Resubmit(c fiber.Ctx) error {
	return h.respond(c)(h.Workflow.Resubmit(c.Context(), actorFrom(c), c.Params("id")))
}

func (h *APIHandlers) ListDelays(c fiber.Ctx) error {
	delays, err := h.Delays.List(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(delays)
}

func (h *APIHandlers) AddDelay(c fiber.Ctx) error {
	var req AddDelayRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	delay, err := h.Delays.Add(c.Context(), actorFrom(c), c.Params("id"), req.Reason)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(delay)
}

func (h *APIHandlers) GetChecklist(c fiber.Ctx) error {
	items, err := h.Checklist.Items(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ChecklistResponse{Items: items, Progress: models.ProgressOf(items)})
}

func (h *APIHandlers) InitializeChecklist(c fiber.Ctx) error {
	var req InitializeChecklistRequest
	if err := h.bindOptional(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	items, err := h.Checklist.Initialize(c.Context(), actorFrom(c), c.Params("id"), req.CadastroType)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(ChecklistResponse{Items: items, Progress: models.ProgressOf(items)})
}

func (h *APIHandlers) AddChecklistItem(c fiber.Ctx) error {
	var req AddChecklistItemRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	item, err := h.Checklist.AddItem(c.Context(), actorFrom(c), c.Params("id"), req.Name, req.Note)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *APIHandlers) CompleteChecklistItem(c fiber.Ctx) error {
	var req CompleteChecklistItemRequest
	if err := h.bindOptional(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	item, err := h.Checklist.Complete(c.Context(), actorFrom(c), c.Params("itemId"), req.Note)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(item)
}

func (h *APIHandlers) UncompleteChecklistItem(c fiber.Ctx) error {
	item, err := h.Checklist.Uncomplete(c.Context(), actorFrom(c), c.Params("itemId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(item)
}

func (h *APIHandlers) RemoveChecklistItem(c fiber.Ctx) error {
	err := h.Checklist.Remove(c.Context(), actorFrom(c), c.Params("itemId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) DashboardStats(c fiber.Ctx) error {
	stats, err := h.Dashboard.Snapshot(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(stats)
}

// Events streams notifications as server-sent events. Every identified
// client joins its operator room; queue and dashboard are opt-in.
func (h *APIHandlers) Events(c fiber.Ctx) error {
	actor := actorFrom(c)

	var rooms []notify.Room

	if actor.ID != "" {
		rooms = append(rooms, notify.OperatorRoom(actor.ID))
	}

	if fiber.Query[bool](c, "queue") {
		rooms = append(rooms, notify.RoomQueue)
	}

	if fiber.Query[bool](c, "dashboard") {
		rooms = append(rooms, notify.RoomDashboard)
	}

	if len(rooms) == 0 {
		return badRequest(c, "Nothing to subscribe to: identify the user or select queue or dashboard")
	}

	sub := h.Hub.Subscribe(rooms...)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	logger := log.FromContext(c.Context(), slog.Default()).With("rooms", rooms)

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer h.Hub.Unsubscribe(sub)

		h.stream(w, sub, logger)
	})
}

// stream relays sub to w. A failed write means the client went away.
func (h *APIHandlers) stream(w *bufio.Writer, sub *notify.Subscriber, logger *slog.Logger) {
	err := notify.Stream(h.streams, w, sub, h.heartbeat)
	if err != nil {
		logger.DebugContext(h.streams, "event stream closed", "error", err)
	}
}

func (h *APIHandlers) bind(c fiber.Ctx, req any) error {
	if err := c.Bind().JSON(req); err != nil {
		return errInvalidJSON
	}

	return h.validator.Struct(req)
}

// bindOptional accepts an empty body.
func (h *APIHandlers) bindOptional(c fiber.Ctx, req any) error {
	if len(c.Body()) == 0 {
		return nil
	}

	return h.bind(c, req)
}

func (h *APIHandlers) respond(c fiber.Ctx) func(*models.Submission, error) error {
	return func(submission *models.Submission, err error) error {
		if err != nil {
			return handleServiceError(c, err)
		}

		return c.JSON(submission)
	}
}
