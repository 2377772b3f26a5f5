package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk/internal/api/dto"
	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/service"
	apperrors "github.com/deskline/helpdesk/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints for customers and staff.
type TicketsHandler struct {
	service *service.TicketService
	events  *service.EventLog
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, eventLog *service.EventLog) *TicketsHandler {
	return &TicketsHandler{service: ticketService, events: eventLog}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	priority := req.Priority
	if priority != "" {
		parsed, ok := domain.ParsePriority(string(priority))
		if !ok {
			return apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
		}
		priority = parsed
	}

	ticket, err := h.service.Create(c.UserContext(), actor.ID, service.TicketCreateInput{
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var statuses []domain.TicketStatus
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			statuses = append(statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	tickets, err := h.service.List(c.UserContext(), actor, statuses, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	view, err := h.service.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetailResponse(view.Ticket, view.Comments)})
}

// UpdateTicket PATCH /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	patch, err := toTicketPatch(req)
	if err != nil {
		return err
	}

	ticket, err := h.service.Update(c.UserContext(), actor, c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// toTicketPatch normalizes priority and status the same way ticket creation
// does. Unknown values are rejected.
func toTicketPatch(req dto.UpdateTicketRequest) (service.TicketPatch, error) {
	patch := service.TicketPatch{
		Subject:     req.Subject,
		Description: req.Description,
	}
	if req.Priority != nil {
		priority, ok := domain.ParsePriority(string(*req.Priority))
		if !ok {
			return patch, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *req.Priority})
		}
		patch.Priority = &priority
	}
	if req.Status != nil {
		status, ok := domain.ParseStatus(string(*req.Status))
		if !ok {
			return patch, apperrors.NewValidationError("unknown status", map[string]any{"status": *req.Status})
		}
		patch.Status = &status
	}
	if req.AssignedAgentID.Set {
		patch.Assignee = &service.AssigneeUpdate{AgentID: req.AssignedAgentID.Value}
	}
	return patch, nil
}

// AddComment POST /api/tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.service.AddComment(c.UserContext(), actor, c.Params("id"), service.CommentInput{
		Content:    req.Content,
		Visibility: domain.CommentVisibility(strings.ToUpper(string(req.Visibility))),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// ListEvents GET /api/tickets/:id/events.
func (h *TicketsHandler) ListEvents(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	events, err := h.events.List(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketEventResponses(events)})
}
