package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk/internal/api/dto"
	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/service"
	apperrors "github.com/deskline/helpdesk/pkg/util/errorutil"
)

// SLAEvaluator runs one evaluation pass on demand.
type SLAEvaluator interface {
	Evaluate(ctx context.Context) service.EvaluationReport
}

// SLAHandler exposes policy administration and on-demand evaluation.
type SLAHandler struct {
	policies  *service.SLAPolicyService
	evaluator SLAEvaluator
}

// NewSLAHandler constructs handler.
func NewSLAHandler(policies *service.SLAPolicyService, evaluator SLAEvaluator) *SLAHandler {
	return &SLAHandler{policies: policies, evaluator: evaluator}
}

// Evaluate POST /api/sla/evaluate.
func (h *SLAHandler) Evaluate(c *fiber.Ctx) error {
	report := h.evaluator.Evaluate(c.UserContext())
	return c.JSON(fiber.Map{"data": report})
}

// ListPolicies GET /api/sla.
func (h *SLAHandler) ListPolicies(c *fiber.Ctx) error {
	policies, err := h.policies.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.SLAPolicyResponse, 0, len(policies))
	for i := range policies {
		items = append(items, dto.NewSLAPolicyResponse(&policies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetPolicy GET /api/sla/:priority.
func (h *SLAHandler) GetPolicy(c *fiber.Ctx) error {
	priority, err := priorityParam(c)
	if err != nil {
		return err
	}
	policy, err := h.policies.Get(c.UserContext(), priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSLAPolicyResponse(policy)})
}

// UpdatePolicy PUT /api/sla/:priority.
func (h *SLAHandler) UpdatePolicy(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	priority, err := priorityParam(c)
	if err != nil {
		return err
	}
	var req dto.UpdateSLAPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	policy, err := h.policies.Update(c.UserContext(), actor, priority, service.SLAThresholds{
		ResponseTimeMinutes:   req.ResponseTimeMinutes,
		ResolutionTimeMinutes: req.ResolutionTimeMinutes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSLAPolicyResponse(policy)})
}

func priorityParam(c *fiber.Ctx) (domain.TicketPriority, error) {
	priority, ok := domain.ParsePriority(c.Params("priority"))
	if !ok {
		return "", apperrors.NewValidationError("unknown priority", map[string]any{"priority": c.Params("priority")})
	}
	return priority, nil
}
