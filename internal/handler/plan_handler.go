package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/clubdesk/internal/domain"
)

// PlanHandler handles plan catalog maintenance
type PlanHandler struct {
	plans domain.PlanRepository
}

// NewPlanHandler creates a new PlanHandler
func NewPlanHandler(plans domain.PlanRepository) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// PlanRequest represents the request body for creating or updating a plan
type PlanRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Type         string `json:"type"`
	Benefits     string `json:"benefits"`
	Price        int64  `json:"price"`
	DurationDays int    `json:"duration_days"`
	IsActive     *bool  `json:"is_active"`
}

func (r PlanRequest) toPlan() *domain.Plan {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &domain.Plan{
		Name:         r.Name,
		Description:  r.Description,
		Type:         r.Type,
		Benefits:     r.Benefits,
		Price:        r.Price,
		DurationDays: r.DurationDays,
		IsActive:     active,
	}
}

// List handles GET /v1/plans. Inactive plans are included with ?all=true.
func (h *PlanHandler) List(c *fiber.Ctx) error {
	plans, err := h.plans.List(c.UserContext(), !c.QueryBool("all", false))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": plans})
}

// Get handles GET /v1/plans/:id
func (h *PlanHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return WriteError(c, err)
	}
	plan, err := h.plans.GetByID(c.UserContext(), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": plan})
}

// Create handles POST /v1/plans
func (h *PlanHandler) Create(c *fiber.Ctx) error {
	var req PlanRequest
	if err := c.BodyParser(&req); err != nil {
		return WriteError(c, invalidRequest("invalid request body"))
	}

	plan := req.toPlan()
	if err := plan.Validate(); err != nil {
		return WriteError(c, err)
	}
	if err := h.plans.Create(c.UserContext(), plan); err != nil {
		return WriteError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": plan})
}

// Update handles PUT /v1/plans/:id
func (h *PlanHandler) Update(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return WriteError(c, err)
	}
	var req PlanRequest
	if err := c.BodyParser(&req); err != nil {
		return WriteError(c, invalidRequest("invalid request body"))
	}

	plan := req.toPlan()
	plan.ID = id
	if err := plan.Validate(); err != nil {
		return WriteError(c, err)
	}
	// an omitted is_active keeps the stored flag; only DELETE deactivates
	if req.IsActive == nil {
		stored, err := h.plans.GetByID(c.UserContext(), id)
		if err != nil {
			return WriteError(c, err)
		}
		plan.IsActive = stored.IsActive
	}
	if err := h.plans.Update(c.UserContext(), plan); err != nil {
		return WriteError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": plan})
}

// Deactivate handles DELETE /v1/plans/:id. Plans are never removed.
func (h *PlanHandler) Deactivate(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return WriteError(c, err)
	}
	if err := h.plans.SetActive(c.UserContext(), id, false); err != nil {
		return WriteError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "plan deactivated"})
}
