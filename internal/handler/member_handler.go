package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/clubdesk/internal/domain"
)

// MemberHandler handles the member directory and membership lookups
type MemberHandler struct {
	members     domain.MemberRepository
	memberships domain.MembershipRepository
}

// NewMemberHandler creates a new MemberHandler
func NewMemberHandler(members domain.MemberRepository, memberships domain.MembershipRepository) *MemberHandler {
	return &MemberHandler{
		members:     members,
		memberships: memberships,
	}
}

// MemberRequest represents the request body for registering a member
type MemberRequest struct {
	RUT       string `json:"rut"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// List handles GET /v1/members
func (h *MemberHandler) List(c *fiber.Ctx) error {
	members, err := h.members.List(c.UserContext())
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": members})
}

// Get handles GET /v1/members/:id
func (h *MemberHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return WriteError(c, err)
	}
	member, err := h.members.GetByID(c.UserContext(), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": member})
}

// Create handles POST /v1/members
func (h *MemberHandler) Create(c *fiber.Ctx) error {
	var req MemberRequest
	if err := c.BodyParser(&req); err != nil {
		return WriteError(c, invalidRequest("invalid request body"))
	}
	if strings.TrimSpace(req.FirstName) == "" {
		return WriteError(c, invalidRequest("first_name is required"))
	}

	member := &domain.Member{
		RUT:       strings.TrimSpace(req.RUT),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
	}
	if err := h.members.Create(c.UserContext(), member); err != nil {
		return WriteError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": member})
}

// GetActiveMembership handles GET /v1/members/:id/membership
func (h *MemberHandler) GetActiveMembership(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return WriteError(c, err)
	}
	membership, err := h.memberships.GetActiveByMemberID(c.UserContext(), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": membership})
}

// ListMemberships handles GET /v1/members/:id/memberships
func (h *MemberHandler) ListMemberships(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return WriteError(c, err)
	}
	memberships, err := h.memberships.ListByMemberID(c.UserContext(), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": memberships})
}
