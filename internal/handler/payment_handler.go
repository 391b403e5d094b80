package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/clubdesk/internal/domain"
)

// PaymentHandler handles payment listing
type PaymentHandler struct {
	payments domain.PaymentRepository
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments domain.PaymentRepository) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// List handles GET /v1/payments?limit=N, newest first
func (h *PaymentHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 {
		return WriteError(c, invalidRequest("limit must be positive"))
	}

	payments, err := h.payments.List(c.UserContext(), int64(limit))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": payments})
}

// Get handles GET /v1/payments/:id
func (h *PaymentHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return WriteError(c, err)
	}
	payment, err := h.payments.GetByID(c.UserContext(), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": payment})
}
