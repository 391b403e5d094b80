package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/clubdesk/internal/domain"
)

// ReceiptFinder returns display projections of receipts
type ReceiptFinder interface {
	GetByPaymentID(ctx context.Context, paymentID int64) (*domain.DisplayReceipt, error)
}

// ReceiptHandler handles receipt lookups
type ReceiptHandler struct {
	receipts ReceiptFinder
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receipts ReceiptFinder) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// GetByPayment handles GET /v1/receipts/payment/:paymentId
func (h *ReceiptHandler) GetByPayment(c *fiber.Ctx) error {
	paymentID, err := idParam(c, "paymentId")
	if err != nil {
		return WriteError(c, err)
	}

	receipt, err := h.receipts.GetByPaymentID(c.UserContext(), paymentID)
	if err != nil {
		return WriteError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    receipt,
	})
}
