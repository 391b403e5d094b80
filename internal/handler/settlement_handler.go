package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/clubdesk/internal/domain"
)

// IdempotencyKeyHeader carries the client's deduplication key
const IdempotencyKeyHeader = "Idempotency-Key"

// Settler runs settlements
type Settler interface {
	Settle(ctx context.Context, req domain.SettleRequest) (*domain.Settlement, error)
}

// SettlementHandler handles the settlement endpoint
type SettlementHandler struct {
	settlements Settler
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(settlements Settler) *SettlementHandler {
	return &SettlementHandler{settlements: settlements}
}

// SettleRequest represents the request body for a settlement.
// There is no amount: the plan price is always charged.
type SettleRequest struct {
	MemberID       int64  `json:"member_id"`
	PlanID         int64  `json:"plan_id"`
	Method         string `json:"method"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Settle handles POST /v1/settlements
func (h *SettlementHandler) Settle(c *fiber.Ctx) error {
	var req SettleRequest
	if err := c.BodyParser(&req); err != nil {
		return WriteError(c, invalidRequest("invalid request body"))
	}
	if req.MemberID <= 0 || req.PlanID <= 0 {
		return WriteError(c, invalidRequest("member_id and plan_id are required"))
	}

	key := c.Get(IdempotencyKeyHeader)
	if key == "" {
		key = req.IdempotencyKey
	}

	result, err := h.settlements.Settle(c.UserContext(), domain.SettleRequest{
		MemberID:       req.MemberID,
		PlanID:         req.PlanID,
		Method:         req.Method,
		IdempotencyKey: key,
	})
	if err != nil {
		return WriteError(c, err)
	}

	status := fiber.StatusCreated
	if result.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}
