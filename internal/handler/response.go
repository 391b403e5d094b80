package handler

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/clubdesk/internal/domain"
)

const persistenceMessage = "the request could not be completed, please retry"

// StatusFor maps an error code to its HTTP status
func StatusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodePlanNotFound, domain.CodeMemberNotFound, domain.CodeReceiptNotFound, domain.CodeNotFound:
		return fiber.StatusNotFound
	case domain.CodeInvalidMethod, domain.CodeInvalidRequest, domain.CodeInvalidPlan:
		return fiber.StatusBadRequest
	case domain.CodePlanInactive, domain.CodeIdempotencyKeyReused:
		return fiber.StatusUnprocessableEntity
	case domain.CodeConcurrentSettlementConflict:
		return fiber.StatusConflict
	case domain.CodeRateLimited:
		return fiber.StatusTooManyRequests
	}
	return fiber.StatusInternalServerError
}

// WriteError renders err as {"success": false, "error": {"code", "message"}}.
// Storage details never reach the client.
func WriteError(c *fiber.Ctx, err error) error {
	code := domain.Code(err)
	message := err.Error()
	if code == domain.CodePersistenceError {
		message = persistenceMessage
	}
	return c.Status(StatusFor(code)).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

func invalidRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// idParam parses a positive integer route parameter
func idParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidRequest("%s must be a positive integer", name)
	}
	return id, nil
}
