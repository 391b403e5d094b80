package domain

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")

	ErrPlanNotFound    = fmt.Errorf("plan not found: %w", ErrNotFound)
	ErrMemberNotFound  = fmt.Errorf("member not found: %w", ErrNotFound)
	ErrReceiptNotFound = fmt.Errorf("receipt not found: %w", ErrNotFound)

	ErrPlanInactive   = errors.New("plan is not currently sellable")
	ErrInvalidPlan    = errors.New("plan must have a positive price and duration")
	ErrInvalidMethod  = errors.New("payment method must be one of Cash, Card or Transfer")
	ErrInvalidRequest = errors.New("invalid request")

	ErrConcurrentSettlement    = errors.New("another settlement for this member is in progress")
	ErrIdempotencyKeyReused    = errors.New("idempotency key was already used for a different settlement")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already recorded")
	ErrReceiptMismatch         = errors.New("payment and membership belong to different members")

	ErrPersistence = errors.New("persistence failure")
	ErrRateLimited = errors.New("too many settlement requests")
)

// ErrorCode is the stable, client facing identifier of a failure.
type ErrorCode string

const (
	CodePlanNotFound                 ErrorCode = "PlanNotFound"
	CodePlanInactive                 ErrorCode = "PlanInactive"
	CodeInvalidPlan                  ErrorCode = "InvalidPlan"
	CodeMemberNotFound               ErrorCode = "MemberNotFound"
	CodeReceiptNotFound              ErrorCode = "ReceiptNotFound"
	CodeNotFound                     ErrorCode = "NotFound"
	CodeInvalidMethod                ErrorCode = "InvalidMethod"
	CodeInvalidRequest               ErrorCode = "InvalidRequest"
	CodeIdempotencyKeyReused         ErrorCode = "IdempotencyKeyReused"
	CodeConcurrentSettlementConflict ErrorCode = "ConcurrentSettlementConflict"
	CodeRateLimited                  ErrorCode = "RateLimited"
	CodePersistenceError             ErrorCode = "PersistenceError"
)

// codeTable is evaluated in order; specific not-found errors come before the generic one.
var codeTable = []struct {
	err  error
	code ErrorCode
}{
	{ErrPlanNotFound, CodePlanNotFound},
	{ErrMemberNotFound, CodeMemberNotFound},
	{ErrReceiptNotFound, CodeReceiptNotFound},
	{ErrNotFound, CodeNotFound},
	{ErrPlanInactive, CodePlanInactive},
	{ErrInvalidPlan, CodeInvalidPlan},
	{ErrInvalidMethod, CodeInvalidMethod},
	{ErrInvalidRequest, CodeInvalidRequest},
	{ErrIdempotencyKeyReused, CodeIdempotencyKeyReused},
	{ErrConcurrentSettlement, CodeConcurrentSettlementConflict},
	{ErrRateLimited, CodeRateLimited},
	{ErrPersistence, CodePersistenceError},
}

// Code maps err to its ErrorCode. Unknown errors are reported as persistence failures.
// A nil error has no code.
func Code(err error) ErrorCode {
	if err == nil {
		return ""
	}
	for _, entry := range codeTable {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return CodePersistenceError
}

// IsNotFound reports whether err is any of the not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable reports whether the caller may resubmit the same request.
func IsRetryable(err error) bool {
	switch Code(err) {
	case CodeConcurrentSettlementConflict, CodePersistenceError, CodeRateLimited:
		return true
	}
	return false
}

// Persistence marks err as a storage failure while keeping it inspectable.
func Persistence(err error) error {
	if err == nil || errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
