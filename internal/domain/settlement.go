package domain

import (
	"context"
	"time"
)

// Sequence names
const (
	SequenceMembers        = "members"
	SequencePlans          = "plans"
	SequenceMemberships    = "memberships"
	SequencePayments       = "payments"
	SequenceReceipts       = "receipts"
	SequenceReceiptNumbers = "receipt_numbers"
)

// SettleRequest asks for a plan to be sold to a member.
type SettleRequest struct {
	MemberID       int64  `json:"member_id"`
	PlanID         int64  `json:"plan_id"`
	Method         string `json:"method"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Settlement is the outcome of a committed settlement.
type Settlement struct {
	PaymentID     int64     `json:"payment_id"`
	MembershipID  int64     `json:"membership_id"`
	ReceiptID     int64     `json:"receipt_id"`
	ReceiptNumber string    `json:"receipt_number"`
	Amount        int64     `json:"amount"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Replayed      bool      `json:"replayed,omitempty"`
}

// SettlementFromReceipt rebuilds the outcome from its receipt.
func SettlementFromReceipt(r *Receipt) *Settlement {
	return &Settlement{
		PaymentID:     r.PaymentID,
		MembershipID:  r.MembershipID,
		ReceiptID:     r.ID,
		ReceiptNumber: r.Number,
		Amount:        r.Amount,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
	}
}

// SequenceRepository hands out monotonically increasing numbers per name.
type SequenceRepository interface {
	Next(ctx context.Context, name string) (int64, error)
}

// TransactionRunner executes fn in a single all-or-nothing unit of work. fn must use the
// context it receives for every write that belongs to the unit. fn may be invoked more
// than once when the storage retries a transient conflict.
type TransactionRunner interface {
	WithinTransaction(ctx context.Context, fn func(txCtx context.Context) error) error
}

// MemberLocker serializes settlements for the same member.
type MemberLocker interface {
	// Acquire blocks until the member is locked or gives up with ErrConcurrentSettlement.
	Acquire(ctx context.Context, memberID int64) (release func(), err error)
}
