package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mansoorceksport/clubdesk/internal/domain"
)

// ReceiptReservation is a receipt id and number handed out before the settlement transaction.
type ReceiptReservation struct {
	ID     int64
	Number string
}

// ReceiptIssuer numbers receipts from an atomic counter and persists their snapshot
type ReceiptIssuer struct {
	receipts  domain.ReceiptRepository
	sequences domain.SequenceRepository
	prefix    string
}

// NewReceiptIssuer creates a new ReceiptIssuer
func NewReceiptIssuer(receipts domain.ReceiptRepository, sequences domain.SequenceRepository, prefix string) *ReceiptIssuer {
	return &ReceiptIssuer{
		receipts:  receipts,
		sequences: sequences,
		prefix:    prefix,
	}
}

// Reserve allocates the receipt id and its citable number.
func (i *ReceiptIssuer) Reserve(ctx context.Context) (ReceiptReservation, error) {
	id, err := i.sequences.Next(ctx, domain.SequenceReceipts)
	if err != nil {
		return ReceiptReservation{}, err
	}
	n, err := i.sequences.Next(ctx, domain.SequenceReceiptNumbers)
	if err != nil {
		return ReceiptReservation{}, err
	}
	return ReceiptReservation{ID: id, Number: FormatReceiptNumber(i.prefix, n)}, nil
}

// FormatReceiptNumber renders n as PREFIX-00000042.
func FormatReceiptNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%08d", prefix, n)
}

// IssueInput carries everything a receipt snapshots.
type IssueInput struct {
	Reservation    ReceiptReservation
	Payment        *domain.Payment
	Membership     *domain.Membership
	Member         *domain.Member
	Plan           *domain.Plan
	IdempotencyKey string
	IssuedAt       time.Time
}

// Issue copies member and plan fields into a new receipt and stores it with the
// context's transaction.
func (i *ReceiptIssuer) Issue(ctx context.Context, in IssueInput) (*domain.Receipt, error) {
	p, m := in.Payment, in.Membership
	if p.MembershipID != m.ID || p.MemberID != m.MemberID || m.MemberID != in.Member.ID {
		return nil, fmt.Errorf("%w: payment %d, membership %d", domain.ErrReceiptMismatch, p.ID, m.ID)
	}

	receipt := &domain.Receipt{
		ID:             in.Reservation.ID,
		Number:         in.Reservation.Number,
		PaymentID:      p.ID,
		MembershipID:   m.ID,
		MemberID:       m.MemberID,
		PlanID:         in.Plan.ID,
		IdempotencyKey: in.IdempotencyKey,
		Amount:         p.Amount,
		Method:         p.Method,
		Concept:        p.Concept,
		PaidAt:         p.PaidAt,
		MemberName:     in.Member.FullName(),
		MemberRUT:      in.Member.RUT,
		MemberEmail:    in.Member.Email,
		MemberPhone:    in.Member.Phone,
		PlanName:       in.Plan.Name,
		DurationDays:   in.Plan.DurationDays,
		StartDate:      m.StartDate,
		EndDate:        m.EndDate,
		IssuedAt:       in.IssuedAt,
		Status:         domain.ReceiptStatusIssued,
	}

	if err := i.receipts.Issue(ctx, receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}
