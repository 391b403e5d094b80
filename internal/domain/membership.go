package domain

import (
	"context"
	"time"
)

// MembershipStatus is the lifecycle state of a membership
type MembershipStatus string

const (
	MembershipStatusActive   MembershipStatus = "Active"
	MembershipStatusInactive MembershipStatus = "Inactive"
)

// Membership is the entitlement window bought by a settlement.
type Membership struct {
	ID            int64            `bson:"_id" json:"id"`
	MemberID      int64            `bson:"member_id" json:"member_id"`
	PlanID        int64            `bson:"plan_id" json:"plan_id"`
	StartDate     time.Time        `bson:"start_date" json:"start_date"`
	EndDate       time.Time        `bson:"end_date" json:"end_date"`
	Status        MembershipStatus `bson:"status" json:"status"`
	CreatedAt     time.Time        `bson:"created_at" json:"created_at"`
	DeactivatedAt *time.Time       `bson:"deactivated_at,omitempty" json:"deactivated_at,omitempty"`
}

// CalculateEndDate adds durationDays calendar days to start.
func CalculateEndDate(start time.Time, durationDays int) time.Time {
	return start.AddDate(0, 0, durationDays)
}

// MembershipRepository is the membership ledger.
type MembershipRepository interface {
	// Open deactivates every active membership of m.MemberID and inserts m as the active one.
	// Both writes must run inside the transaction carried by ctx.
	Open(ctx context.Context, m *Membership) error
	GetByID(ctx context.Context, id int64) (*Membership, error)
	GetActiveByMemberID(ctx context.Context, memberID int64) (*Membership, error)
	ListByMemberID(ctx context.Context, memberID int64) ([]*Membership, error)
}
