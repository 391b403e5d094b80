package domain

import (
	"context"
	"strings"
	"time"
)

// Member status values
const (
	MemberStatusActive   = "active"
	MemberStatusInactive = "inactive"
)

// Member is a club member as held by the member directory.
type Member struct {
	ID        int64     `bson:"_id" json:"id"`
	RUT       string    `bson:"rut,omitempty" json:"rut,omitempty"`
	FirstName string    `bson:"first_name" json:"first_name"`
	LastName  string    `bson:"last_name" json:"last_name"`
	Email     string    `bson:"email,omitempty" json:"email,omitempty"`
	Phone     string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Address   string    `bson:"address,omitempty" json:"address,omitempty"`
	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// FullName joins first and last name the way receipts display it.
func (m *Member) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(m.FirstName) + " " + strings.TrimSpace(m.LastName))
}

// MemberRepository is the member directory.
type MemberRepository interface {
	Create(ctx context.Context, member *Member) error
	GetByID(ctx context.Context, id int64) (*Member, error)
	List(ctx context.Context) ([]*Member, error)
}
