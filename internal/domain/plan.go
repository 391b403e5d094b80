package domain

import (
	"context"
	"time"
)

// Plan represents a purchasable membership offering
type Plan struct {
	ID           int64     `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Description  string    `bson:"description,omitempty" json:"description,omitempty"`
	Type         string    `bson:"type,omitempty" json:"type,omitempty"`
	Benefits     string    `bson:"benefits,omitempty" json:"benefits,omitempty"`
	Price        int64     `bson:"price" json:"price"` // Price in smallest currency unit
	DurationDays int       `bson:"duration_days" json:"duration_days"`
	IsActive     bool      `bson:"is_active" json:"is_active"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// Validate checks the fields a settlement depends on.
func (p *Plan) Validate() error {
	if p.Name == "" || p.Price <= 0 || p.DurationDays <= 0 {
		return ErrInvalidPlan
	}
	return nil
}

// PlanRepository is the plan catalog.
type PlanRepository interface {
	Create(ctx context.Context, plan *Plan) error
	GetByID(ctx context.Context, id int64) (*Plan, error)
	// List returns plans ordered by price, cheapest first.
	List(ctx context.Context, activeOnly bool) ([]*Plan, error)
	Update(ctx context.Context, plan *Plan) error
	SetActive(ctx context.Context, id int64, active bool) error
}
