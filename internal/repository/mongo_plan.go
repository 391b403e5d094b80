package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mansoorceksport/clubdesk/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoPlanRepository implements domain.PlanRepository
type MongoPlanRepository struct {
	collection *mongo.Collection
	sequences  domain.SequenceRepository
}

// NewMongoPlanRepository creates a new plan repository
func NewMongoPlanRepository(db *mongo.Database, sequences domain.SequenceRepository) *MongoPlanRepository {
	return &MongoPlanRepository{
		collection: db.Collection("plans"),
		sequences:  sequences,
	}
}

func (r *MongoPlanRepository) Create(ctx context.Context, plan *domain.Plan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	if plan.ID == 0 {
		id, err := r.sequences.Next(ctx, domain.SequencePlans)
		if err != nil {
			return err
		}
		plan.ID = id
	}

	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, plan); err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

func (r *MongoPlanRepository) GetByID(ctx context.Context, id int64) (*domain.Plan, error) {
	var raw bson.M
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return mapBsonToPlan(raw), nil
}

func (r *MongoPlanRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Plan, error) {
	filter := bson.M{}
	if activeOnly {
		filter["is_active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "price", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer cursor.Close(ctx)

	plans := []*domain.Plan{}
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		plans = append(plans, mapBsonToPlan(raw))
	}
	return plans, cursor.Err()
}

func (r *MongoPlanRepository) Update(ctx context.Context, plan *domain.Plan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	plan.UpdatedAt = time.Now().UTC()

	update := bson.M{
		"$set": bson.M{
			"name":          plan.Name,
			"description":   plan.Description,
			"type":          plan.Type,
			"benefits":      plan.Benefits,
			"price":         plan.Price,
			"duration_days": plan.DurationDays,
			"is_active":     plan.IsActive,
			"updated_at":    plan.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": plan.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

// SetActive is the catalog's soft delete; plans referenced by receipts are never removed.
func (r *MongoPlanRepository) SetActive(ctx context.Context, id int64, active bool) error {
	update := bson.M{"$set": bson.M{"is_active": active, "updated_at": time.Now().UTC()}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to change plan status: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

// mapBsonToPlan tolerates plans written by hand in the shell, where numbers arrive as
// int32 or double.
func mapBsonToPlan(raw bson.M) *domain.Plan {
	plan := &domain.Plan{}

	plan.ID = bsonInt64(raw["_id"])
	if name, ok := raw["name"].(string); ok {
		plan.Name = name
	}
	if desc, ok := raw["description"].(string); ok {
		plan.Description = desc
	}
	if typ, ok := raw["type"].(string); ok {
		plan.Type = typ
	}
	if benefits, ok := raw["benefits"].(string); ok {
		plan.Benefits = benefits
	}
	plan.Price = bsonInt64(raw["price"])
	plan.DurationDays = int(bsonInt64(raw["duration_days"]))
	if isActive, ok := raw["is_active"].(bool); ok {
		plan.IsActive = isActive
	}
	if created, ok := raw["created_at"].(interface{ Time() time.Time }); ok {
		plan.CreatedAt = created.Time()
	}
	if updated, ok := raw["updated_at"].(interface{ Time() time.Time }); ok {
		plan.UpdatedAt = updated.Time()
	}

	return plan
}

func bsonInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
