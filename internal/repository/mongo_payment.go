package repository

import (
	"context"
	"fmt"

	"github.com/mansoorceksport/clubdesk/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultPaymentPageSize = 100

// MongoPaymentRepository implements domain.PaymentRepository
type MongoPaymentRepository struct {
	collection *mongo.Collection
}

// NewMongoPaymentRepository creates a new payment repository
func NewMongoPaymentRepository(db *mongo.Database) *MongoPaymentRepository {
	return &MongoPaymentRepository{collection: db.Collection("payments")}
}

// Record appends the payment. Payments are never updated afterwards.
func (r *MongoPaymentRepository) Record(ctx context.Context, payment *domain.Payment) error {
	if _, err := r.collection.InsertOne(ctx, payment); err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	return nil
}

func (r *MongoPaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	var payment domain.Payment
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&payment); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *MongoPaymentRepository) List(ctx context.Context, limit int64) ([]*domain.Payment, error) {
	if limit <= 0 || limit > defaultPaymentPageSize {
		limit = defaultPaymentPageSize
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "paid_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer cursor.Close(ctx)

	payments := []*domain.Payment{}
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("failed to decode payments: %w", err)
	}
	return payments, nil
}
