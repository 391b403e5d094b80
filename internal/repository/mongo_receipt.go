package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mansoorceksport/clubdesk/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	receiptNumberIndex      = "uniq_receipt_number"
	receiptIdempotencyIndex = "uniq_receipt_idempotency_key"
)

// MongoReceiptRepository implements domain.ReceiptRepository
type MongoReceiptRepository struct {
	collection *mongo.Collection
}

// NewMongoReceiptRepository creates a new receipt repository and ensures its indexes
func NewMongoReceiptRepository(db *mongo.Database) (*MongoReceiptRepository, error) {
	coll := db.Collection("receipts")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "number", Value: 1}},
			Options: options.Index().SetName(receiptNumberIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "idempotency_key", Value: 1}},
			Options: options.Index().SetName(receiptIdempotencyIndex).SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "payment_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create receipt indexes: %w", err)
	}

	return &MongoReceiptRepository{collection: coll}, nil
}

func (r *MongoReceiptRepository) Issue(ctx context.Context, receipt *domain.Receipt) error {
	if _, err := r.collection.InsertOne(ctx, receipt); err != nil {
		if mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), receiptIdempotencyIndex) {
			return domain.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to issue receipt: %w", err)
	}
	return nil
}

func (r *MongoReceiptRepository) GetByID(ctx context.Context, id int64) (*domain.Receipt, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoReceiptRepository) GetByPaymentID(ctx context.Context, paymentID int64) (*domain.Receipt, error) {
	return r.findOne(ctx, bson.M{"payment_id": paymentID})
}

func (r *MongoReceiptRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Receipt, error) {
	if key == "" {
		return nil, domain.ErrReceiptNotFound
	}
	return r.findOne(ctx, bson.M{"idempotency_key": key})
}

func (r *MongoReceiptRepository) findOne(ctx context.Context, filter bson.M) (*domain.Receipt, error) {
	var receipt domain.Receipt
	if err := r.collection.FindOne(ctx, filter).Decode(&receipt); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrReceiptNotFound
		}
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	return &receipt, nil
}
