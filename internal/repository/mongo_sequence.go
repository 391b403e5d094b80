package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSequenceRepository implements domain.SequenceRepository on a counters collection.
// Counters are bumped outside settlement transactions, so a rolled back settlement leaves a gap.
type MongoSequenceRepository struct {
	collection *mongo.Collection
}

// NewMongoSequenceRepository creates a new sequence repository
func NewMongoSequenceRepository(db *mongo.Database) *MongoSequenceRepository {
	return &MongoSequenceRepository{
		collection: db.Collection("counters"),
	}
}

// Next atomically increments and returns the counter called name, starting at 1.
func (r *MongoSequenceRepository) Next(ctx context.Context, name string) (int64, error) {
	filter := bson.M{"_id": name}
	update := bson.M{"$inc": bson.M{"value": int64(1)}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter struct {
		Value int64 `bson:"value"`
	}

	// Two first-time upserts of the same name race on _id; the loser retries and increments.
	for attempt := 0; attempt < 2; attempt++ {
		err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter)
		if err == nil {
			return counter.Value, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return 0, fmt.Errorf("failed to advance sequence %s: %w", name, err)
		}
	}
	return 0, fmt.Errorf("failed to advance sequence %s: repeated upsert conflict", name)
}
