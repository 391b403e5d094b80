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

// MongoMemberRepository implements domain.MemberRepository
type MongoMemberRepository struct {
	collection *mongo.Collection
	sequences  domain.SequenceRepository
}

// NewMongoMemberRepository creates a new member repository
func NewMongoMemberRepository(db *mongo.Database, sequences domain.SequenceRepository) *MongoMemberRepository {
	coll := db.Collection("members")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "rut", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})

	return &MongoMemberRepository{
		collection: coll,
		sequences:  sequences,
	}
}

func (r *MongoMemberRepository) Create(ctx context.Context, member *domain.Member) error {
	if member.ID == 0 {
		id, err := r.sequences.Next(ctx, domain.SequenceMembers)
		if err != nil {
			return err
		}
		member.ID = id
	}
	if member.Status == "" {
		member.Status = domain.MemberStatusActive
	}
	member.CreatedAt = time.Now().UTC()

	if _, err := r.collection.InsertOne(ctx, member); err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

func (r *MongoMemberRepository) GetByID(ctx context.Context, id int64) (*domain.Member, error) {
	var member domain.Member
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&member); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &member, nil
}

func (r *MongoMemberRepository) List(ctx context.Context) ([]*domain.Member, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_name", Value: 1}, {Key: "first_name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer cursor.Close(ctx)

	members := []*domain.Member{}
	if err := cursor.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("failed to decode members: %w", err)
	}
	return members, nil
}
