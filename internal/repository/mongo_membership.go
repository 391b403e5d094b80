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

const activeMembershipIndex = "uniq_active_membership_per_member"

// MongoMembershipRepository implements domain.MembershipRepository.
// A partial unique index keeps at most one Active membership per member at the storage level.
type MongoMembershipRepository struct {
	collection *mongo.Collection
}

// NewMongoMembershipRepository creates a new membership repository and ensures its indexes
func NewMongoMembershipRepository(db *mongo.Database) (*MongoMembershipRepository, error) {
	coll := db.Collection("memberships")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "member_id", Value: 1}},
			Options: options.Index().
				SetName(activeMembershipIndex).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": domain.MembershipStatusActive}),
		},
		{
			Keys: bson.D{{Key: "member_id", Value: 1}, {Key: "start_date", Value: -1}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create membership indexes: %w", err)
	}

	return &MongoMembershipRepository{collection: coll}, nil
}

// Open supersedes the member's active membership with m. ctx must carry the settlement
// transaction so that both writes commit or roll back together.
func (r *MongoMembershipRepository) Open(ctx context.Context, m *domain.Membership) error {
	now := time.Now().UTC()

	_, err := r.collection.UpdateMany(ctx,
		bson.M{"member_id": m.MemberID, "status": domain.MembershipStatusActive},
		bson.M{"$set": bson.M{"status": domain.MembershipStatusInactive, "deactivated_at": now}},
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate memberships: %w", err)
	}

	m.Status = domain.MembershipStatusActive
	m.CreatedAt = now
	m.DeactivatedAt = nil

	if _, err := r.collection.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), activeMembershipIndex) {
			return domain.ErrConcurrentSettlement
		}
		return fmt.Errorf("failed to open membership: %w", err)
	}
	return nil
}

func (r *MongoMembershipRepository) GetByID(ctx context.Context, id int64) (*domain.Membership, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoMembershipRepository) GetActiveByMemberID(ctx context.Context, memberID int64) (*domain.Membership, error) {
	return r.findOne(ctx, bson.M{"member_id": memberID, "status": domain.MembershipStatusActive})
}

func (r *MongoMembershipRepository) ListByMemberID(ctx context.Context, memberID int64) ([]*domain.Membership, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"member_id": memberID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer cursor.Close(ctx)

	memberships := []*domain.Membership{}
	if err := cursor.All(ctx, &memberships); err != nil {
		return nil, fmt.Errorf("failed to decode memberships: %w", err)
	}
	return memberships, nil
}

func (r *MongoMembershipRepository) findOne(ctx context.Context, filter bson.M) (*domain.Membership, error) {
	var m domain.Membership
	if err := r.collection.FindOne(ctx, filter).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &m, nil
}
