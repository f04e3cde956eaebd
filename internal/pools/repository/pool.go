package repository

import (
	"context"
	"errors"
	"fmt"
	poolserrors "receptionist/internal/pools/errors"
	"receptionist/pkg/config"
	mongotx "receptionist/pkg/db/mongo"
	"receptionist/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	PoolsCollectionName   = "Pools"
	MembersCollectionName = "Pool_members"
)

// PoolRepository is the pool directory plus the rotation pointer store.
type PoolRepository interface {
	// Create stores pool; CreatedAt is supplied by the caller.
	Create(ctx context.Context, pool *model.Pool) error
	FindByID(ctx context.Context, id string) (*model.Pool, error)
	// CompareAndSetLastAssigned writes next only while the stored pointer
	// equals expected. A nil expected matches a missing or null pointer.
	CompareAndSetLastAssigned(ctx context.Context, poolID string, expected *string, next string, now time.Time) (bool, error)

	// AddMember appends a member to the pool rotation, assigning the next
	// join order.
	AddMember(ctx context.Context, member *model.PoolMember) error
	SetMemberActive(ctx context.Context, memberID string, active bool) error
	// ListActiveMembers returns active members ordered by join order.
	ListActiveMembers(ctx context.Context, poolID string) ([]*model.PoolMember, error)
}

type mongoPoolRepository struct {
	cfg     *config.Config
	pools   *mongo.Collection
	members *mongo.Collection
}

func NewMongoPoolRepository(cfg *config.Config) PoolRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPoolRepository{
		cfg:     cfg,
		pools:   db.Collection(PoolsCollectionName),
		members: db.Collection(MembersCollectionName),
	}
}

func (r *mongoPoolRepository) Create(ctx context.Context, pool *model.Pool) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	pool.UpdatedAt = pool.CreatedAt

	result, err := r.pools.InsertOne(ctx, pool)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		pool.ID = oid.Hex()
	}
	return nil
}

func (r *mongoPoolRepository) FindByID(ctx context.Context, id string) (*model.Pool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", poolserrors.ErrInvalidID, id)
	}

	var pool model.Pool
	err = r.pools.FindOne(ctx, bson.M{"_id": objectID}).Decode(&pool)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", poolserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find pool: %w", err)
	}
	return &pool, nil
}

func (r *mongoPoolRepository) CompareAndSetLastAssigned(ctx context.Context, poolID string, expected *string, next string, now time.Time) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(poolID)
	if err != nil {
		return false, fmt.Errorf("%w: %s", poolserrors.ErrInvalidID, poolID)
	}

	// {field: null} matches both an explicit null and a missing field.
	filter := bson.M{"_id": objectID, "last_assigned_member_id": nil}
	if expected != nil {
		filter["last_assigned_member_id"] = *expected
	}

	result, err := r.pools.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"last_assigned_member_id": next,
		"updated_at":              now,
	}})
	if err != nil {
		return false, fmt.Errorf("failed to update rotation pointer: %w", err)
	}
	return result.MatchedCount == 1, nil
}

func (r *mongoPoolRepository) AddMember(ctx context.Context, member *model.PoolMember) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(member.PoolID)
	if err != nil {
		return fmt.Errorf("%w: %s", poolserrors.ErrInvalidID, member.PoolID)
	}

	var pool model.Pool
	err = r.pools.FindOneAndUpdate(ctx,
		bson.M{"_id": objectID},
		bson.M{"$inc": bson.M{"member_seq": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&pool)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: %s", poolserrors.ErrNotFound, member.PoolID)
		}
		return fmt.Errorf("failed to allocate join order: %w", err)
	}

	member.JoinOrder = pool.MemberSeq

	result, err := r.members.InsertOne(ctx, member)
	if err != nil {
		return fmt.Errorf("failed to add pool member: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		member.ID = oid.Hex()
	}
	return nil
}

func (r *mongoPoolRepository) SetMemberActive(ctx context.Context, memberID string, active bool) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(memberID)
	if err != nil {
		return fmt.Errorf("%w: %s", poolserrors.ErrMemberNotFound, memberID)
	}

	result, err := r.members.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": bson.M{"active": active}})
	if err != nil {
		return fmt.Errorf("failed to update pool member: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", poolserrors.ErrMemberNotFound, memberID)
	}
	return nil
}

func (r *mongoPoolRepository) ListActiveMembers(ctx context.Context, poolID string) ([]*model.PoolMember, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "join_order", Value: 1}})

	cursor, err := r.members.Find(ctx, bson.M{"pool_id": poolID, "active": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query pool members: %w", err)
	}
	defer cursor.Close(ctx)

	var members []*model.PoolMember
	if err = cursor.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("failed to decode pool members: %w", err)
	}
	return members, nil
}
