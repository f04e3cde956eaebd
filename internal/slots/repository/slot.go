package repository

import (
	"context"
	"errors"
	"fmt"
	slotserrors "receptionist/internal/slots/errors"
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
	CollectionName = "Slots"
)

type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	FindByPool(ctx context.Context, poolID string, filter model.SlotFilter, limit int, offset int64) ([]*model.Slot, error)
	CountByPool(ctx context.Context, poolID string, filter model.SlotFilter) (int64, error)

	// SetStatus unconditionally moves the slot to status.
	SetStatus(ctx context.Context, id string, status model.SlotStatus, now time.Time) error
	// CompareAndSetStatus moves the slot to `to` only while it is in `from`.
	CompareAndSetStatus(ctx context.Context, id string, from, to model.SlotStatus, now time.Time) (bool, error)
	// DeleteIfOpen removes the slot only while it is open.
	DeleteIfOpen(ctx context.Context, id string) error
}

type mongoSlotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// CounterField names the counter incremented when a slot enters status.
func CounterField(status model.SlotStatus) string {
	switch status {
	case model.SlotReserved:
		return "reserved_count"
	case model.SlotBooked:
		return "booked_count"
	default:
		return ""
	}
}

func statusUpdate(status model.SlotStatus, now time.Time) bson.M {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": now}}
	if field := CounterField(status); field != "" {
		update["$inc"] = bson.M{field: 1}
	}
	return update
}

func (r *mongoSlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.InsertOne(ctx, slot)
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		slot.ID = oid.Hex()
	}

	return nil
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	var slot model.Slot
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}
	return &slot, nil
}

func poolFilter(poolID string, filter model.SlotFilter) bson.M {
	query := bson.M{"pool_id": poolID}

	startTime := bson.M{}
	if filter.From != nil {
		startTime["$gte"] = *filter.From
	}
	if filter.To != nil {
		startTime["$lt"] = *filter.To
	}
	if len(startTime) > 0 {
		query["start_time"] = startTime
	}

	if filter.Status != "" {
		query["status"] = filter.Status
	}
	return query
}

func (r *mongoSlotRepository) FindByPool(ctx context.Context, poolID string, filter model.SlotFilter, limit int, offset int64) ([]*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "start_time", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, poolFilter(poolID, filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.Slot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}

	return slots, nil
}

func (r *mongoSlotRepository) CountByPool(ctx context.Context, poolID string, filter model.SlotFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, poolFilter(poolID, filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count slots: %w", err)
	}
	return count, nil
}

func (r *mongoSlotRepository) SetStatus(ctx context.Context, id string, status model.SlotStatus, now time.Time) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, statusUpdate(status, now))
	if err != nil {
		return fmt.Errorf("failed to update slot status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoSlotRepository) CompareAndSetStatus(ctx context.Context, id string, from, to model.SlotStatus, now time.Time) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID, "status": from}, statusUpdate(to, now))
	if err != nil {
		return false, fmt.Errorf("failed to transition slot status: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *mongoSlotRepository) DeleteIfOpen(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID, "status": model.SlotOpen})
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	if result.DeletedCount == 1 {
		return nil
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to check slot after delete: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
	}
	return fmt.Errorf("%w: %s", slotserrors.ErrNotOpen, id)
}
