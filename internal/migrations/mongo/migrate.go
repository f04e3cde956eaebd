package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingsrepo "receptionist/internal/bookings/repository"
	"receptionist/internal/migrations/mongo/validators"
	poolsrepo "receptionist/internal/pools/repository"
	reservationsrepo "receptionist/internal/reservations/repository"
	slotsrepo "receptionist/internal/slots/repository"
	"receptionist/pkg/logger"
)

const (
	ActiveReservationIndex = "uniq_active_reservation_per_slot"
	ConfirmedBookingIndex  = "uniq_confirmed_booking_per_slot"
)

var (
	SlotsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "pool_id", Value: 1},
			{Key: "start_time", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "pool_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "start_time", Value: 1},
		}},
	}

	// The partial unique index is the reservation mutex: a second active
	// reservation for the same slot fails with a duplicate key error.
	ReservationsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slot_id", Value: 1}},
			Options: uniqueWhereStatus(ActiveReservationIndex, "active"),
		},
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "expires_at", Value: 1},
		}},
	}

	PoolMembersIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "pool_id", Value: 1},
			{Key: "active", Value: 1},
			{Key: "join_order", Value: 1},
		}},
		{
			Keys:    bson.D{{Key: "pool_id", Value: 1}, {Key: "join_order", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	BookingsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slot_id", Value: 1}},
			Options: uniqueWhereStatus(ConfirmedBookingIndex, "confirmed"),
		},
		{Keys: bson.D{
			{Key: "pool_id", Value: 1},
			{Key: "created_at", Value: -1},
		}},
	}
)

func uniqueWhereStatus(name, status string) *options.IndexOptions {
	return options.Index().
		SetName(name).
		SetUnique(true).
		SetPartialFilterExpression(bson.M{"status": status})
}

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func collections() map[string]collectionDef {
	return map[string]collectionDef{
		slotsrepo.CollectionName: {
			Indexes:   SlotsIndexes,
			Validator: validators.SlotValidator,
		},
		reservationsrepo.CollectionName: {
			Indexes:   ReservationsIndexes,
			Validator: validators.ReservationValidator,
		},
		poolsrepo.PoolsCollectionName: {
			Validator: validators.PoolValidator,
		},
		poolsrepo.MembersCollectionName: {
			Indexes:   PoolMembersIndexes,
			Validator: validators.PoolMemberValidator,
		},
		bookingsrepo.CollectionName: {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
	}
}

func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for name, def := range collections() {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

// EnsureConstraints creates only the unique indexes booking correctness
// depends on. Services call it at startup so they never run without them.
func EnsureConstraints(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	if err := ensureIndexes(ctx, db, reservationsrepo.CollectionName, ReservationsIndexes[:1], log); err != nil {
		return fmt.Errorf("failed to ensure reservation constraint: %w", err)
	}
	if err := ensureIndexes(ctx, db, bookingsrepo.CollectionName, BookingsIndexes[:1], log); err != nil {
		return fmt.Errorf("failed to ensure booking constraint: %w", err)
	}
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
