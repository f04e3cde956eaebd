// Package storage selects the repository implementations for the configured
// storage driver.
package storage

import (
	"context"
	bookingsrepo "receptionist/internal/bookings/repository"
	mongomigration "receptionist/internal/migrations/mongo"
	poolsrepo "receptionist/internal/pools/repository"
	reservationsrepo "receptionist/internal/reservations/repository"
	slotsrepo "receptionist/internal/slots/repository"
	"receptionist/internal/storage/memory"
	"receptionist/pkg/config"
	"receptionist/pkg/model"
	"time"
)

type Repositories struct {
	Slots        slotsrepo.SlotRepository
	Reservations reservationsrepo.ReservationRepository
	Pools        poolsrepo.PoolRepository
	Bookings     bookingsrepo.BookingRepository
}

// Open connects to the configured backend. With the mongo driver it also
// ensures the unique indexes reservations and bookings rely on.
func Open(ctx context.Context, cfg *config.Config) (*Repositories, error) {
	if !cfg.UsesMongo() {
		cfg.Log.Warn("Using in-memory storage, data is lost on restart")
		return NewMemory(memory.NewStore()), nil
	}

	cfg.SetMongo()
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	if err := mongomigration.EnsureConstraints(ctx, db, cfg.Log); err != nil {
		return nil, err
	}

	return NewMongo(cfg), nil
}

// NewMongo builds the Mongo repositories over an already connected client.
func NewMongo(cfg *config.Config) *Repositories {
	return &Repositories{
		Slots:        slotsrepo.NewMongoSlotRepository(cfg),
		Reservations: reservationsrepo.NewMongoReservationRepository(cfg),
		Pools:        poolsrepo.NewMongoPoolRepository(cfg),
		Bookings:     bookingsrepo.NewMongoBookingRepository(cfg),
	}
}

func NewMemory(store *memory.Store) *Repositories {
	return &Repositories{
		Slots:        store.Slots(),
		Reservations: store.Reservations(),
		Pools:        store.Pools(),
		Bookings:     store.Bookings(),
	}
}

// SeedPool creates an active pool with one active member per user id.
func (r *Repositories) SeedPool(ctx context.Context, name string, userIDs []string, now time.Time) (*model.Pool, error) {
	pool := &model.Pool{Name: name, Active: true, CreatedAt: now}
	if err := r.Pools.Create(ctx, pool); err != nil {
		return nil, err
	}
	for _, userID := range userIDs {
		member := &model.PoolMember{PoolID: pool.ID, UserID: userID, Active: true, CreatedAt: now}
		if err := r.Pools.AddMember(ctx, member); err != nil {
			return nil, err
		}
	}
	return pool, nil
}
