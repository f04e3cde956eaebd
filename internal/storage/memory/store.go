// Package memory provides in-process implementations of every repository.
// Each write is atomic under a single mutex, which gives the same
// conditional-write guarantees the Mongo repositories get from filtered
// updates and unique indexes.
package memory

import (
	"context"
	"sync"

	mongotx "receptionist/pkg/db/mongo"
	"receptionist/pkg/model"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.Mutex

	slots        map[string]model.Slot
	reservations map[string]model.Reservation
	pools        map[string]model.Pool
	members      map[string]model.PoolMember
	bookings     map[string]model.Booking
}

func NewStore() *Store {
	return &Store{
		slots:        make(map[string]model.Slot),
		reservations: make(map[string]model.Reservation),
		pools:        make(map[string]model.Pool),
		members:      make(map[string]model.PoolMember),
		bookings:     make(map[string]model.Booking),
	}
}

func newID() string {
	return uuid.NewString()
}

// ExecuteTransaction runs fn directly. Every individual write is already
// atomic and the callers only rely on per-write conditions.
func (s *Store) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
