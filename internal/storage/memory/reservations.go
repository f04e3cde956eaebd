package memory

import (
	"context"
	"fmt"
	reservationserrors "receptionist/internal/reservations/errors"
	"receptionist/internal/reservations/repository"
	"receptionist/pkg/model"
	"sort"
	"time"
)

type reservationRepository struct {
	*Store
}

var _ repository.ReservationRepository = (*reservationRepository)(nil)

func (s *Store) Reservations() repository.ReservationRepository {
	return &reservationRepository{Store: s}
}

// Create enforces the (slot_id, status=active) uniqueness as a single
// check-and-insert under the store lock.
func (r *reservationRepository) Create(_ context.Context, res *model.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.reservations {
		if existing.SlotID == res.SlotID && existing.Status == model.ReservationActive {
			return fmt.Errorf("%w: %s", reservationserrors.ErrActiveExists, res.SlotID)
		}
	}

	if res.ID == "" {
		res.ID = newID()
	}
	r.reservations[res.ID] = *res
	return nil
}

func (r *reservationRepository) FindByID(_ context.Context, id string) (*model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrNotFound, id)
	}
	return &res, nil
}

func (r *reservationRepository) CompareAndSetStatus(_ context.Context, id string, from, to model.ReservationStatus, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[id]
	if !ok || res.Status != from {
		return false, nil
	}
	res.Status = to
	res.UpdatedAt = now
	r.reservations[id] = res
	return true, nil
}

func (r *reservationRepository) FindExpired(_ context.Context, now time.Time, limit int) ([]*model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []*model.Reservation
	for _, res := range r.reservations {
		if res.Status == model.ReservationActive && !res.ExpiresAt.After(now) {
			expired = append(expired, &res)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(expired[j].ExpiresAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}
