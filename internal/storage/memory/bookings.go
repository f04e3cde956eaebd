package memory

import (
	"context"
	"fmt"
	bookingserrors "receptionist/internal/bookings/errors"
	"receptionist/internal/bookings/repository"
	"receptionist/pkg/model"
)

type bookingRepository struct {
	*Store
}

var _ repository.BookingRepository = (*bookingRepository)(nil)

func (s *Store) Bookings() repository.BookingRepository {
	return &bookingRepository{Store: s}
}

// Create rejects a second confirmed booking for the same slot, mirroring the
// partial unique index on bookings.
func (r *bookingRepository) Create(_ context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.bookings {
		if existing.SlotID == booking.SlotID && existing.Status == model.BookingConfirmed {
			return fmt.Errorf("%w: %s", bookingserrors.ErrSlotAlreadyBooked, booking.SlotID)
		}
	}

	booking.ID = newID()
	r.bookings[booking.ID] = *booking
	return nil
}

func (r *bookingRepository) FindByID(_ context.Context, id string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, id)
	}
	return &booking, nil
}

func (r *bookingRepository) UpdateStatus(_ context.Context, id string, status model.BookingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, id)
	}
	booking.Status = status
	r.bookings[id] = booking
	return nil
}

// BookingsForSlot returns every booking recorded against slotID.
func (s *Store) BookingsForSlot(slotID string) []model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found []model.Booking
	for _, b := range s.bookings {
		if b.SlotID == slotID {
			found = append(found, b)
		}
	}
	return found
}

// ReservationsForSlot returns every reservation recorded against slotID.
func (s *Store) ReservationsForSlot(slotID string) []model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found []model.Reservation
	for _, res := range s.reservations {
		if res.SlotID == slotID {
			found = append(found, res)
		}
	}
	return found
}
