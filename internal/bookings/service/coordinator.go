package service

import (
	"context"
	"errors"
	bookingserrors "receptionist/internal/bookings/errors"
	"receptionist/internal/bookings/events"
	"receptionist/internal/bookings/repository"
	poolserrors "receptionist/internal/pools/errors"
	"receptionist/internal/pools/selector"
	reservations "receptionist/internal/reservations/service"
	"receptionist/pkg/clock"
	"receptionist/pkg/config"
	apperrors "receptionist/pkg/errors"
	"receptionist/pkg/model"
)

var errSlotHoldLost = errors.New("slot no longer reserved")

const (
	compensationRelease       = "release_reservation"
	compensationCancelBooking = "cancel_booking"
)

// PoolDirectory resolves the pool a booking targets.
type PoolDirectory interface {
	FindByID(ctx context.Context, id string) (*model.Pool, error)
}

// SlotRegistry is the slot surface the coordinator reads through.
type SlotRegistry interface {
	GetSlot(ctx context.Context, id string) (*model.Slot, error)
}

type BookingCoordinator interface {
	// BookSlot reserves slotID for requesterKey, assigns the next pool member
	// and records a confirmed booking. Any failure after the reservation is
	// compensated before returning.
	BookSlot(ctx context.Context, poolID, slotID, requesterKey, note string) (*model.Booking, error)
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
}

type bookingCoordinator struct {
	pools        PoolDirectory
	slots        SlotRegistry
	reservations reservations.ReservationManager
	selector     selector.AssignmentSelector
	repo         repository.BookingRepository
	events       events.Publisher
	clock        clock.Clock
	cfg          *config.Config
}

func NewBookingCoordinator(
	pools PoolDirectory,
	slots SlotRegistry,
	reservationManager reservations.ReservationManager,
	assignmentSelector selector.AssignmentSelector,
	repo repository.BookingRepository,
	publisher events.Publisher,
	clk clock.Clock,
	cfg *config.Config,
) BookingCoordinator {
	if publisher == nil {
		publisher = events.NewNopPublisher()
	}
	return &bookingCoordinator{
		pools:        pools,
		slots:        slots,
		reservations: reservationManager,
		selector:     assignmentSelector,
		repo:         repo,
		events:       publisher,
		clock:        clk,
		cfg:          cfg,
	}
}

func (c *bookingCoordinator) BookSlot(ctx context.Context, poolID, slotID, requesterKey, note string) (*model.Booking, error) {
	log := c.cfg.Log.With("pool_id", poolID, "slot_id", slotID, "requester_key", requesterKey)

	pool, err := c.pools.FindByID(ctx, poolID)
	if err != nil {
		if errors.Is(err, poolserrors.ErrNotFound) || errors.Is(err, poolserrors.ErrInvalidID) {
			return nil, apperrors.PoolNotFound(poolID)
		}
		log.Error("Failed to load pool", "error", err)
		return nil, apperrors.Internal("Failed to load pool", err)
	}
	if !pool.Active {
		return nil, apperrors.PoolNotFound(poolID)
	}

	slot, err := c.slots.GetSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.PoolID != pool.ID {
		return nil, apperrors.SlotNotFound(slotID)
	}

	res, err := c.reservations.TryReserve(ctx, slotID, requesterKey, c.cfg.ReservationTTL)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeSlotNotOpen) {
			return nil, apperrors.SlotNotFound(slotID)
		}
		return nil, err
	}

	sg := newSaga(log)
	// Compensations must run even when the caller has gone away.
	defer sg.rollback(context.WithoutCancel(ctx))

	sg.push(compensationRelease, func(ctx context.Context) error {
		return c.reservations.Release(ctx, res)
	})

	selection, err := c.selector.SelectNext(ctx, pool)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNoMemberAvailable) {
			log.Warn("No member available, releasing reservation", "reservation_id", res.ID)
			return nil, err
		}
		log.Error("Member selection failed", "reservation_id", res.ID, "error", err)
		return nil, apperrors.AssignmentFailed(err)
	}

	booking := &model.Booking{
		PoolID:              pool.ID,
		SlotID:              slotID,
		AssigneeMemberID:    selection.Member.ID,
		AssigneeUserID:      selection.Member.UserID,
		RequesterKey:        requesterKey,
		Note:                note,
		AssignmentAlgorithm: model.AlgorithmRoundRobin,
		RotationPersisted:   selection.Persisted,
		Status:              model.BookingConfirmed,
		CreatedAt:           c.clock.Now(),
	}
	if err := c.repo.Create(ctx, booking); err != nil {
		log.Error("Failed to create booking", "reservation_id", res.ID, "error", err)
		return nil, apperrors.AssignmentFailed(err)
	}

	sg.push(compensationCancelBooking, func(ctx context.Context) error {
		if err := c.repo.UpdateStatus(ctx, booking.ID, model.BookingCancelled); err != nil {
			return err
		}
		booking.Status = model.BookingCancelled
		return nil
	})

	moved, err := c.reservations.Finalize(ctx, res)
	if err != nil {
		log.Error("Failed to mark slot booked", "booking_id", booking.ID, "error", err)
		return nil, apperrors.AssignmentFailed(err)
	}
	if !moved {
		// The reservation expired and the slot may already be held by someone else.
		log.Warn("Reservation lost before the slot was booked", "booking_id", booking.ID, "reservation_id", res.ID)
		return nil, apperrors.AssignmentFailed(errSlotHoldLost)
	}

	consumed, err := c.reservations.Consume(ctx, res)
	if err != nil {
		log.Error("Failed to consume reservation", "booking_id", booking.ID, "reservation_id", res.ID, "error", err)
		return nil, apperrors.AssignmentFailed(err)
	}
	if !consumed {
		log.Warn("Reservation was no longer active at consume, booking kept",
			"booking_id", booking.ID,
			"reservation_id", res.ID,
		)
	}

	sg.complete()

	log.Info("Slot booked",
		"booking_id", booking.ID,
		"assignee_member_id", booking.AssigneeMemberID,
		"rotation_persisted", booking.RotationPersisted,
	)

	if err := c.events.BookingConfirmed(context.WithoutCancel(ctx), booking); err != nil {
		log.Warn("Failed to publish booking event", "booking_id", booking.ID, "error", err)
	}

	return booking, nil
}

func (c *bookingCoordinator) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("booking ID is required")
	}

	booking, err := c.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) || errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.BookingNotFound(id)
		}
		c.cfg.Log.Error("Failed to retrieve booking", "booking_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}
