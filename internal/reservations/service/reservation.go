package service

import (
	"context"
	"errors"
	reservationserrors "receptionist/internal/reservations/errors"
	"receptionist/internal/reservations/repository"
	"receptionist/pkg/clock"
	"receptionist/pkg/config"
	apperrors "receptionist/pkg/errors"
	"receptionist/pkg/model"
	"time"

	"github.com/google/uuid"
)

// SlotRegistry is the subset of the slot service the reservation path needs.
type SlotRegistry interface {
	GetSlot(ctx context.Context, id string) (*model.Slot, error)
	SetStatus(ctx context.Context, id string, status model.SlotStatus) error
	TransitionStatus(ctx context.Context, id string, from, to model.SlotStatus) (bool, error)
}

type ReservationManager interface {
	// TryReserve claims slotID for requesterKey until ttl elapses. It never
	// waits: a competing holder yields SLOT_TAKEN immediately.
	TryReserve(ctx context.Context, slotID, requesterKey string, ttl time.Duration) (*model.Reservation, error)
	// Finalize moves the slot held by res from reserved to booked. It reports
	// false when res is no longer active or the slot is no longer reserved.
	Finalize(ctx context.Context, res *model.Reservation) (bool, error)
	// Consume reports false when the reservation was no longer active.
	Consume(ctx context.Context, res *model.Reservation) (bool, error)
	Release(ctx context.Context, res *model.Reservation) error
	// ExpireStale expires active reservations past their deadline and reopens
	// their slots. It returns how many reservations it expired.
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

type reservationManager struct {
	repo  repository.ReservationRepository
	slots SlotRegistry
	clock clock.Clock
	cfg   *config.Config
}

func NewReservationManager(
	repo repository.ReservationRepository,
	slots SlotRegistry,
	clk clock.Clock,
	cfg *config.Config,
) ReservationManager {
	return &reservationManager{
		repo:  repo,
		slots: slots,
		clock: clk,
		cfg:   cfg,
	}
}

func (m *reservationManager) TryReserve(ctx context.Context, slotID, requesterKey string, ttl time.Duration) (*model.Reservation, error) {
	if requesterKey == "" {
		return nil, apperrors.InvalidInput("requester key is required")
	}
	if ttl <= 0 {
		ttl = m.cfg.ReservationTTL
	}

	slot, err := m.slots.GetSlot(ctx, slotID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeSlotNotFound) {
			return nil, apperrors.SlotNotOpen(slotID)
		}
		return nil, err
	}
	switch slot.Status {
	case model.SlotOpen:
	case model.SlotReserved, model.SlotBooked:
		// Held by another requester: the same outcome as losing the insert.
		return nil, apperrors.SlotTaken(slotID)
	default:
		return nil, apperrors.SlotNotOpen(slotID)
	}

	now := m.clock.Now()
	res := &model.Reservation{
		ID:           uuid.NewString(),
		SlotID:       slotID,
		RequesterKey: requesterKey,
		Status:       model.ReservationActive,
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := m.repo.Create(ctx, res); err != nil {
		if errors.Is(err, reservationserrors.ErrActiveExists) {
			m.cfg.Log.Info("Slot already reserved",
				"slot_id", slotID,
				"requester_key", requesterKey,
			)
			return nil, apperrors.SlotTaken(slotID)
		}
		m.cfg.Log.Error("Failed to create reservation",
			"slot_id", slotID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create reservation", err)
	}

	moved, err := m.slots.TransitionStatus(ctx, slotID, model.SlotOpen, model.SlotReserved)
	if err != nil {
		// The write may still have been applied. The reservation stays active
		// so the expiry sweep can reopen the slot once its TTL passes.
		m.cfg.Log.Error("Failed to mark slot reserved",
			"slot_id", slotID,
			"reservation_id", res.ID,
			"expires_at", res.ExpiresAt,
			"error", err,
		)
		return nil, err
	}
	if !moved {
		m.abandon(ctx, res)
		m.cfg.Log.Info("Slot left open state during reservation",
			"slot_id", slotID,
			"reservation_id", res.ID,
		)
		return nil, apperrors.SlotTaken(slotID)
	}

	m.cfg.Log.Info("Slot reserved",
		"slot_id", slotID,
		"reservation_id", res.ID,
		"expires_at", res.ExpiresAt,
	)
	return res, nil
}

// abandon marks a reservation released without touching its slot. It is used
// when another request moved the slot out of open first, so the slot is not
// ours to reopen.
func (m *reservationManager) abandon(ctx context.Context, res *model.Reservation) {
	if _, err := m.repo.CompareAndSetStatus(ctx, res.ID, model.ReservationActive, model.ReservationReleased, m.clock.Now()); err != nil {
		m.cfg.Log.Error("Failed to abandon reservation",
			"reservation_id", res.ID,
			"slot_id", res.SlotID,
			"error", err,
		)
		return
	}
	res.Status = model.ReservationReleased
}

func (m *reservationManager) Finalize(ctx context.Context, res *model.Reservation) (bool, error) {
	var moved bool
	err := m.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		current, err := m.repo.FindByID(txCtx, res.ID)
		if err != nil {
			if errors.Is(err, reservationserrors.ErrNotFound) {
				moved = false
				return nil
			}
			return apperrors.Internal("Failed to load reservation", err)
		}
		if current.Status != model.ReservationActive {
			moved = false
			return nil
		}

		moved, err = m.slots.TransitionStatus(txCtx, res.SlotID, model.SlotReserved, model.SlotBooked)
		return err
	})
	if err != nil {
		return false, err
	}
	return moved, nil
}

func (m *reservationManager) Consume(ctx context.Context, res *model.Reservation) (bool, error) {
	ok, err := m.repo.CompareAndSetStatus(ctx, res.ID, model.ReservationActive, model.ReservationConsumed, m.clock.Now())
	if err != nil {
		return false, apperrors.Internal("Failed to consume reservation", err)
	}
	if ok {
		res.Status = model.ReservationConsumed
	}
	return ok, nil
}

// Release frees the reservation and reopens its slot. The slot is reopened
// only when this call moved the reservation out of active; otherwise another
// actor already settled it and may have handed the slot to someone else.
// When the slot cannot be reopened the reservation is left active, so the
// expiry sweep recovers the slot after the TTL.
func (m *reservationManager) Release(ctx context.Context, res *model.Reservation) error {
	var released bool
	err := m.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		ok, err := m.repo.CompareAndSetStatus(txCtx, res.ID, model.ReservationActive, model.ReservationReleased, m.clock.Now())
		if err != nil {
			return apperrors.Internal("Failed to release reservation", err)
		}
		if !ok {
			return nil
		}

		if err := m.slots.SetStatus(txCtx, res.SlotID, model.SlotOpen); err != nil {
			m.restore(txCtx, res)
			return err
		}
		released = true
		return nil
	})
	if err != nil {
		m.cfg.Log.Error("Failed to release reservation",
			"reservation_id", res.ID,
			"slot_id", res.SlotID,
			"error", err,
		)
		return err
	}
	if !released {
		m.cfg.Log.Warn("Reservation no longer active, slot left as is",
			"reservation_id", res.ID,
			"slot_id", res.SlotID,
		)
		return nil
	}
	res.Status = model.ReservationReleased

	m.cfg.Log.Info("Reservation released",
		"reservation_id", res.ID,
		"slot_id", res.SlotID,
	)
	return nil
}

// restore puts a released reservation back to active after its slot could not
// be reopened. Against Mongo the aborted transaction already undoes the
// release; the memory store has no rollback and relies on this write.
func (m *reservationManager) restore(ctx context.Context, res *model.Reservation) {
	if _, err := m.repo.CompareAndSetStatus(ctx, res.ID, model.ReservationReleased, model.ReservationActive, m.clock.Now()); err != nil {
		m.cfg.Log.Warn("Failed to restore reservation",
			"reservation_id", res.ID,
			"slot_id", res.SlotID,
			"error", err,
		)
	}
}

func (m *reservationManager) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	stale, err := m.repo.FindExpired(ctx, now, m.cfg.SweepBatchSize)
	if err != nil {
		return 0, apperrors.Internal("Failed to load expired reservations", err)
	}

	expired := 0
	for _, res := range stale {
		if err := ctx.Err(); err != nil {
			return expired, err
		}

		var moved bool
		err := m.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			ok, err := m.repo.CompareAndSetStatus(txCtx, res.ID, model.ReservationActive, model.ReservationExpired, now)
			if err != nil || !ok {
				moved = false
				return err
			}
			moved = true

			// Only a slot still held by this reservation goes back to open;
			// a booked slot stays booked.
			_, err = m.slots.TransitionStatus(txCtx, res.SlotID, model.SlotReserved, model.SlotOpen)
			return err
		})
		if err != nil {
			m.cfg.Log.Error("Failed to expire reservation",
				"reservation_id", res.ID,
				"slot_id", res.SlotID,
				"error", err,
			)
			continue
		}
		if moved {
			expired++
			m.cfg.Log.Info("Reservation expired",
				"reservation_id", res.ID,
				"slot_id", res.SlotID,
				"expires_at", res.ExpiresAt,
			)
		}
	}

	return expired, nil
}
