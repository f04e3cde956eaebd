package memory

import (
	"context"
	bookingserrors "receptionist/internal/bookings/errors"
	poolserrors "receptionist/internal/pools/errors"
	reservationserrors "receptionist/internal/reservations/errors"
	slotserrors "receptionist/internal/slots/errors"
	"receptionist/pkg/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestReservations_OneActivePerSlot(t *testing.T) {
	repo := NewStore().Reservations()
	ctx := context.Background()

	first := &model.Reservation{ID: "r1", SlotID: "s1", Status: model.ReservationActive, ExpiresAt: now}
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, &model.Reservation{ID: "r2", SlotID: "s1", Status: model.ReservationActive})
	assert.ErrorIs(t, err, reservationserrors.ErrActiveExists)

	ok, err := repo.CompareAndSetStatus(ctx, "r1", model.ReservationActive, model.ReservationReleased, now)
	require.NoError(t, err)
	require.True(t, ok)

	assert.NoError(t, repo.Create(ctx, &model.Reservation{ID: "r3", SlotID: "s1", Status: model.ReservationActive}),
		"a settled reservation frees the slot")
}

func TestReservations_FindExpiredOrderAndLimit(t *testing.T) {
	repo := NewStore().Reservations()
	ctx := context.Background()

	for i, offset := range []time.Duration{-time.Minute, -3 * time.Minute, -2 * time.Minute, time.Minute} {
		require.NoError(t, repo.Create(ctx, &model.Reservation{
			ID:        string(rune('a' + i)),
			SlotID:    "slot-" + string(rune('a'+i)),
			Status:    model.ReservationActive,
			ExpiresAt: now.Add(offset),
		}))
	}

	expired, err := repo.FindExpired(ctx, now, 2)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	assert.Equal(t, "b", expired[0].ID)
	assert.Equal(t, "c", expired[1].ID)
}

func TestSlots_CompareAndSetAndDelete(t *testing.T) {
	repo := NewStore().Slots()
	ctx := context.Background()

	slot := &model.Slot{PoolID: "p1", Status: model.SlotOpen, StartTime: now, EndTime: now.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, slot))

	ok, err := repo.CompareAndSetStatus(ctx, slot.ID, model.SlotOpen, model.SlotReserved, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CompareAndSetStatus(ctx, "missing", model.SlotOpen, model.SlotReserved, now)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, repo.DeleteIfOpen(ctx, slot.ID), slotserrors.ErrNotOpen)
	assert.ErrorIs(t, repo.DeleteIfOpen(ctx, "missing"), slotserrors.ErrNotFound)

	stored, err := repo.FindByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.ReservedCount)
}

func TestSlots_ReturnedCopiesAreIsolated(t *testing.T) {
	repo := NewStore().Slots()
	ctx := context.Background()

	slot := &model.Slot{PoolID: "p1", Status: model.SlotOpen, Meta: map[string]string{"room": "1"}}
	require.NoError(t, repo.Create(ctx, slot))

	got, err := repo.FindByID(ctx, slot.ID)
	require.NoError(t, err)
	got.Meta["room"] = "2"
	got.Status = model.SlotBooked

	again, err := repo.FindByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", again.Meta["room"])
	assert.Equal(t, model.SlotOpen, again.Status)
}

func TestPools_JoinOrderAndPointer(t *testing.T) {
	repo := NewStore().Pools()
	ctx := context.Background()

	pool := &model.Pool{Name: "support", Active: true, CreatedAt: now}
	require.NoError(t, repo.Create(ctx, pool))
	assert.Equal(t, now, pool.UpdatedAt)

	var members []*model.PoolMember
	for _, user := range []string{"alice", "bob"} {
		m := &model.PoolMember{PoolID: pool.ID, UserID: user, Active: true}
		require.NoError(t, repo.AddMember(ctx, m))
		members = append(members, m)
	}
	assert.Equal(t, int64(1), members[0].JoinOrder)
	assert.Equal(t, int64(2), members[1].JoinOrder)

	ok, err := repo.CompareAndSetLastAssigned(ctx, pool.ID, nil, members[0].ID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CompareAndSetLastAssigned(ctx, pool.ID, nil, members[1].ID, now)
	require.NoError(t, err)
	assert.False(t, ok, "nil expected only matches an unset pointer")

	ok, err = repo.CompareAndSetLastAssigned(ctx, pool.ID, &members[0].ID, members[1].ID, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := repo.FindByID(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), stored.UpdatedAt, "pointer writes stamp the caller's time")

	require.NoError(t, repo.SetMemberActive(ctx, members[0].ID, false))
	active, err := repo.ListActiveMembers(ctx, pool.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "bob", active[0].UserID)

	assert.ErrorIs(t, repo.AddMember(ctx, &model.PoolMember{PoolID: "missing"}), poolserrors.ErrNotFound)
	assert.ErrorIs(t, repo.SetMemberActive(ctx, "missing", true), poolserrors.ErrMemberNotFound)
}

func TestBookings_OneConfirmedPerSlot(t *testing.T) {
	repo := NewStore().Bookings()
	ctx := context.Background()

	first := &model.Booking{SlotID: "s1", Status: model.BookingConfirmed}
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, &model.Booking{SlotID: "s1", Status: model.BookingConfirmed})
	assert.ErrorIs(t, err, bookingserrors.ErrSlotAlreadyBooked)

	require.NoError(t, repo.UpdateStatus(ctx, first.ID, model.BookingCancelled))
	assert.NoError(t, repo.Create(ctx, &model.Booking{SlotID: "s1", Status: model.BookingConfirmed}))

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, bookingserrors.ErrNotFound)
}
