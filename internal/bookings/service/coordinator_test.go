package service

import (
	"context"
	"errors"
	"fmt"
	"receptionist/internal/bookings/repository"
	"receptionist/internal/pools/selector"
	reservations "receptionist/internal/reservations/service"
	slotservice "receptionist/internal/slots/service"
	slotvalidator "receptionist/internal/slots/validator"
	"receptionist/internal/storage"
	"receptionist/internal/storage/memory"
	"receptionist/pkg/clock"
	"receptionist/pkg/config"
	apperrors "receptionist/pkg/errors"
	"receptionist/pkg/logger"
	"receptionist/pkg/model"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// ────────────────────────────────────────────────
// Fakes
// ────────────────────────────────────────────────

type recordingPublisher struct {
	mu        sync.Mutex
	published []*model.Booking
	err       error
}

func (p *recordingPublisher) BookingConfirmed(_ context.Context, booking *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, booking)
	return p.err
}

type failingBookingRepository struct {
	repository.BookingRepository
	createErr error
}

func (r *failingBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return r.createErr
}

// failingSlots fails writes that move a slot to one target status and
// delegates the rest.
type failingSlots struct {
	reservations.SlotRegistry
	failOn model.SlotStatus
}

func (s *failingSlots) SetStatus(ctx context.Context, id string, status model.SlotStatus) error {
	if status == s.failOn {
		return apperrors.Internal("slot store unavailable", errors.New("write failed"))
	}
	return s.SlotRegistry.SetStatus(ctx, id, status)
}

func (s *failingSlots) TransitionStatus(ctx context.Context, id string, from, to model.SlotStatus) (bool, error) {
	if to == s.failOn {
		return false, apperrors.Internal("slot store unavailable", errors.New("write failed"))
	}
	return s.SlotRegistry.TransitionStatus(ctx, id, from, to)
}

// stallingBookingRepository runs beforeCreate ahead of the insert, standing
// in for a flow that stalls past its reservation TTL.
type stallingBookingRepository struct {
	repository.BookingRepository
	beforeCreate func()
}

func (r *stallingBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	r.beforeCreate()
	return r.BookingRepository.Create(ctx, booking)
}

// ────────────────────────────────────────────────
// Fixture
// ────────────────────────────────────────────────

type fixture struct {
	store     *memory.Store
	repos     *storage.Repositories
	slots     slotservice.SlotService
	manager   reservations.ReservationManager
	publisher *recordingPublisher
	clock     *clock.Fixed
	cfg       *config.Config
}

func newFixture() *fixture {
	cfg := &config.Config{
		Log:            logger.Discard(),
		ReservationTTL: 5 * time.Minute,
		SweepBatchSize: 500,
	}
	store := memory.NewStore()
	repos := storage.NewMemory(store)
	clk := clock.NewFixed(baseTime)
	slots := slotservice.NewSlotService(repos.Slots, slotvalidator.NewSlotValidator(), clk, cfg)

	return &fixture{
		store:     store,
		repos:     repos,
		slots:     slots,
		manager:   reservations.NewReservationManager(repos.Reservations, slots, clk, cfg),
		publisher: &recordingPublisher{},
		clock:     clk,
		cfg:       cfg,
	}
}

func (f *fixture) coordinator() BookingCoordinator {
	return f.coordinatorWith(f.slots, f.repos.Bookings)
}

func (f *fixture) coordinatorWith(slots reservations.SlotRegistry, bookings repository.BookingRepository) BookingCoordinator {
	return NewBookingCoordinator(
		f.repos.Pools,
		slots,
		reservations.NewReservationManager(f.repos.Reservations, slots, f.clock, f.cfg),
		selector.NewRoundRobinSelector(f.repos.Pools, f.clock, f.cfg),
		bookings,
		f.publisher,
		f.clock,
		f.cfg,
	)
}

func (f *fixture) pool(t *testing.T, users ...string) *model.Pool {
	t.Helper()
	pool, err := f.repos.SeedPool(context.Background(), "support", users, f.clock.Now())
	require.NoError(t, err)
	return pool
}

func (f *fixture) slot(t *testing.T, poolID string, offset time.Duration) *model.Slot {
	t.Helper()
	start := baseTime.Add(24 * time.Hour).Add(offset)
	slot, err := f.slots.CreateSlot(context.Background(), poolID, &model.SlotCreate{
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
	})
	require.NoError(t, err)
	return slot
}

func (f *fixture) slotStatus(t *testing.T, id string) model.SlotStatus {
	t.Helper()
	slot, err := f.slots.GetSlot(context.Background(), id)
	require.NoError(t, err)
	return slot.Status
}

// assertRolledBack checks the state every failed booking must leave behind.
func (f *fixture) assertRolledBack(t *testing.T, slotID string) {
	t.Helper()
	assert.Equal(t, model.SlotOpen, f.slotStatus(t, slotID))
	for _, res := range f.store.ReservationsForSlot(slotID) {
		assert.NotEqual(t, model.ReservationActive, res.Status, "reservation %s left active", res.ID)
	}
	for _, b := range f.store.BookingsForSlot(slotID) {
		assert.Equal(t, model.BookingCancelled, b.Status, "booking %s left confirmed", b.ID)
	}
}

// ────────────────────────────────────────────────
// Success paths
// ────────────────────────────────────────────────

func TestBookSlot_Success(t *testing.T) {
	f := newFixture()
	pool := f.pool(t, "alice", "bob")
	slot := f.slot(t, pool.ID, 0)

	booking, err := f.coordinator().BookSlot(context.Background(), pool.ID, slot.ID, "caller-1", "first visit")
	require.NoError(t, err)

	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, model.BookingConfirmed, booking.Status)
	assert.Equal(t, "alice", booking.AssigneeUserID)
	assert.Equal(t, "caller-1", booking.RequesterKey)
	assert.Equal(t, "first visit", booking.Note)
	assert.Equal(t, model.AlgorithmRoundRobin, booking.AssignmentAlgorithm)
	assert.True(t, booking.RotationPersisted)
	assert.Equal(t, baseTime, booking.CreatedAt)

	assert.Equal(t, model.SlotBooked, f.slotStatus(t, slot.ID))

	reservationsForSlot := f.store.ReservationsForSlot(slot.ID)
	require.Len(t, reservationsForSlot, 1)
	assert.Equal(t, model.ReservationConsumed, reservationsForSlot[0].Status)

	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, booking.ID, f.publisher.published[0].ID)

	stored, err := f.coordinator().GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.AssigneeMemberID, stored.AssigneeMemberID)
}

func TestBookSlot_RotatesAcrossSlots(t *testing.T) {
	f := newFixture()
	pool := f.pool(t, "alice", "bob")
	c := f.coordinator()

	var assignees []string
	for i := range 3 {
		slot := f.slot(t, pool.ID, time.Duration(i)*time.Hour)
		booking, err := c.BookSlot(context.Background(), pool.ID, slot.ID, fmt.Sprintf("caller-%d", i), "")
		require.NoError(t, err)
		assignees = append(assignees, booking.AssigneeUserID)
	}

	assert.Equal(t, []string{"alice", "bob", "alice"}, assignees)
}

func TestBookSlot_PublishFailureKeepsBooking(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("broker unreachable")
	pool := f.pool(t, "alice")
	slot := f.slot(t, pool.ID, 0)

	booking, err := f.coordinator().BookSlot(context.Background(), pool.ID, slot.ID, "caller-1", "")
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, booking.Status)
	assert.Equal(t, model.SlotBooked, f.slotStatus(t, slot.ID))
}

// ────────────────────────────────────────────────
// Contention
// ────────────────────────────────────────────────

func TestBookSlot_TwoRequestersOneSlot(t *testing.T) {
	f := newFixture()
	pool := f.pool(t, "alice", "bob")
	slot := f.slot(t, pool.ID, 0)
	c := f.coordinator()

	results := make([]error, 2)
	var wg sync.WaitGroup
	for i, requester := range []string{"caller-1", "caller-2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = c.BookSlot(context.Background(), pool.ID, slot.ID, requester, "")
		}()
	}
	wg.Wait()

	succeeded, taken := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case apperrors.HasCode(err, apperrors.CodeSlotTaken):
			taken++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, taken)
}

func TestBookSlot_ConcurrentCallersYieldOneBooking(t *testing.T) {
	const callers = 40

	f := newFixture()
	pool := f.pool(t, "alice", "bob", "carol")
	slot := f.slot(t, pool.ID, 0)
	c := f.coordinator()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		taken   int
	)
	start := make(chan struct{})
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := c.BookSlot(context.Background(), pool.ID, slot.ID, fmt.Sprintf("caller-%d", i), "")

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
			} else if apperrors.HasCode(err, apperrors.CodeSlotTaken) {
				taken++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, callers-1, taken)
	assert.Len(t, f.store.BookingsForSlot(slot.ID), 1)
	assert.Equal(t, model.SlotBooked, f.slotStatus(t, slot.ID))
}

func TestBookSlot_BookedSlotIsTaken(t *testing.T) {
	f := newFixture()
	pool := f.pool(t, "alice")
	slot := f.slot(t, pool.ID, 0)
	c := f.coordinator()

	_, err := c.BookSlot(context.Background(), pool.ID, slot.ID, "caller-1", "")
	require.NoError(t, err)

	_, err = c.BookSlot(context.Background(), pool.ID, slot.ID, "caller-2", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSlotTaken))
	assert.Len(t, f.store.BookingsForSlot(slot.ID), 1)
}

// ────────────────────────────────────────────────
// Lookup failures
// ────────────────────────────────────────────────

func TestBookSlot_PoolNotFound(t *testing.T) {
	f := newFixture()
	pool := f.pool(t, "alice")
	slot := f.slot(t, pool.ID, 0)

	_, err := f.coordinator().BookSlot(context.Background(), "missing", slot.ID, "caller-1", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodePoolNotFound))

	inactive := &model.Pool{Name: "closed", Active: false}
	require.NoError(t, f.repos.Pools.Create(context.Background(), inactive))

	_, err = f.coordinator().BookSlot(context.Background(), inactive.ID, slot.ID, "caller-1", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodePoolNotFound))

	assert.Equal(t, model.SlotOpen, f.slotStatus(t, slot.ID))
}

func TestBookSlot_SlotNotFound(t *testing.T) {
	f := newFixture()
	pool := f.pool(t, "alice")
	other := f.pool(t, "bob")
	c := f.coordinator()

	t.Run("missing slot", func(t *testing.T) {
		_, err := c.BookSlot(context.Background(), pool.ID, "missing", "caller-1", "")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeSlotNotFound))
	})

	t.Run("slot of another pool", func(t *testing.T) {
		slot := f.slot(t, other.ID, 0)
		_, err := c.BookSlot(context.Background(), pool.ID, slot.ID, "caller-1", "")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeSlotNotFound))
		assert.Equal(t, model.SlotOpen, f.slotStatus(t, slot.ID))
	})

	t.Run("cancelled slot", func(t *testing.T) {
		slot := f.slot(t, pool.ID, time.Hour)
		require.NoError(t, f.slots.SetStatus(context.Background(), slot.ID, model.SlotCancelled))

		_, err := c.BookSlot(context.Background(), pool.ID, slot.ID, "caller-1", "")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeSlotNotFound))
	})
}

// ────────────────────────────────────────────────
// Compensation
// ────────────────────────────────────────────────

func TestBookSlot_NoMemberReleasesReservation(t *testing.T) {
	f := newFixture()
	pool := f.pool(t)
	slot := f.slot(t, pool.ID, 0)

	_, err := f.coordinator().BookSlot(context.Background(), pool.ID, slot.ID, "caller-1", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoMemberAvailable))

	f.assertRolledBack(t, slot.ID)
	assert.Empty(t, f.store.BookingsForSlot(slot.ID))
	assert.Empty(t, f.publisher.published)
}

func TestBookSlot_BookingInsertFailureRollsBack(t *testing.T) {
	f := newFixture()
	pool := f.pool(t, "alice")
	slot := f.slot(t, pool.ID, 0)
	c := f.coordinatorWith(f.slots, &failingBookingRepository{
		BookingRepository: f.repos.Bookings,
		createErr:         errors.New("insert failed"),
	})

	_, err := c.BookSlot(context.Background(), pool.ID, slot.ID, "caller-1", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAssignmentFailed))

	f.assertRolledBack(t, slot.ID)
	assert.Empty(t, f.publisher.published)
}

func TestBookSlot_SlotUpdateFailureCancelsBooking(t *testing.T) {
	f := newFixture()
	pool := f.pool(t, "alice")
	slot := f.slot(t, pool.ID, 0)
	c := f.coordinatorWith(&failingSlots{SlotRegistry: f.slots, failOn: model.SlotBooked}, f.repos.Bookings)

	_, err := c.BookSlot(context.Background(), pool.ID, slot.ID, "caller-1", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAssignmentFailed))

	f.assertRolledBack(t, slot.ID)
	bookings := f.store.BookingsForSlot(slot.ID)
	require.Len(t, bookings, 1)
	assert.Equal(t, model.BookingCancelled, bookings[0].Status)

	booking, err := f.coordinator().BookSlot(context.Background(), pool.ID, slot.ID, "caller-2", "")
	require.NoError(t, err, "slot is bookable again after rollback")
	assert.Equal(t, model.BookingConfirmed, booking.Status)
}

func TestBookSlot_ExpiredHoldDoesNotOverwriteNewReservation(t *testing.T) {
	f := newFixture()
	pool := f.pool(t, "alice")
	slot := f.slot(t, pool.ID, 0)

	var rival *model.Reservation
	stalling := &stallingBookingRepository{BookingRepository: f.repos.Bookings, beforeCreate: func() {
		f.clock.Advance(f.cfg.ReservationTTL + time.Minute)
		expired, err := f.manager.ExpireStale(context.Background(), f.clock.Now())
		require.NoError(t, err)
		require.Equal(t, 1, expired)

		rival, err = f.manager.TryReserve(context.Background(), slot.ID, "caller-2", 0)
		require.NoError(t, err)
	}}

	_, err := f.coordinatorWith(f.slots, stalling).BookSlot(context.Background(), pool.ID, slot.ID, "caller-1", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAssignmentFailed))

	assert.Equal(t, model.SlotReserved, f.slotStatus(t, slot.ID), "rival hold kept")
	for _, res := range f.store.ReservationsForSlot(slot.ID) {
		if res.ID == rival.ID {
			assert.Equal(t, model.ReservationActive, res.Status)
		} else {
			assert.Equal(t, model.ReservationExpired, res.Status)
		}
	}
	bookings := f.store.BookingsForSlot(slot.ID)
	require.Len(t, bookings, 1)
	assert.Equal(t, model.BookingCancelled, bookings[0].Status)
}

func TestGetBooking_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.coordinator().GetBooking(context.Background(), "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBookingNotFound))
}
