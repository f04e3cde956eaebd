package memory

import (
	"context"
	"fmt"
	"maps"
	slotserrors "receptionist/internal/slots/errors"
	"receptionist/internal/slots/repository"
	"receptionist/pkg/model"
	"sort"
	"time"
)

type slotRepository struct {
	store *Store
}

var _ repository.SlotRepository = (*slotRepository)(nil)

func (s *Store) Slots() repository.SlotRepository {
	return &slotRepository{store: s}
}

func copySlot(slot model.Slot) *model.Slot {
	slot.Meta = maps.Clone(slot.Meta)
	return &slot
}

func (r *slotRepository) Create(_ context.Context, slot *model.Slot) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	slot.ID = newID()
	r.store.slots[slot.ID] = *copySlot(*slot)
	return nil
}

func (r *slotRepository) FindByID(_ context.Context, id string) (*model.Slot, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	slot, ok := r.store.slots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
	}
	return copySlot(slot), nil
}

func matches(slot model.Slot, poolID string, filter model.SlotFilter) bool {
	if slot.PoolID != poolID {
		return false
	}
	if filter.From != nil && slot.StartTime.Before(*filter.From) {
		return false
	}
	if filter.To != nil && !slot.StartTime.Before(*filter.To) {
		return false
	}
	if filter.Status != "" && slot.Status != filter.Status {
		return false
	}
	return true
}

func (r *slotRepository) FindByPool(_ context.Context, poolID string, filter model.SlotFilter, limit int, offset int64) ([]*model.Slot, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var found []*model.Slot
	for _, slot := range r.store.slots {
		if matches(slot, poolID, filter) {
			found = append(found, copySlot(slot))
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].StartTime.Equal(found[j].StartTime) {
			return found[i].ID < found[j].ID
		}
		return found[i].StartTime.Before(found[j].StartTime)
	})

	if offset >= int64(len(found)) {
		return []*model.Slot{}, nil
	}
	found = found[offset:]
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func (r *slotRepository) CountByPool(_ context.Context, poolID string, filter model.SlotFilter) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var count int64
	for _, slot := range r.store.slots {
		if matches(slot, poolID, filter) {
			count++
		}
	}
	return count, nil
}

func applyStatus(slot *model.Slot, status model.SlotStatus, now time.Time) {
	slot.Status = status
	slot.UpdatedAt = now
	switch status {
	case model.SlotReserved:
		slot.ReservedCount++
	case model.SlotBooked:
		slot.BookedCount++
	}
}

func (r *slotRepository) SetStatus(_ context.Context, id string, status model.SlotStatus, now time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	slot, ok := r.store.slots[id]
	if !ok {
		return fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
	}
	applyStatus(&slot, status, now)
	r.store.slots[id] = slot
	return nil
}

func (r *slotRepository) CompareAndSetStatus(_ context.Context, id string, from, to model.SlotStatus, now time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	slot, ok := r.store.slots[id]
	if !ok || slot.Status != from {
		return false, nil
	}
	applyStatus(&slot, to, now)
	r.store.slots[id] = slot
	return true, nil
}

func (r *slotRepository) DeleteIfOpen(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	slot, ok := r.store.slots[id]
	if !ok {
		return fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
	}
	if slot.Status != model.SlotOpen {
		return fmt.Errorf("%w: %s", slotserrors.ErrNotOpen, id)
	}
	delete(r.store.slots, id)
	return nil
}
