package service

import (
	"context"
	"errors"
	"fmt"
	slotserrors "receptionist/internal/slots/errors"
	"receptionist/internal/slots/repository"
	"receptionist/internal/slots/validator"
	"receptionist/pkg/clock"
	"receptionist/pkg/config"
	apperrors "receptionist/pkg/errors"
	"receptionist/pkg/model"
	"sync"
)

type SlotService interface {
	CreateSlot(ctx context.Context, poolID string, req *model.SlotCreate) (*model.Slot, error)
	GetSlot(ctx context.Context, id string) (*model.Slot, error)
	ListSlots(ctx context.Context, poolID string, filter model.SlotFilter, limit int, offset int64) ([]*model.Slot, int64, error)
	SetStatus(ctx context.Context, id string, status model.SlotStatus) error
	TransitionStatus(ctx context.Context, id string, from, to model.SlotStatus) (bool, error)
	DeleteSlot(ctx context.Context, id string) error
}

type slotService struct {
	repo      repository.SlotRepository
	validator *validator.SlotValidator
	clock     clock.Clock
	cfg       *config.Config
}

func NewSlotService(
	repo repository.SlotRepository,
	validator *validator.SlotValidator,
	clk clock.Clock,
	cfg *config.Config,
) SlotService {
	return &slotService{
		repo:      repo,
		validator: validator,
		clock:     clk,
		cfg:       cfg,
	}
}

func (s *slotService) CreateSlot(ctx context.Context, poolID string, req *model.SlotCreate) (*model.Slot, error) {
	if poolID == "" {
		return nil, apperrors.InvalidInput("pool ID is required")
	}

	if err := s.validator.ValidateCreate(req); err != nil {
		s.cfg.Log.Warn("Slot validation failed",
			"pool_id", poolID,
			"error", err,
		)
		return nil, apperrors.Validation("Slot validation failed", map[string]any{
			"errors": err,
		})
	}

	now := s.clock.Now()
	slot := &model.Slot{
		PoolID:    poolID,
		StartTime: req.StartTime.UTC(),
		EndTime:   req.EndTime.UTC(),
		Status:    model.SlotOpen,
		Meta:      req.Meta,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, slot); err != nil {
		s.cfg.Log.Error("Failed to create slot",
			"pool_id", poolID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create slot", err)
	}

	s.cfg.Log.Info("Slot created",
		"slot_id", slot.ID,
		"pool_id", poolID,
		"start_time", slot.StartTime,
	)
	return slot, nil
}

func (s *slotService) GetSlot(ctx context.Context, id string) (*model.Slot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("slot ID is required")
	}

	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepositoryError(id, "Failed to retrieve slot", err)
	}
	return slot, nil
}

func (s *slotService) ListSlots(ctx context.Context, poolID string, filter model.SlotFilter, limit int, offset int64) ([]*model.Slot, int64, error) {
	if poolID == "" {
		return nil, 0, apperrors.InvalidInput("pool ID is required")
	}
	if filter.Status != "" {
		if err := s.validator.ValidateStatus(filter.Status); err != nil {
			return nil, 0, apperrors.InvalidInput(err.Error())
		}
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, 0, apperrors.InvalidInput("from must be before to")
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var (
		slots             []*model.Slot
		totalCount        int64
		findErr, countErr error
		wg                sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		slots, findErr = s.repo.FindByPool(ctx, poolID, filter, limit, offset)
	}()
	go func() {
		defer wg.Done()
		totalCount, countErr = s.repo.CountByPool(ctx, poolID, filter)
	}()
	wg.Wait()

	if findErr != nil {
		s.cfg.Log.Error("Failed to list slots", "pool_id", poolID, "error", findErr)
		return nil, 0, apperrors.Internal("Failed to list slots", findErr)
	}
	if countErr != nil {
		s.cfg.Log.Error("Failed to count slots", "pool_id", poolID, "error", countErr)
		return nil, 0, apperrors.Internal("Failed to count slots", countErr)
	}

	return slots, totalCount, nil
}

// SetStatus writes status without checking the current one. Callers that
// need the slot state machine use TransitionStatus.
func (s *slotService) SetStatus(ctx context.Context, id string, status model.SlotStatus) error {
	if err := s.validator.ValidateStatus(status); err != nil {
		return apperrors.InvalidInput(err.Error())
	}

	if err := s.repo.SetStatus(ctx, id, status, s.clock.Now()); err != nil {
		return s.mapRepositoryError(id, "Failed to update slot status", err)
	}

	s.cfg.Log.Debug("Slot status set", "slot_id", id, "status", status)
	return nil
}

func (s *slotService) TransitionStatus(ctx context.Context, id string, from, to model.SlotStatus) (bool, error) {
	if err := s.validator.ValidateStatus(to); err != nil {
		return false, apperrors.InvalidInput(err.Error())
	}

	ok, err := s.repo.CompareAndSetStatus(ctx, id, from, to, s.clock.Now())
	if err != nil {
		return false, s.mapRepositoryError(id, "Failed to transition slot status", err)
	}

	if ok {
		s.cfg.Log.Debug("Slot status transitioned", "slot_id", id, "from", from, "to", to)
	}
	return ok, nil
}

func (s *slotService) DeleteSlot(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("slot ID is required")
	}

	err := s.repo.DeleteIfOpen(ctx, id)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotOpen) {
			s.cfg.Log.Info("Rejected delete of non-open slot", "slot_id", id)
			return apperrors.PreconditionFailed(fmt.Sprintf("slot %s can only be deleted while open", id)).
				WithDetails(map[string]any{"slot_id": id})
		}
		return s.mapRepositoryError(id, "Failed to delete slot", err)
	}

	s.cfg.Log.Info("Slot deleted", "slot_id", id)
	return nil
}

func (s *slotService) mapRepositoryError(id, msg string, err error) error {
	if errors.Is(err, slotserrors.ErrNotFound) || errors.Is(err, slotserrors.ErrInvalidID) {
		return apperrors.SlotNotFound(id)
	}

	s.cfg.Log.Error(msg, "slot_id", id, "error", err)
	return apperrors.Internal(msg, err)
}
