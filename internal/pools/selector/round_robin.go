package selector

import (
	"context"
	"errors"
	"fmt"
	poolserrors "receptionist/internal/pools/errors"
	"receptionist/pkg/clock"
	"receptionist/pkg/config"
	apperrors "receptionist/pkg/errors"
	"receptionist/pkg/model"
	"time"
)

// casAttempts bounds how often the rotation pointer write is tried before the
// chosen member is returned unpersisted.
const casAttempts = 2

// PoolDirectory is the read and pointer-write surface the selector needs.
type PoolDirectory interface {
	FindByID(ctx context.Context, id string) (*model.Pool, error)
	ListActiveMembers(ctx context.Context, poolID string) ([]*model.PoolMember, error)
	CompareAndSetLastAssigned(ctx context.Context, poolID string, expected *string, next string, now time.Time) (bool, error)
}

// Selection is the member chosen for a booking. Persisted is false when the
// rotation pointer could not be advanced; the booking still proceeds.
type Selection struct {
	Member    *model.PoolMember
	Persisted bool
}

type AssignmentSelector interface {
	SelectNext(ctx context.Context, pool *model.Pool) (*Selection, error)
}

type roundRobinSelector struct {
	pools PoolDirectory
	clock clock.Clock
	cfg   *config.Config
}

func NewRoundRobinSelector(pools PoolDirectory, clk clock.Clock, cfg *config.Config) AssignmentSelector {
	return &roundRobinSelector{
		pools: pools,
		clock: clk,
		cfg:   cfg,
	}
}

func (s *roundRobinSelector) SelectNext(ctx context.Context, pool *model.Pool) (*Selection, error) {
	current := pool
	var candidate *model.PoolMember

	for attempt := 1; attempt <= casAttempts; attempt++ {
		if attempt > 1 {
			reloaded, err := s.pools.FindByID(ctx, pool.ID)
			if err != nil {
				if errors.Is(err, poolserrors.ErrNotFound) || errors.Is(err, poolserrors.ErrInvalidID) {
					return nil, apperrors.PoolNotFound(pool.ID)
				}
				return nil, fmt.Errorf("failed to reload pool: %w", err)
			}
			current = reloaded
		}

		members, err := s.pools.ListActiveMembers(ctx, pool.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list pool members: %w", err)
		}
		if len(members) == 0 {
			s.cfg.Log.Warn("Pool has no active members", "pool_id", pool.ID)
			return nil, apperrors.NoMemberAvailable(pool.ID)
		}

		candidate = NextMember(members, current.LastAssignedMemberID)

		ok, err := s.pools.CompareAndSetLastAssigned(ctx, pool.ID, current.LastAssignedMemberID, candidate.ID, s.clock.Now())
		if err != nil {
			s.cfg.Log.Warn("Rotation pointer write failed, proceeding without it",
				"pool_id", pool.ID,
				"member_id", candidate.ID,
				"error", err,
			)
			return &Selection{Member: candidate, Persisted: false}, nil
		}
		if ok {
			return &Selection{Member: candidate, Persisted: true}, nil
		}

		s.cfg.Log.Debug("Rotation pointer changed concurrently",
			"pool_id", pool.ID,
			"attempt", attempt,
		)
	}

	s.cfg.Log.Warn("Rotation pointer not persisted after retry",
		"pool_id", pool.ID,
		"member_id", candidate.ID,
	)
	return &Selection{Member: candidate, Persisted: false}, nil
}

// NextMember returns the member after lastAssigned in members, which must be
// non-empty and ordered by join order. An unknown or nil pointer restarts the
// rotation at the first member.
func NextMember(members []*model.PoolMember, lastAssigned *string) *model.PoolMember {
	if lastAssigned == nil {
		return members[0]
	}
	for i, m := range members {
		if m.ID == *lastAssigned {
			return members[(i+1)%len(members)]
		}
	}
	return members[0]
}
