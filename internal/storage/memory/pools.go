package memory

import (
	"context"
	"fmt"
	poolserrors "receptionist/internal/pools/errors"
	"receptionist/internal/pools/repository"
	"receptionist/pkg/model"
	"sort"
	"time"
)

type poolRepository struct {
	*Store
}

var _ repository.PoolRepository = (*poolRepository)(nil)

func (s *Store) Pools() repository.PoolRepository {
	return &poolRepository{Store: s}
}

func copyPool(pool model.Pool) *model.Pool {
	pool.LastAssignedMemberID = cloneString(pool.LastAssignedMemberID)
	return &pool
}

func (r *poolRepository) Create(_ context.Context, pool *model.Pool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pool.ID = newID()
	pool.UpdatedAt = pool.CreatedAt
	r.pools[pool.ID] = *copyPool(*pool)
	return nil
}

func (r *poolRepository) FindByID(_ context.Context, id string) (*model.Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pool, ok := r.pools[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", poolserrors.ErrNotFound, id)
	}
	return copyPool(pool), nil
}

func (r *poolRepository) CompareAndSetLastAssigned(_ context.Context, poolID string, expected *string, next string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pool, ok := r.pools[poolID]
	if !ok {
		return false, fmt.Errorf("%w: %s", poolserrors.ErrNotFound, poolID)
	}

	current := pool.LastAssignedMemberID
	switch {
	case expected == nil && current != nil:
		return false, nil
	case expected != nil && (current == nil || *current != *expected):
		return false, nil
	}

	pool.LastAssignedMemberID = &next
	pool.UpdatedAt = now
	r.pools[poolID] = pool
	return true, nil
}

func (r *poolRepository) AddMember(_ context.Context, member *model.PoolMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pool, ok := r.pools[member.PoolID]
	if !ok {
		return fmt.Errorf("%w: %s", poolserrors.ErrNotFound, member.PoolID)
	}
	pool.MemberSeq++
	r.pools[pool.ID] = pool

	member.ID = newID()
	member.JoinOrder = pool.MemberSeq
	r.members[member.ID] = *member
	return nil
}

func (r *poolRepository) SetMemberActive(_ context.Context, memberID string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	member, ok := r.members[memberID]
	if !ok {
		return fmt.Errorf("%w: %s", poolserrors.ErrMemberNotFound, memberID)
	}
	member.Active = active
	r.members[memberID] = member
	return nil
}

func (r *poolRepository) ListActiveMembers(_ context.Context, poolID string) ([]*model.PoolMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var members []*model.PoolMember
	for _, m := range r.members {
		if m.PoolID == poolID && m.Active {
			members = append(members, &m)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].JoinOrder < members[j].JoinOrder
	})
	return members, nil
}
