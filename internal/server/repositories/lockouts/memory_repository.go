package lockouts

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// MemoryRepository is a mutex-guarded in-memory implementation for tests and
// single-instance development setups. The mutex gives the same per-account
// serialization the Postgres row lock provides.
type MemoryRepository struct {
	mu     sync.Mutex
	states map[string]*models.LockoutState
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{states: make(map[string]*models.LockoutState)}
}

func (r *MemoryRepository) IncrementFailed(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[userID]
	if !ok {
		state = &models.LockoutState{UserID: userID}
		r.states[userID] = state
	}
	state.FailedCount++

	return state.FailedCount, nil
}

func (r *MemoryRepository) SetLockedUntil(_ context.Context, userID string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[userID]
	if !ok {
		return nil
	}
	if state.LockedUntil == nil || until.After(*state.LockedUntil) {
		state.LockedUntil = &until
	}

	return nil
}

func (r *MemoryRepository) Reset(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state, ok := r.states[userID]; ok {
		state.FailedCount = 0
		state.LockedUntil = nil
	}

	return nil
}

func (r *MemoryRepository) Get(_ context.Context, userID string) (*models.LockoutState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}

	copied := *state
	if state.LockedUntil != nil {
		until := *state.LockedUntil
		copied.LockedUntil = &until
	}

	return &copied, nil
}
