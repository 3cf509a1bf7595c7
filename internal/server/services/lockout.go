package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/lockouts"
)

// LockoutThreshold is the consecutive-failure count at which a lockout
// window first opens.
const LockoutThreshold = 5

// lockoutDuration maps a consecutive-failure count to the suspension
// window. The escalation caps at 30 minutes.
func lockoutDuration(failed int) time.Duration {
	switch {
	case failed < LockoutThreshold:
		return 0
	case failed < 10:
		return 1 * time.Minute
	case failed < 15:
		return 5 * time.Minute
	case failed < 20:
		return 15 * time.Minute
	default:
		return 30 * time.Minute
	}
}

// LockoutService tracks consecutive authentication failures per account and
// computes the escalating suspension window. The per-account atomicity of
// the increment lives in the repository; this layer only maps counts to
// durations.
//
// Locking is informational: the authentication flow checks IsLocked before
// verifying and short-circuits with a generic rejection while still paying
// the dummy-hash cost, so a locked account is not distinguishable from a
// wrong password by timing.
type LockoutService struct {
	repo lockouts.Repository
	now  func() time.Time
}

func NewLockoutService(repo lockouts.Repository) *LockoutService {
	return &LockoutService{repo: repo, now: time.Now}
}

// RecordFailure increments the user's failure counter and, once the
// threshold is crossed, extends the lockout deadline. It returns whether
// the account is now locked and until when.
func (s *LockoutService) RecordFailure(ctx context.Context, userID string) (bool, *time.Time, error) {
	count, err := s.repo.IncrementFailed(ctx, userID)
	if err != nil {
		return false, nil, err
	}

	if count < LockoutThreshold {
		return false, nil, nil
	}

	until := s.now().Add(lockoutDuration(count))
	if err := s.repo.SetLockedUntil(ctx, userID, until); err != nil {
		return false, nil, err
	}

	// A racing attempt may have stored a later deadline; report ours, the
	// stored value is the monotone maximum either way.
	return true, &until, nil
}

// RecordSuccess resets the failure counter and clears the deadline.
func (s *LockoutService) RecordSuccess(ctx context.Context, userID string) error {
	return s.repo.Reset(ctx, userID)
}

// IsLocked reports whether the account is inside a lockout window.
func (s *LockoutService) IsLocked(ctx context.Context, userID string) (bool, error) {
	state, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}

	return state.LockedUntil != nil && state.LockedUntil.After(s.now()), nil
}
