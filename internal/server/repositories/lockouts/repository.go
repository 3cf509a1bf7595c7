// Package lockouts declares the repository contract for per-account failure
// counters backing the lockout tracker.
package lockouts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// Repository persists lockout state. The increment must be atomic per
// account: two concurrent failed attempts against the same user must
// serialize, so each observes a distinct counter value and neither can slip
// past the threshold unseen.
type Repository interface {
	// IncrementFailed atomically adds one to the user's consecutive-failure
	// counter and returns the new value.
	IncrementFailed(ctx context.Context, userID string) (int, error)

	// SetLockedUntil raises the lockout deadline. The stored value never
	// moves backwards: if a concurrent attempt already set a later
	// deadline, that one wins.
	SetLockedUntil(ctx context.Context, userID string, until time.Time) error

	// Reset clears the counter and the deadline after a successful
	// authentication.
	Reset(ctx context.Context, userID string) error

	// Get returns the current state, or common.ErrorNotFound if the user
	// has never failed an attempt.
	Get(ctx context.Context, userID string) (*models.LockoutState, error)
}
