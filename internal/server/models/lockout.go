package models

import "time"

// LockoutState tracks consecutive authentication failures for one account.
// LockedUntil is nil while the account has never crossed the threshold; it
// only moves forward while failures accumulate and is cleared on success.
type LockoutState struct {
	UserID      string
	FailedCount int
	LockedUntil *time.Time
}
