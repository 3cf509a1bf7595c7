package models

import "time"

// RefreshToken is the persisted record of an issued refresh token, keyed by
// its jti. At most one non-revoked, non-expired record exists per session;
// rotation marks the old record revoked and inserts the new one in a single
// transaction.
type RefreshToken struct {
	JTI       string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool
}
