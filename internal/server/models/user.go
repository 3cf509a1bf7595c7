package models

import "time"

// User is the account record as seen by the security core. PasswordHash is
// a self-describing argon2id string; neither it nor the pepper behind it is
// ever logged or serialized outward.
type User struct {
	ID            string
	UserName      string
	PasswordHash  string
	PepperVersion int
	CreatedAt     time.Time
}
