// Package refreshtokens declares the repository contract for the persisted
// refresh-token revocation ledger, keyed by jti.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking
// refresh-token records.
type Repository interface {
	// Create stores a new record for jti. The jti is the primary key, so a
	// duplicate insert fails rather than silently producing two live
	// records for one token.
	Create(ctx context.Context, jti, userID string, issuedAt, expiresAt time.Time) error

	// Find returns the record for jti, or common.ErrorNotFound.
	Find(ctx context.Context, jti string) (*models.RefreshToken, error)

	// Revoke marks the record revoked. Revoking an already revoked record
	// is not an error.
	Revoke(ctx context.Context, jti string) error

	// RevokeAllForUser revokes every live record belonging to userID
	// (credential-change flow).
	RevokeAllForUser(ctx context.Context, userID string) error

	// DeleteExpired removes records whose expiry passed before the cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
