// Package users declares the repository contract for account records used
// by the authentication flow.
package users

import (
	"context"

	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// Repository defines the account-store operations the security core
// consumes.
type Repository interface {
	// Create stores a new user and returns it with its generated ID.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByUserName looks a user up by username. Implementations return
	// common.ErrorNotFound when the user is absent.
	GetByUserName(ctx context.Context, userName string) (*models.User, error)

	// GetByID looks a user up by ID.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// UpdatePasswordHash replaces the stored password hash and pepper
	// version for the given user.
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string, pepperVersion int) error
}
