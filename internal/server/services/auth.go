package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/cryptox"
	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// AuthService is the authentication flow over the core components:
// lockout check, peppered hash verification, token issuance.
//
// Every failure path returns common.ErrInvalidCredentials. Which kind of
// failure it was (unknown user, wrong password, locked account) is logged
// server-side only, and the unknown-user and locked paths burn a dummy hash
// so none of them is distinguishable by response timing.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *cryptox.Hasher
	tokens      *TokenService
	lockout     *LockoutService
	logger      logging.Logger
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, hasher *cryptox.Hasher,
	tokens *TokenService, lockout *LockoutService, logger logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		lockout:     lockout,
		logger:      logger.With("module", "auth_service"),
	}
}

// Register creates a new user with the given username and password.
// Password policy (length minimum, character classes) belongs to the caller;
// only the hashing cost cap is enforced here.
func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.Create(ctx, &models.User{UserName: username, PasswordHash: hash, PepperVersion: 1})
	if err != nil {
		s.logger.Error(ctx, "creating user", "error", err)
		return nil, common.ErrorInternal
	}

	return user, nil
}

// Login verifies the credentials and mints a token pair.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByUserName(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Unknown user: burn the same hash cost as a live verification
			// so the latency distribution does not leak account existence.
			s.hasher.DummyVerify()
			return nil, common.ErrInvalidCredentials
		}
		s.logger.Error(ctx, "looking up user", "error", err)
		return nil, common.ErrorInternal
	}

	locked, err := s.lockout.IsLocked(ctx, user.ID)
	if err != nil {
		s.logger.Error(ctx, "reading lockout state", "error", err)
		return nil, common.ErrorInternal
	}
	if locked {
		s.hasher.DummyVerify()
		s.logger.Warn(ctx, "login attempt on locked account", "user_id", user.ID)
		return nil, common.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		// A malformed stored hash counts as a failed verification, never as
		// a reason to skip the authentication decision.
		s.logger.Error(ctx, "verifying password", "user_id", user.ID, "error", err)
		ok = false
	}
	if !ok {
		nowLocked, until, lerr := s.lockout.RecordFailure(ctx, user.ID)
		if lerr != nil {
			s.logger.Error(ctx, "recording auth failure", "user_id", user.ID, "error", lerr)
		} else if nowLocked {
			s.logger.Warn(ctx, "account locked", "user_id", user.ID, "until", until)
		}
		return nil, common.ErrInvalidCredentials
	}

	if err := s.lockout.RecordSuccess(ctx, user.ID); err != nil {
		s.logger.Error(ctx, "resetting lockout state", "user_id", user.ID, "error", err)
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, password)
	}

	return s.tokens.Issue(ctx, user.ID, nil)
}

// rehash upgrades a stored hash to current parameters after a successful
// login. Failure here never fails the login.
func (s *AuthService) rehash(ctx context.Context, user *models.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error(ctx, "rehashing password", "user_id", user.ID, "error", err)
		return
	}
	if err := s.repomanager.Users(s.db).UpdatePasswordHash(ctx, user.ID, hash, user.PepperVersion); err != nil {
		s.logger.Error(ctx, "storing rehashed password", "user_id", user.ID, "error", err)
	}
}

// Refresh rotates the presented refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	pair, err := s.tokens.Rotate(ctx, refreshToken)
	if err != nil {
		s.logger.Warn(ctx, "refresh rejected", "error", err)
		return nil, common.ErrorUnauthorized
	}
	return pair, nil
}

// Logout invalidates the presented pair: the access jti goes on the
// volatile denylist until its natural expiry, the refresh record is marked
// revoked. Logout is idempotent; tokens that no longer verify are ignored.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if claims, err := s.tokens.VerifyAccess(ctx, accessToken); err == nil {
		s.tokens.DenylistAccess(claims.ID, claims.ExpiresAt.Time)
	}

	if claims, err := s.tokens.VerifyRefresh(ctx, refreshToken); err == nil {
		if err := s.tokens.RevokeRefresh(ctx, claims.ID); err != nil {
			s.logger.Error(ctx, "revoking refresh token", "error", err)
			return common.ErrorInternal
		}
	}

	return nil
}

// ChangePassword verifies the old password, stores the new hash, and
// revokes every outstanding refresh token for the user.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.DummyVerify()
			return common.ErrInvalidCredentials
		}
		return common.ErrorInternal
	}

	ok, err := s.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil {
		s.logger.Error(ctx, "verifying old password", "user_id", userID, "error", err)
		ok = false
	}
	if !ok {
		return common.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := repo.UpdatePasswordHash(ctx, userID, hash, user.PepperVersion); err != nil {
		s.logger.Error(ctx, "storing new password hash", "user_id", userID, "error", err)
		return common.ErrorInternal
	}

	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		s.logger.Error(ctx, "revoking sessions after password change", "user_id", userID, "error", err)
		return common.ErrorInternal
	}

	return nil
}
