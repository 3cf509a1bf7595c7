// Package services contains the server-side business logic of the security
// core: token issuance and rotation, lockout tracking, and the
// authentication flow that ties them together.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/dbx"
	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server/auth"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// TokenPair bundles a short-lived access token and a long-lived refresh
// token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService issues, verifies, rotates, and revokes bearer tokens.
// Access tokens are self-contained and checked against the volatile
// denylist; refresh tokens are additionally backed by the persisted
// revocation ledger.
type TokenService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	denylist                     *auth.Denylist
	signingKey                   []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	logger                       logging.Logger
	now                          func() time.Time
}

func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, denylist *auth.Denylist,
	signingKey []byte, accessValidity, refreshValidity time.Duration, logger logging.Logger) *TokenService {
	return &TokenService{
		db:                           db,
		repomanager:                  m,
		denylist:                     denylist,
		signingKey:                   signingKey,
		accessTokenValidityDuration:  accessValidity,
		refreshTokenValidityDuration: refreshValidity,
		logger:                       logger.With("module", "token_service"),
		now:                          time.Now,
	}
}

// Issue mints a fresh token pair for userID. Extra claims go into the
// access token only and must not collide with reserved names.
func (s *TokenService) Issue(ctx context.Context, userID string, extra map[string]string) (*TokenPair, error) {
	return s.issue(ctx, userID, extra, s.db)
}

func (s *TokenService) issue(ctx context.Context, userID string, extra map[string]string, db dbx.DBTX) (*TokenPair, error) {
	accessJTI := uuid.NewString()
	access, err := auth.GenerateToken(userID, auth.TokenTypeAccess, accessJTI, s.signingKey, s.accessTokenValidityDuration, extra)
	if err != nil {
		if errors.Is(err, common.ErrReservedClaim) {
			return nil, err
		}
		return nil, common.ErrorInternal
	}

	refreshJTI := uuid.NewString()
	refresh, err := auth.GenerateToken(userID, auth.TokenTypeRefresh, refreshJTI, s.signingKey, s.refreshTokenValidityDuration, nil)
	if err != nil {
		return nil, common.ErrorInternal
	}

	issuedAt := s.now()
	repo := s.repomanager.RefreshTokens(db)
	if err := repo.Create(ctx, refreshJTI, userID, issuedAt, issuedAt.Add(s.refreshTokenValidityDuration)); err != nil {
		s.logger.Error(ctx, "storing refresh record", "error", err)
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess validates signature, type, expiry, and denylist membership.
func (s *TokenService) VerifyAccess(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := auth.ParseToken(token, s.signingKey)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != auth.TokenTypeAccess {
		return nil, common.ErrTokenWrongType
	}
	if s.denylist.Contains(claims.ID) {
		return nil, common.ErrTokenRevoked
	}
	return claims, nil
}

// VerifyRefresh validates the token itself and then its persisted record:
// the jti must exist, be unrevoked, and be unexpired.
func (s *TokenService) VerifyRefresh(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := auth.ParseToken(token, s.signingKey)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != auth.TokenTypeRefresh {
		return nil, common.ErrTokenWrongType
	}

	repo := s.repomanager.RefreshTokens(s.db)
	record, err := repo.Find(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrTokenNotFound
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if record.Revoked {
		return nil, common.ErrTokenRevoked
	}
	if record.ExpiresAt.Before(s.now()) {
		return nil, common.ErrTokenExpired
	}

	return claims, nil
}

// Rotate verifies the presented refresh token and replaces it: the old
// record is marked revoked and the new one inserted inside one transaction,
// so a crash between the steps cannot leave both tokens valid. The old
// token never verifies again after Rotate returns.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		if err := repoTx.Revoke(ctx, claims.ID); err != nil {
			return fmt.Errorf("error revoking refresh token: %w", err)
		}
		var issueErr error
		pair, issueErr = s.issue(ctx, claims.Subject, nil, tx)
		return issueErr
	}); err != nil {
		return nil, err
	}

	return pair, nil
}

// RevokeRefresh marks a refresh record revoked by jti.
func (s *TokenService) RevokeRefresh(ctx context.Context, jti string) error {
	return s.repomanager.RefreshTokens(s.db).Revoke(ctx, jti)
}

// RevokeAllForUser revokes every live refresh record for the user, used by
// the credential-change flow.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.repomanager.RefreshTokens(s.db).RevokeAllForUser(ctx, userID)
}

// DenylistAccess marks an access token's jti revoked until the token's own
// expiry. The entry lives in process-local memory only; see auth.Denylist
// for the restart trade-off.
func (s *TokenService) DenylistAccess(jti string, exp time.Time) {
	s.denylist.Add(jti, exp)
}
