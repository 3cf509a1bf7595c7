package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/dbx"
	"github.com/dmitrijs2005/authcore/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, jti, userID string, issuedAt, expiresAt time.Time) error {

	query :=
		`INSERT INTO refresh_tokens (jti, user_id, issued_at, expires_at)
         VALUES ($1, $2, $3, $4)
		 `

	_, err := r.db.ExecContext(ctx, query, jti, userID, issuedAt, expiresAt)

	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, jti string) (*models.RefreshToken, error) {
	query :=
		`SELECT jti, user_id, issued_at, expires_at, revoked FROM refresh_tokens
		 WHERE jti = $1
		 `

	token := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, jti).Scan(
		&token.JTI, &token.UserID, &token.IssuedAt, &token.ExpiresAt, &token.Revoked)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return token, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, jti string) error {
	query :=
		`UPDATE refresh_tokens SET revoked = true
		 WHERE jti = $1
		 `

	_, err := r.db.ExecContext(ctx, query, jti)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}

func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	query :=
		`UPDATE refresh_tokens SET revoked = true
		 WHERE user_id = $1 AND NOT revoked
		 `

	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query :=
		`DELETE FROM refresh_tokens
		 WHERE expires_at < $1
		 `

	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}

	return res.RowsAffected()
}
