package lockouts

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

// IncrementFailed runs as a single upsert statement, so concurrent failures
// for the same account serialize on the row lock and each caller gets a
// distinct counter value.
func (r *PostgresRepository) IncrementFailed(ctx context.Context, userID string) (int, error) {

	query :=
		`INSERT INTO lockout_states (user_id, failed_count)
         VALUES ($1, 1)
		 ON CONFLICT (user_id)
		 DO UPDATE SET failed_count = lockout_states.failed_count + 1
		 RETURNING failed_count
		 `

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}

	return count, nil
}

// SetLockedUntil keeps locked_until monotone: GREATEST discards an earlier
// deadline written by a racing attempt.
func (r *PostgresRepository) SetLockedUntil(ctx context.Context, userID string, until time.Time) error {
	query :=
		`UPDATE lockout_states
		 SET locked_until = GREATEST(COALESCE(locked_until, 'epoch'::timestamptz), $2)
		 WHERE user_id = $1
		 `

	_, err := r.db.ExecContext(ctx, query, userID, until)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Reset(ctx context.Context, userID string) error {
	query :=
		`UPDATE lockout_states SET failed_count = 0, locked_until = NULL
		 WHERE user_id = $1
		 `

	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.LockoutState, error) {
	query :=
		`SELECT user_id, failed_count, locked_until FROM lockout_states
		 WHERE user_id = $1
		 `

	state := &models.LockoutState{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&state.UserID, &state.FailedCount, &state.LockedUntil)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return state, nil
}
