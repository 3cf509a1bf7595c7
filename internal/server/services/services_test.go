package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authcore/internal/cryptox"
	"github.com/dmitrijs2005/authcore/internal/dbx"
	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/lockouts"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/users"
)

// nopLogger discards everything; service tests assert on behavior, not logs.
type nopLogger struct{}

func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (nopLogger) With(args ...any) logging.Logger                    { return nopLogger{} }

// memoryRepoManager hands out the same in-memory repositories regardless of
// the handle, so transactional and plain paths hit one shared store.
type memoryRepoManager struct {
	users    *users.MemoryRepository
	refresh  *refreshtokens.MemoryRepository
	lockouts *lockouts.MemoryRepository
}

func newMemoryRepoManager() *memoryRepoManager {
	return &memoryRepoManager{
		users:    users.NewMemoryRepository(),
		refresh:  refreshtokens.NewMemoryRepository(),
		lockouts: lockouts.NewMemoryRepository(),
	}
}

func (m *memoryRepoManager) Users(_ dbx.DBTX) users.Repository {
	return m.users
}

func (m *memoryRepoManager) RefreshTokens(_ dbx.DBTX) refreshtokens.Repository {
	return m.refresh
}

func (m *memoryRepoManager) Lockouts(_ dbx.DBTX) lockouts.Repository {
	return m.lockouts
}

func (m *memoryRepoManager) RunMigrations(_ context.Context, _ *sql.DB) error {
	return nil
}

// newMockDB returns a *sql.DB whose only purpose is to carry transaction
// begin/commit calls; all data access goes through the memory repositories.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db, mock
}

var (
	hasherOnce sync.Once
	hasherInst *cryptox.Hasher
	hasherErr  error
)

// testHasher builds the argon2id hasher once per test binary; the derivation
// is deliberately expensive.
func testHasher(t *testing.T) *cryptox.Hasher {
	t.Helper()

	hasherOnce.Do(func() {
		hasherInst, hasherErr = cryptox.NewHasher([]byte("test-pepper-test-pepper-test-pep"))
	})
	if hasherErr != nil {
		t.Fatalf("NewHasher error: %v", hasherErr)
	}

	return hasherInst
}
