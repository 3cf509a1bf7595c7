package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// MemoryRepository is a mutex-guarded in-memory implementation for tests
// and single-instance development setups.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]*models.RefreshToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]*models.RefreshToken)}
}

func (r *MemoryRepository) Create(_ context.Context, jti, userID string, issuedAt, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[jti]; exists {
		return common.ErrorInternal
	}
	r.records[jti] = &models.RefreshToken{
		JTI:       jti,
		UserID:    userID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}

	return nil
}

func (r *MemoryRepository) Find(_ context.Context, jti string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[jti]
	if !ok {
		return nil, common.ErrorNotFound
	}

	copied := *record
	return &copied, nil
}

func (r *MemoryRepository) Revoke(_ context.Context, jti string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record, ok := r.records[jti]; ok {
		record.Revoked = true
	}

	return nil
}

func (r *MemoryRepository) RevokeAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, record := range r.records {
		if record.UserID == userID {
			record.Revoked = true
		}
	}

	return nil
}

func (r *MemoryRepository) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for jti, record := range r.records {
		if record.ExpiresAt.Before(cutoff) {
			delete(r.records, jti)
			n++
		}
	}

	return n, nil
}
