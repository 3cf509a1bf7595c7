package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository is a mutex-guarded in-memory implementation for tests
// and single-instance development setups.
type MemoryRepository struct {
	mu    sync.Mutex
	users map[string]*models.User // keyed by ID
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]*models.User)}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.UserName == user.UserName {
			return nil, common.ErrorInternal
		}
	}

	created := *user
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now()
	r.users[created.ID] = &created

	copied := created
	return &copied, nil
}

func (r *MemoryRepository) GetByUserName(_ context.Context, userName string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.UserName == userName {
			copied := *user
			return &copied, nil
		}
	}

	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}

	copied := *user
	return &copied, nil
}

func (r *MemoryRepository) UpdatePasswordHash(_ context.Context, userID, passwordHash string, pepperVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	user.PasswordHash = passwordHash
	user.PepperVersion = pepperVersion

	return nil
}
