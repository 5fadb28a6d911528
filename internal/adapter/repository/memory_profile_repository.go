package repository

import (
	"context"

	"socialdm/internal/domain/entity"
	"socialdm/pkg/errors"
)

// MemoryProfileRepository serves profiles registered with PutProfile.
type MemoryProfileRepository struct {
	store *MemoryStore
}

func NewMemoryProfileRepository(store *MemoryStore) *MemoryProfileRepository {
	return &MemoryProfileRepository{store: store}
}

func (r *MemoryProfileRepository) PutProfile(profile entity.UserProfile) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.profiles[profile.UserID] = profile
}

func (r *MemoryProfileRepository) GetProfile(ctx context.Context, userID string) (*entity.UserProfile, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	profile, ok := r.store.profiles[userID]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return &profile, nil
}
