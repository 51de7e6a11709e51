package memory

import (
	"context"
	"strings"

	"campusride/internal/domain/models"
	"campusride/internal/repositories"
)

func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return models.User{}, repositories.ErrDuplicate
		}
	}
	s.seq.user++
	now := s.now()
	user.ID = s.seq.user
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *Store) UpdateUser(ctx context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	// Aggregates and credentials are owned by other operations.
	user.Email = existing.Email
	user.PasswordHash = existing.PasswordHash
	user.Rating = existing.Rating
	user.ReviewCount = existing.ReviewCount
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = s.now()
	s.users[user.ID] = user
	return user, nil
}
