package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Osman8a/TDAH-REST-API/internal/models"
)

// MemoryStore keeps users in process memory. It backs the "memory" storage
// driver and the service tests, and honours the same contracts as the
// Postgres repositories.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[user.Email]; taken {
		return models.User{}, ErrEmailTaken
	}

	stored := user.Clone()
	stored.Tokens = models.Sessions{}
	stored.CreatedAt = s.now()
	stored.UpdatedAt = stored.CreatedAt

	s.byID[stored.ID] = &stored
	s.byEmail[stored.Email] = stored.ID
	return stored.Clone(), nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.byID))
	for _, user := range s.byID {
		users = append(users, user.Clone())
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (s *MemoryStore) Apply(_ context.Context, id string, change models.UserChange) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	user.Apply(change)
	user.UpdatedAt = s.now()
	return user.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(s.byEmail, user.Email)
	delete(s.byID, id)
	return nil
}

func (s *MemoryStore) AppendToken(_ context.Context, userID string, token models.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.Tokens = append(user.Tokens, token)
	user.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) RemoveToken(_ context.Context, userID string, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[userID]
	if !ok {
		return nil
	}
	if user.Tokens.Remove(token) {
		user.UpdatedAt = s.now()
	}
	return nil
}
