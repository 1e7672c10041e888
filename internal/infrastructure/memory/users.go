package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-otp-auth/internal/domain"
)

// UserStore is a credential store keyed by email.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]domain.User)}
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}
	return &u, nil
}

func (s *UserStore) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Email]; ok {
		return fmt.Errorf("user %s: %w", u.Email, domain.ErrAlreadyRegistered)
	}
	s.users[u.Email] = *u
	return nil
}

func (s *UserStore) UpdatePassword(_ context.Context, email, passwordHash string) error {
	return s.update(email, func(u *domain.User) {
		u.PasswordHash = passwordHash
	})
}

func (s *UserStore) LinkGoogle(_ context.Context, email, sub string) error {
	return s.update(email, func(u *domain.User) {
		u.GoogleSub = sub
	})
}

func (s *UserStore) update(email string, fn func(*domain.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	s.users[email] = u
	return nil
}
