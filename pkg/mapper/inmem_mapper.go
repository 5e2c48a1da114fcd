package mapper

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// InMemUserMapper implements UserMapper using an in-memory map. Intended for
// tests and local development.
type InMemUserMapper struct {
	users map[uuid.UUID]User
	mu    sync.Mutex
}

// NewInMemUserMapper creates an empty in-memory user mapper
func NewInMemUserMapper() *InMemUserMapper {
	return &InMemUserMapper{
		users: make(map[uuid.UUID]User),
	}
}

// AddUser registers a user, generating an id if none is set
func (m *InMemUserMapper) AddUser(user User) User {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.users[user.ID] = user
	return user
}

// GetUserByID returns the user with the given id
func (m *InMemUserMapper) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, exists := m.users[id]
	if !exists {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

// FindUserByEmail returns the user registered under the email
func (m *InMemUserMapper) FindUserByEmail(ctx context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}
