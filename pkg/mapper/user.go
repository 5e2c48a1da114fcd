package mapper

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when no user matches the lookup
var ErrUserNotFound = errors.New("user not found")

// User is the account view the sharing subsystem needs. Profile data beyond
// identity and display name lives in the account domain.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
}

// UserMapper resolves user identities for sharing and delegation
type UserMapper interface {
	// GetUserByID returns the user with the given id, or ErrUserNotFound
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)

	// FindUserByEmail returns the user registered under the email, or
	// ErrUserNotFound. The match is case-insensitive.
	FindUserByEmail(ctx context.Context, email string) (User, error)
}
