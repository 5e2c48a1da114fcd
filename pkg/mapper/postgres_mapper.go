package mapper

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresUserMapper implements UserMapper against the app_user table
type PostgresUserMapper struct {
	db DBTX
}

// NewPostgresUserMapper creates a new PostgreSQL user mapper
func NewPostgresUserMapper(db DBTX) *PostgresUserMapper {
	return &PostgresUserMapper{db: db}
}

// GetUserByID returns the user with the given id
func (m *PostgresUserMapper) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	var user User
	err := m.db.QueryRow(ctx, `
		SELECT id, email, COALESCE(display_name, '')
		FROM app_user
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Email, &user.DisplayName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// FindUserByEmail returns the user registered under the email
func (m *PostgresUserMapper) FindUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := m.db.QueryRow(ctx, `
		SELECT id, email, COALESCE(display_name, '')
		FROM app_user
		WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&user.ID, &user.Email, &user.DisplayName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}
