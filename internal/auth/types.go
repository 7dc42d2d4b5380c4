package auth

import (
	"context"
	"time"
)

// User represents an account operating on behalf of a tenant.
type User struct {
	ID           string
	TenantID     string
	Email        string
	PasswordHash string
	Admin        bool
	ProfileID    *string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// RefreshToken is the persisted half of an opaque refresh credential. The
// client holds "id.secret"; only the sha256 of the secret is stored.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
}

// Store describes persistence required by the auth service.
type Store interface {
	FindUser(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	CreateRefreshToken(ctx context.Context, tok *RefreshToken) error
	FindRefreshToken(ctx context.Context, id string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string) error
}
