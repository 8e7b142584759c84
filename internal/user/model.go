package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailAlreadyUsed   = errors.New("email already used")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveUser       = errors.New("user is inactive")
)

// User represents a marketplace customer account.
type User struct {
	ID           string // UUID
	Email        string
	PasswordHash string
	DisplayName  *string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
	IsActive     bool
	IsAdmin      bool
}
