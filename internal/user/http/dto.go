package http

import (
	"time"

	"github.com/localserve/marketplace-backend/internal/user"
)

// UserResponse is the shape of user data returned in API responses.
type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName *string    `json:"display_name"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
	IsActive    bool       `json:"is_active"`
}

// NewUserResponse converts a domain user.User to the API representation.
func NewUserResponse(u *user.User) UserResponse {
	var lastLoginAt *time.Time
	if u.LastLoginAt != nil {
		ll := *u.LastLoginAt
		lastLoginAt = &ll
	}

	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: lastLoginAt,
		IsActive:    u.IsActive,
	}
}

// RegisterRequest defines the payload for user registration.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name"`
}

// LoginRequest defines the payload for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// MeResponse wraps the current user's profile.
type MeResponse struct {
	User UserResponse `json:"user"`
}
