package models

import (
	"time"
)

// DefaultColor is assigned to users who register without choosing one.
const DefaultColor = "#3B82F6"

/** --------------------ENTITIES-------------------- */
// User represents the user entity
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"` // bcrypt hash, never serialised
	Color     string    `gorm:"size:7;not null;default:'#3B82F6'" json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

/** -------------------- DTOs -------------------- */
// Request
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Color    string `json:"color,omitempty" binding:"omitempty,hexcolor"`
}

// LoginRequest represents the request for user login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest carries the mutable profile fields.
type UpdateProfileRequest struct {
	Color *string `json:"color,omitempty" binding:"omitempty,hexcolor"`
}

// Response
type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Color    string `json:"color"`
}

// AuthResponse is returned by register and login.
// swagger:model
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// ProfileResponse is returned by the profile update endpoint.
type ProfileResponse struct {
	User UserResponse `json:"user"`
}

// ToResponse strips the password hash.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Color:    u.Color,
	}
}
