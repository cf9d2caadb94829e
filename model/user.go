package model

import (
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser   Role = "user"
	RoleArtist Role = "artist"
	RoleAdmin  Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleUser, RoleArtist, RoleAdmin:
		return r, true
	}
	return "", false
}

// Principal is the authenticated caller of a use case.
type Principal struct {
	UserID string
	Role   Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanCreateEvents reports whether the caller may publish events at all.
func (p Principal) CanCreateEvents() bool {
	return p.Role == RoleArtist || p.Role == RoleAdmin
}

// CanManageEvent reports whether the caller may change or inspect the
// bookings of an event owned by artistID.
func (p Principal) CanManageEvent(artistID string) bool {
	return p.IsAdmin() || (p.Role == RoleArtist && p.UserID == artistID)
}

// CanAccessBooking reports whether the caller may read or cancel a booking
// owned by userID.
func (p Principal) CanAccessBooking(userID string) bool {
	return p.IsAdmin() || p.UserID == userID
}

// ===============================
// Database Entities (Internal)
// ===============================

type User struct {
	ID           string `gorm:"type:text;primary_key"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         Role   `gorm:"type:varchar(20);not null;default:'user'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (User) TableName() string {
	return "users"
}

func (u *User) ToUserResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// ===============================
// Repository DTOs (Internal)
// ===============================

type CreateUserRequest struct {
	Name     string
	Email    string
	Password string // plain text, hashed in the repository
	Role     Role
}

// ===============================
// API DTOs (External)
// ===============================

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=user artist"`
}

func (r *RegisterRequest) ToCreateUserRequest() CreateUserRequest {
	role := RoleUser
	if r.Role == string(RoleArtist) {
		role = RoleArtist
	}
	return CreateUserRequest{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Role:     role,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type LoginResponse struct {
	AccessToken string       `json:"accessToken"`
	ExpiresIn   int          `json:"expiresIn"`
	User        UserResponse `json:"user"`
}
