package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole represents the role of an account in the review plane
type UserRole string

const (
	RoleUser     UserRole = "user"     // submits requests, sees own cases
	RoleApprover UserRole = "approver" // reviews queued cases
)

// User represents a reviewer or requester account
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	Role         UserRole  `json:"role" db:"role"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new User instance
func NewUser(email, displayName string, role UserRole, passwordHash string) *User {
	now := time.Now()
	return &User{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  displayName,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsApprover returns true if the user can review queued cases
func (u *User) IsApprover() bool {
	return u.Role == RoleApprover
}
