package models

import "time"

// UserRole is a principal's role in the strict VIEWER < EDITOR < ADMIN
// hierarchy. A higher role satisfies any lower role's requirement.
type UserRole string

const (
	RoleViewer UserRole = "VIEWER"
	RoleEditor UserRole = "EDITOR"
	RoleAdmin  UserRole = "ADMIN"
)

// Level returns the numeric rank of the role. Unknown roles rank below
// VIEWER so they never satisfy a requirement.
func (r UserRole) Level() int {
	switch r {
	case RoleViewer:
		return 1
	case RoleEditor:
		return 2
	case RoleAdmin:
		return 3
	}
	return 0
}

func (r UserRole) Valid() bool {
	return r.Level() > 0
}

// User is an authenticated principal. PasswordHash is never serialized.
type User struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Name         string     `json:"name" db:"name"`
	Role         UserRole   `json:"role" db:"role"`
	Active       bool       `json:"active" db:"active"`
	LastLogin    *time.Time `json:"lastLogin,omitempty" db:"last_login"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// UserRef is the compact user expansion embedded in other payloads.
type UserRef struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email,omitempty" db:"email"`
}

// CreateUserRequest is the admin body for creating a user.
type CreateUserRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=8"`
	Name     string   `json:"name" validate:"required,min=1,max=255"`
	Role     UserRole `json:"role,omitempty" validate:"omitempty,oneof=VIEWER EDITOR ADMIN"`
}

// UpdateUserRoleRequest changes a user's role.
type UpdateUserRoleRequest struct {
	Role UserRole `json:"role" validate:"required,oneof=VIEWER EDITOR ADMIN"`
}

// LoginRequest is the credential body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// LoginResponse carries the bearer token and the sanitized user.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}
