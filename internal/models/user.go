package models

import "time"

// Roles. Members are donors; staff/accountant/admin operate the ledger.
const (
	RoleAdmin      = "admin"
	RoleAccountant = "accountant"
	RoleStaff      = "staff"
	RoleMember     = "member"
)

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Village      string    `json:"village,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateUserRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Village  string `json:"village"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Actor identifies the authenticated caller for audit attribution
// (created_by / updated_by / transaction username). The core performs no
// authorization with it beyond role-gated payment edits.
type Actor struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}
