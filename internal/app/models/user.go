package models

import (
	"strings"
	"time"
)

// RoleType defines the staff user role type
type RoleType string

const (
	RoleAdmin     RoleType = "ADMIN"     // full access, including delete and user management
	RoleRegistrar RoleType = "REGISTRAR" // record keeping: create/update students, run imports
	RoleViewer    RoleType = "VIEWER"    // read-only access
)

// IsValid reports whether r is one of the recognized roles.
func (r RoleType) IsValid() bool {
	switch r {
	case RoleAdmin, RoleRegistrar, RoleViewer:
		return true
	}
	return false
}

// User defines the staff user model based on the 'users' table
type User struct {
	ID          int64      `json:"id" db:"id" example:"1"`                                   // Unique identifier for the user
	Email       string     `json:"email" db:"email" example:"sara@school.org.il"`            // User's email address
	Password    string     `json:"-" db:"password"`                                          // User's hashed password (excluded from JSON)
	FirstName   string     `json:"firstName" db:"first_name" example:"Sara"`                 // User's first name
	LastName    string     `json:"lastName" db:"last_name" example:"Levi"`                   // User's last name
	RoleType    RoleType   `json:"roleType" db:"role_type" example:"REGISTRAR"`              // User's role
	IsActive    bool       `json:"isActive" db:"is_active" example:"true"`                   // Whether the user account is active
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`                 // Timestamp of the last login (nullable)
	CreatedAt   time.Time  `json:"createdAt" db:"created_at" example:"2024-01-01T10:00:00Z"` // Timestamp when the user was created
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at" example:"2024-01-02T15:30:00Z"` // Timestamp when the user was last updated
}

// FullName returns the actor identity recorded on history entries.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
