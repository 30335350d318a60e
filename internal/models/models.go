package models

import (
	"time"
)

// Role is the opaque role classifier a user carries in the directory
type Role string

// Roles known to the correspondence workflow
const (
	RoleAdmin        Role = "Admin"
	RoleBoshqaruv    Role = "Boshqaruv"     // board
	RoleBankApparati Role = "Bank apparati" // bank staff / registry office
	RoleTarmoq       Role = "Tarmoq"        // department head
	RoleYordamchi    Role = "Yordamchi"     // board assistant
	RoleReviewer     Role = "Reviewer"      // rank-and-file employee
)

// User represents a user as seen through the user directory
type User struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	Role         Role      `json:"role" db:"role"`
	DepartmentID *int64    `json:"department_id,omitempty" db:"department_id"`
	Department   string    `json:"department,omitempty" db:"department"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// HasRole reports whether the user carries any of the given roles
func (u *User) HasRole(roles ...Role) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// UserRef is the lightweight user reference embedded in document snapshots
type UserRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AuditLog represents one entry of a document's audit trail
type AuditLog struct {
	ID         int64     `json:"id" db:"id"`
	DocumentID int64     `json:"document_id" db:"document_id"`
	UserID     *int64    `json:"user_id,omitempty" db:"user_id"`
	UserName   *string   `json:"user_name,omitempty" db:"user_name"`
	Action     string    `json:"action" db:"action"`
	FromStage  *Stage    `json:"from_stage,omitempty" db:"from_stage"`
	ToStage    *Stage    `json:"to_stage,omitempty" db:"to_stage"`
	Details    string    `json:"details,omitempty" db:"details"`
	IPAddress  string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  string    `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
