package users

import (
	"strings"

	"github.com/jrsteele09/go-auth-client/internal/utils"
)

// RoleType is the platform role of a user
type RoleType string

const (
	RoleAdmin   RoleType = "admin"   // School administration portal
	RoleTeacher RoleType = "teacher" // Teacher portal: courses, exams, grading
	RoleStudent RoleType = "student" // Student portal
	RoleParent  RoleType = "parent"  // Parent portal: children's progress
)

// AllRoles lists every known role
var AllRoles = []RoleType{RoleAdmin, RoleTeacher, RoleStudent, RoleParent}

// ParseRole normalises s and reports whether it names a known role
func ParseRole(s string) (RoleType, bool) {
	role := RoleType(strings.ToLower(strings.TrimSpace(s)))
	for _, r := range AllRoles {
		if r == role {
			return role, true
		}
	}
	return "", false
}

// Identity is the cached profile of the signed-in user
type Identity struct {
	ID        int64    `json:"id"`                  // Backend user id
	Email     string   `json:"email"`               // Login email
	FullName  *string  `json:"full_name,omitempty"` // Display name, optional
	Role      RoleType `json:"role"`                // Platform role, drives route admission
	IsActive  bool     `json:"is_active"`           // Pending-approval accounts are inactive
	CreatedAt string   `json:"created_at"`          // Timestamp as sent by the backend
}

// DisplayName returns the full name, falling back to the email
func (i Identity) DisplayName() string {
	if name := strings.TrimSpace(utils.Value(i.FullName)); name != "" {
		return name
	}
	return i.Email
}

// HasRole reports whether the identity's role is one of roles
func (i Identity) HasRole(roles ...RoleType) bool {
	return ContainsRole(roles, i.Role)
}

// ContainsRole reports whether role is in roles
func ContainsRole(roles []RoleType, role RoleType) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
