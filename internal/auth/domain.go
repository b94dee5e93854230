package auth

import (
	"fmt"
	"time"

	"github.com/ecoly/ecoly/internal/rbac"
)

// User represents an authenticated user account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	// Role is the raw stored value; Principal parses it.
	Role        string
	SchoolID    string
	IsActive    bool
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Principal converts the account into the actor understood by the
// permission engine. Stored roles outside the enumeration are rejected here.
func (u *User) Principal() (*rbac.Principal, error) {
	role, err := rbac.ParseRole(u.Role)
	if err != nil {
		return nil, fmt.Errorf("auth: user %s: %w", u.ID, err)
	}
	return &rbac.Principal{ID: u.ID, Email: u.Email, Role: role, TenantID: u.SchoolID}, nil
}

// UserInfo is the public view of a principal returned by the JSON endpoints.
type UserInfo struct {
	ID       string    `json:"id"`
	Email    string    `json:"email"`
	Role     rbac.Role `json:"role"`
	SchoolID string    `json:"schoolId"`
}

func userInfo(p *rbac.Principal) UserInfo {
	return UserInfo{ID: p.ID, Email: p.Email, Role: p.Role, SchoolID: p.TenantID}
}
