package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session is the authenticated session as seen by the gateway.
type Session struct {
	UserID uuid.UUID
}

// AuthUser is the signed-in user as reported by the gateway.
type AuthUser struct {
	ID       uuid.UUID
	Email    string
	RoleHint string
}

// Profile holds the per-user progress columns of the users table.
type Profile struct {
	FullName     string
	TotalXP      int
	CurrentLevel int
	StreakDays   int
	CreatedAt    time.Time
}

// Identity is the session identity derived once per authentication.
type Identity struct {
	UserID  uuid.UUID
	Email   string
	Role    Role
	Profile *Profile
}

// IsAdmin reports whether the identity may edit the catalog.
func (i Identity) IsAdmin() bool {
	return i.Role.IsAdmin()
}

// ResolveIdentity derives identity, role, and profile from a session.
// The role is admin only when the hint says so; anything else is a student.
// Caching is left to the caller's session scope.
func ResolveIdentity(session Session, user *AuthUser, profile *Profile) Identity {
	id := Identity{
		UserID:  session.UserID,
		Role:    RoleStudent,
		Profile: profile,
	}
	if user == nil || user.ID != session.UserID {
		return id
	}
	id.Email = user.Email
	if strings.EqualFold(strings.TrimSpace(user.RoleHint), string(RoleAdmin)) {
		id.Role = RoleAdmin
	}
	return id
}
