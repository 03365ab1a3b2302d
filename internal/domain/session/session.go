// Package session defines the authoritative user session and its lifecycle rules.
package session

import "time"

// Role identifies which part of the marketplace a user may access.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleLister Role = "LISTER"
	RoleRenter Role = "RENTER"
)

// Valid reports whether r is one of the known marketplace roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLister, RoleRenter:
		return true
	}
	return false
}

// DashboardPath returns the landing route for a role after sign-in.
// The admin path is completed by the caller with the current capability segment.
func (r Role) DashboardPath() string {
	switch r {
	case RoleAdmin:
		return "/admin"
	case RoleLister:
		return "/listers/dashboard"
	default:
		return "/renters/dashboard"
	}
}

// Session is the single source of truth for a user's authentication state.
//
// Invariant: RequiresMFA == true implies Token == "" (no full session exists
// until the code verification clears) and SessionToken != "".
type Session struct {
	// Token is the signed access token of a fully established session.
	// Empty while an MFA challenge is pending.
	Token string `json:"token,omitempty"`

	UserID string `json:"userId,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   Role   `json:"role,omitempty"`

	// SessionToken is the transient handle of a pending MFA challenge.
	SessionToken string `json:"sessionToken,omitempty"`
	RequiresMFA  bool   `json:"requiresMfa"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// UserPatch is a shallow patch of the display fields. Nil fields are left untouched.
type UserPatch struct {
	Name  *string
	Email *string
	Role  *Role
}

// SetAuth commits a full session: the MFA fields are cleared in the same
// mutation so the session can never be both established and pending.
func (s *Session) SetAuth(token, userID, email string, role Role, name string) {
	s.Token = token
	s.UserID = userID
	s.Email = email
	s.Role = role
	s.Name = name
	s.SessionToken = ""
	s.RequiresMFA = false
	s.UpdatedAt = time.Now().UTC()
}

// SetMFASession records a pending MFA challenge. Token stays empty until
// verification succeeds.
func (s *Session) SetMFASession(sessionToken, email string) {
	s.Token = ""
	s.SessionToken = sessionToken
	s.Email = email
	s.RequiresMFA = true
	s.UpdatedAt = time.Now().UTC()
}

// ApplyPatch performs a shallow update of the display fields.
func (s *Session) ApplyPatch(p UserPatch) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Email != nil {
		s.Email = *p.Email
	}
	if p.Role != nil {
		s.Role = *p.Role
	}
	s.UpdatedAt = time.Now().UTC()
}

// Clear resets the session to its zero state.
func (s *Session) Clear() {
	*s = Session{UpdatedAt: time.Now().UTC()}
}

// Authenticated reports whether a full session exists.
func (s *Session) Authenticated() bool {
	return s.Token != "" && !s.RequiresMFA
}

// PendingMFA reports whether the session is waiting on code verification.
func (s *Session) PendingMFA() bool {
	return s.RequiresMFA && s.SessionToken != ""
}
