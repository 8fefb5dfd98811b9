package iam

// Principal represents an authenticated identity with its role resolved at
// authentication time.
//
// This struct is IMMUTABLE after construction. The role is computed once per
// request and never modified, so handlers and services can read it without
// synchronization.
type Principal struct {
	// UserID references the backing users.id (UUID).
	UserID string

	// PrincipalID is the Casbin-ready identifier with type prefix.
	// Example: "user:01890ab3-..."
	PrincipalID string

	// Email is the address the user verified via magic link.
	Email string

	// Name is the display name (optional).
	Name string

	// SessionID references the active session row (sessions.id).
	SessionID string

	// Role is the effective role name, "admin" or "viewer".
	//
	// This is the SOURCE OF TRUTH for authorization decisions. It is looked
	// up from user_roles on every request; a user with no mapping is a
	// viewer.
	Role string
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == "admin"
}
