package auth

import "strings"

const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"

	MethodTrustedHeader = "trusted_header"
	MethodAnonymous     = "anonymous"
)

type Principal struct {
	Email  string
	Role   string // "admin" or "viewer"
	Method string // "trusted_header" or "anonymous"
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanEditLayouts reports whether the principal may see and save raw layouts.
func (p Principal) CanEditLayouts() bool {
	return p.IsAdmin()
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeRole maps a free-form role to admin or viewer. Anything that is
// not recognisably admin is treated as a viewer.
func NormalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleAdmin, "administrator":
		return RoleAdmin
	default:
		return RoleViewer
	}
}
