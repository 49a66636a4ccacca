package models

// Caller roles
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// CallerContext is the authenticated identity attached to a request.
// It is resolved once per inbound request from session state, stays
// immutable for the duration of that request, and is never cached
// across requests. A nil UserID means the caller is anonymous.
type CallerContext struct {
	UserID *string `json:"user_id,omitempty"`
	Role   string  `json:"role"`
}

// Anonymous returns the caller context for an unauthenticated request
func Anonymous() CallerContext {
	return CallerContext{Role: RoleCustomer}
}

// Authenticated reports whether the caller has a resolved identity
func (c CallerContext) Authenticated() bool {
	return c.UserID != nil && *c.UserID != ""
}

// IsAdmin reports whether the caller holds the admin role
func (c CallerContext) IsAdmin() bool {
	return c.Authenticated() && c.Role == RoleAdmin
}
