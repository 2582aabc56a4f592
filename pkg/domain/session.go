package domain

// Known session roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Session is the authentication context obtained from the external auth
// provider. The core never creates or destroys sessions, it only reads them.
type Session struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Email  string `json:"email,omitempty"`
}

// IsAdmin reports whether the session carries the admin role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}
