package model

// Role is the capability class asserted by the identity provider.
type Role string

const (
	RoleStudent   Role = "student"
	RoleProfessor Role = "professor"
	RoleAdmin     Role = "admin"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID  int64 `json:"user_id"`
	Role    Role  `json:"role"`
	IsStaff bool  `json:"is_staff"`
}

// IsStudent reports whether the caller may take tests.
func (i Identity) IsStudent() bool {
	return i.Role == RoleStudent
}

// CanAuthorTests reports whether the caller may create tests and questions.
// Staff accounts always can.
func (i Identity) CanAuthorTests() bool {
	return i.Role == RoleProfessor || i.IsStaff
}

