package models

// Actor is the request-scoped identity resolved by the auth middleware and
// passed explicitly into every core operation. Exactly one of FacultyID or
// StudentID is set for the corresponding role; both are empty for admins. An
// Actor is never read from ambient state.
type Actor struct {
	UserID    string
	Role      UserRole
	FacultyID string
	StudentID string
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsFaculty reports whether the actor is a faculty member with a resolved
// profile.
func (a Actor) IsFaculty() bool { return a.Role == RoleFaculty && a.FacultyID != "" }

// IsStudent reports whether the actor is a student with a resolved profile.
func (a Actor) IsStudent() bool { return a.Role == RoleStudent && a.StudentID != "" }
