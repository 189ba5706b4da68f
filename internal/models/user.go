package models

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
)

func (r UserRole) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

type User struct {
	ID       FlexID   `json:"id"`
	Username string   `json:"username"`
	FullName string   `json:"full_name,omitempty"`
	Email    string   `json:"email,omitempty"`
	Role     UserRole `json:"role" validate:"user_role"`
}

// Classroom is the class a user currently works in. Quiz endpoints are
// scoped by its code.
type Classroom struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

type SessionStatusResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	ExpiresInMs *int64 `json:"expiresInMs,omitempty"`
}
