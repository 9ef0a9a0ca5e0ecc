package model

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleStudent Role = "STUDENT"
)

// Valid reports whether the role is one of the two known roles. Any other
// value carried in a token is treated as an unauthenticated caller.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

type User struct {
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	StudentID string `json:"studentId,omitempty"`
}

type Student struct {
	StudentID string   `json:"studentId"`
	Courses   []string `json:"courses"`
}

// Enrollment is a derived (studentId, courseId) reporting row; it is computed
// from Student.Courses on demand and never stored separately.
type Enrollment struct {
	StudentID string `json:"studentId"`
	CourseID  string `json:"courseId"`
}
