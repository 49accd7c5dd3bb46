package domain

import "fmt"

// Role is fixed at creation time and never changes afterwards.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

const (
	AdminFullName   = "Админ"
	AdminDepartment = "Администрация"
)

// User represents an actor known to the bot. ID is the messenger account id.
type User struct {
	ID         int64  `json:"id"`
	FullName   string `json:"full_name" validate:"required,max=200"`
	Department string `json:"department" validate:"required,max=100"`
	Role       Role   `json:"role"`
	IsActive   bool   `json:"is_active"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// CanAct reports whether the user may read or mutate anything.
// The admin is always implicitly active.
func (u *User) CanAct() bool {
	if u == nil {
		return false
	}
	if u.Role == RoleAdmin {
		return true
	}
	return u.Role == RoleEmployee && u.IsActive
}

// DisplayName renders "ФИО (Отдел)".
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	return fmt.Sprintf("%s (%s)", u.FullName, u.Department)
}

// EmployeeStats aggregates task counters shown on the employee card.
type EmployeeStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	OnReview int `json:"on_review"`
	Done     int `json:"done"`
}
