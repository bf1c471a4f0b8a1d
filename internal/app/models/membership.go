package models

import "time"

// MembershipRole is the state of a (course, user) pair
type MembershipRole string

const (
	RoleNone   MembershipRole = ""
	RoleMember MembershipRole = "member"
	RoleAdmin  MembershipRole = "admin"
)

// IsMember reports whether the role includes membership. Admins are members.
func (r MembershipRole) IsMember() bool {
	return r == RoleMember || r == RoleAdmin
}

// IsAdmin reports whether the role is the course admin role
func (r MembershipRole) IsAdmin() bool {
	return r == RoleAdmin
}

// IsValid reports whether r is a stored role
func (r MembershipRole) IsValid() bool {
	return r == RoleMember || r == RoleAdmin
}

// Membership is one course_memberships row
type Membership struct {
	CourseID int64          `json:"courseId"`
	UserID   int64          `json:"userId"`
	Role     MembershipRole `json:"role"`
	JoinedAt time.Time      `json:"joinedAt"`
}

// Member pairs a user with their role in a course
type Member struct {
	User     *User          `json:"user"`
	Role     MembershipRole `json:"role"`
	JoinedAt time.Time      `json:"joinedAt"`
}
