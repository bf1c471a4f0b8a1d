package models

import (
	"strings"
	"time"
)

// DefaultStudentEmailDomain is appended to usernames by the default user factory
const DefaultStudentEmailDomain = "edu.kit.ac.jp"

// User represents an account. ScreenName and GPA stay nil until the profile is filled in.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"isActive"`
	IsStaff      bool      `json:"isStaff"`
	IsSuperuser  bool      `json:"isSuperuser"`
	ScreenName   *string   `json:"screenName,omitempty"`
	GPA          *float64  `json:"gpa,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the global staff or superuser capability
func (u *User) IsAdmin() bool {
	return u != nil && (u.IsStaff || u.IsSuperuser)
}

// HasScreenName reports whether a non-blank screen name is set
func (u *User) HasScreenName() bool {
	return u != nil && u.ScreenName != nil && strings.TrimSpace(*u.ScreenName) != ""
}

// HasGPA reports whether a GPA is set
func (u *User) HasGPA() bool {
	return u != nil && u.GPA != nil
}

// StudentEmail derives the institutional address for username
func StudentEmail(username, domain string) string {
	if domain == "" {
		domain = DefaultStudentEmailDomain
	}
	return strings.ToLower(username) + "@" + domain
}
