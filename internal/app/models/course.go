package models

import (
	"fmt"
	"time"
)

// DefaultRankLimit is the number of preference slots a new course offers
const DefaultRankLimit = 3

// Year is a deduplicated academic year shared by courses
type Year struct {
	ID   int64 `json:"id"`
	Year int   `json:"year"`
}

// CourseConfig holds per-course settings
type CourseConfig struct {
	RankLimit int     `json:"rankLimit"`
	MinGPA    float64 `json:"minGpa"`
}

// DefaultCourseConfig returns a fresh configuration
func DefaultCourseConfig() CourseConfig {
	return CourseConfig{RankLimit: DefaultRankLimit}
}

// Course is a year-scoped cohort joined with a shared PIN
type Course struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	PinHash   string       `json:"-"`
	YearID    int64        `json:"yearId"`
	Year      int          `json:"year"`
	Config    CourseConfig `json:"config"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// SecretChecker verifies a raw secret against a stored hash
type SecretChecker interface {
	Check(hash, raw string) bool
}

// AdminGroupName is the name of the course's admin group, derived from its id
func (c *Course) AdminGroupName() string {
	return fmt.Sprintf("admin_of_course_%d", c.ID)
}

// CheckPassword reports whether raw matches the course PIN. A wrong PIN is not an error.
func (c *Course) CheckPassword(checker SecretChecker, raw string) bool {
	if c == nil || checker == nil {
		return false
	}
	return checker.Check(c.PinHash, raw)
}
