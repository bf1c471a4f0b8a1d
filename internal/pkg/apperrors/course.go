package apperrors

import (
	"errors"
	"fmt"
)

// Course membership
var (
	ErrDuplicateCourse = errors.New("course with this name already exists for the year")
	ErrAlreadyJoined   = errors.New("user has already joined the course")
	ErrNotJoined       = errors.New("user has not joined the course")
	ErrNotAdmin        = errors.New("user is not an admin of the course")
)

// Rank submission
var (
	ErrDuplicateRank = errors.New("the same lab appears more than once")
	ErrLimitExceeded = errors.New("too many ranks submitted")
)

// DuplicateCourse reports a (name, year) collision
func DuplicateCourse(name string, year int) error {
	return NewCustomError(ErrDuplicateCourse, fmt.Sprintf("course %q already exists for year %d", name, year)).
		WithDetails(map[string]interface{}{"name": name, "year": year})
}

// DuplicateLab reports a lab name already used in the course
func DuplicateLab(name string) error {
	return NewCustomError(ErrConflict, fmt.Sprintf("lab %q already exists in this course", name)).
		WithDetails(map[string]interface{}{"name": name})
}

// RankLimitExceeded reports a submission longer than the course allows
func RankLimitExceeded(limit, submitted int) error {
	return NewCustomError(ErrLimitExceeded, fmt.Sprintf("at most %d labs can be ranked", limit)).
		WithDetails(map[string]interface{}{"limit": limit, "submitted": submitted})
}

// DuplicateRanks reports lab ids listed more than once in a submission
func DuplicateRanks(labIDs []int64) error {
	return NewCustomError(ErrDuplicateRank, "each lab can be ranked only once").
		WithDetails(map[string]interface{}{"labIds": labIDs})
}

// UnknownLabs reports lab ids that are not labs of the course
func UnknownLabs(labIDs []int64) error {
	return NewValidationError("labs must belong to the course", map[string]interface{}{"labIds": labIDs})
}
