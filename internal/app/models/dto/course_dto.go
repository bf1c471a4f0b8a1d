package dto

import (
	"time"

	"github.com/yigit/saffron/internal/app/models"
)

// CreateCourseRequest represents a new course. Year defaults to the current year.
type CreateCourseRequest struct {
	Name      string   `json:"name" binding:"required,max=255"`
	PIN       string   `json:"pin" binding:"required"`
	Year      int      `json:"year" binding:"omitempty,min=1"`
	RankLimit *int     `json:"rankLimit" binding:"omitempty,min=1"`
	MinGPA    *float64 `json:"minGpa" binding:"omitempty,gpa"`
}

// UpdateCourseRequest renames a course or changes its config
type UpdateCourseRequest struct {
	Name      *string  `json:"name" binding:"omitempty,min=1,max=255"`
	RankLimit *int     `json:"rankLimit" binding:"omitempty,min=1"`
	MinGPA    *float64 `json:"minGpa" binding:"omitempty,gpa"`
}

// SetPINRequest replaces the course PIN
type SetPINRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// JoinCourseRequest carries the PIN a user joins with
type JoinCourseRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// CourseListQuery holds the listing filters
type CourseListQuery struct {
	Year   *int   `form:"year" binding:"omitempty,min=1"`
	Search string `form:"search"`
	Joined bool   `form:"joined"`
}

// CourseResponse is a course as returned by the API
type CourseResponse struct {
	ID             int64               `json:"id"`
	Name           string              `json:"name"`
	Year           int                 `json:"year"`
	AdminGroupName string              `json:"adminGroupName"`
	Config         models.CourseConfig `json:"config"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// NewCourseResponse converts a course model
func NewCourseResponse(course *models.Course) *CourseResponse {
	if course == nil {
		return nil
	}
	return &CourseResponse{
		ID:             course.ID,
		Name:           course.Name,
		Year:           course.Year,
		AdminGroupName: course.AdminGroupName(),
		Config:         course.Config,
		CreatedAt:      course.CreatedAt,
		UpdatedAt:      course.UpdatedAt,
	}
}

// NewCourseResponses converts a slice of courses
func NewCourseResponses(courses []*models.Course) []*CourseResponse {
	out := make([]*CourseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, NewCourseResponse(c))
	}
	return out
}

// MemberResponse is one roster entry
type MemberResponse struct {
	User     UserBrief             `json:"user"`
	Role     models.MembershipRole `json:"role"`
	JoinedAt time.Time             `json:"joinedAt"`
}

// NewMemberResponses converts a roster
func NewMemberResponses(members []*models.Member) []MemberResponse {
	out := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, MemberResponse{
			User:     NewUserBrief(m.User),
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		})
	}
	return out
}

// CourseStatusResponse reports the caller's standing in a course
type CourseStatusResponse struct {
	Role         models.MembershipRole    `json:"role"`
	Requirements models.RequirementStatus `json:"requirements"`
}
