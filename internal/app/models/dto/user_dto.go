package dto

import (
	"time"

	"github.com/yigit/saffron/internal/app/models"
)

// RegisterRequest represents a student registration
type RegisterRequest struct {
	Username   string   `json:"username" binding:"required,student_number"`
	Password   string   `json:"password" binding:"required,min=8"`
	ScreenName *string  `json:"screenName" binding:"omitempty,max=255"`
	GPA        *float64 `json:"gpa" binding:"omitempty,gpa"`
}

// UpdateProfileRequest represents profile update data; omitted fields are kept
type UpdateProfileRequest struct {
	ScreenName *string  `json:"screenName" binding:"omitempty,max=255"`
	GPA        *float64 `json:"gpa" binding:"omitempty,gpa"`
}

// UserResponse is the account as seen by its owner
type UserResponse struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	ScreenName  *string   `json:"screenName"`
	GPA         *float64  `json:"gpa"`
	IsStaff     bool      `json:"isStaff"`
	IsSuperuser bool      `json:"isSuperuser"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UserBrief is the public view of another user
type UserBrief struct {
	ID         int64   `json:"id"`
	Username   string  `json:"username"`
	ScreenName *string `json:"screenName"`
}

// NewUserResponse converts a user model for its owner
func NewUserResponse(user *models.User) *UserResponse {
	if user == nil {
		return nil
	}
	return &UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		ScreenName:  user.ScreenName,
		GPA:         user.GPA,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
		CreatedAt:   user.CreatedAt,
	}
}

// NewUserBrief converts a user model for other users
func NewUserBrief(user *models.User) UserBrief {
	return UserBrief{
		ID:         user.ID,
		Username:   user.Username,
		ScreenName: user.ScreenName,
	}
}

// NewUserBriefs converts a slice of users
func NewUserBriefs(users []*models.User) []UserBrief {
	out := make([]UserBrief, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserBrief(u))
	}
	return out
}
