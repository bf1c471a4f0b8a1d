package dto

import "github.com/yigit/saffron/internal/app/models"

// LabRequest is one lab in a create request
type LabRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Capacity int    `json:"capacity" binding:"min=0"`
}

// CreateLabsRequest creates labs in bulk
type CreateLabsRequest struct {
	Labs []LabRequest `json:"labs" binding:"required,min=1,dive"`
}

// UpdateLabRequest changes a lab; omitted fields are kept
type UpdateLabRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=255"`
	Capacity *int    `json:"capacity" binding:"omitempty,min=0"`
}

// LabDetailResponse is a lab with its rankers grouped by preference position
type LabDetailResponse struct {
	Lab     *models.Lab   `json:"lab"`
	RankSet [][]UserBrief `json:"rankSet"`
}

// NewLabDetailResponse converts a lab detail
func NewLabDetailResponse(detail *models.LabDetail) *LabDetailResponse {
	rankSet := make([][]UserBrief, 0, len(detail.RankSet))
	for _, users := range detail.RankSet {
		rankSet = append(rankSet, NewUserBriefs(users))
	}
	return &LabDetailResponse{Lab: detail.Lab, RankSet: rankSet}
}

// SubmitRanksRequest is an ordered preference list; the first lab is the first choice.
// An empty list clears the submission.
type SubmitRanksRequest struct {
	LabIDs []int64 `json:"labIds" binding:"omitempty,dive,min=1"`
}

// RankResponse is one entry of a preference list
type RankResponse struct {
	Order int         `json:"order"`
	Lab   *models.Lab `json:"lab"`
}

// NewRankResponses numbers ranked labs by position
func NewRankResponses(labs []*models.Lab) []RankResponse {
	out := make([]RankResponse, 0, len(labs))
	for i, l := range labs {
		out = append(out, RankResponse{Order: i, Lab: l})
	}
	return out
}
