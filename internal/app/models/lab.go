package models

// Lab is a sub-group of a course that students rank
type Lab struct {
	ID       int64  `json:"id"`
	CourseID int64  `json:"courseId"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// Rank is one entry of a user's preference list; Order is zero-based
type Rank struct {
	ID       int64 `json:"id"`
	UserID   int64 `json:"userId"`
	CourseID int64 `json:"courseId"`
	LabID    int64 `json:"labId"`
	Order    int   `json:"order"`
}

// LabRanker is a user who ranked a lab at a given position
type LabRanker struct {
	Order int
	User  *User
}

// LabDetail is a lab with the users who ranked it, one slot per preference position
type LabDetail struct {
	Lab     *Lab      `json:"lab"`
	RankSet [][]*User `json:"rankSet"`
}

// RequirementStatus reports which eligibility requirements a user meets in a course
type RequirementStatus struct {
	Member        bool `json:"member"`
	CourseAdmin   bool `json:"courseAdmin"`
	GPA           bool `json:"gpa"`
	ScreenName    bool `json:"screenName"`
	RankSubmitted bool `json:"rankSubmitted"`
}
