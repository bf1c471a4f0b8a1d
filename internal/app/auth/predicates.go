package auth

import (
	"context"

	"github.com/yigit/saffron/internal/app/models"
)

// FactSource supplies the stored facts predicates depend on
type FactSource interface {
	Role(ctx context.Context, courseID, userID int64) (models.MembershipRole, error)
	HasSubmitted(ctx context.Context, userID, courseID int64) (bool, error)
}

// Evaluation is one (user, course, lab) subject under test. Stored facts are loaded
// at most once per evaluation.
type Evaluation struct {
	User   *models.User
	Course *models.Course
	Lab    *models.Lab

	facts     FactSource
	role      *models.MembershipRole
	submitted *bool
}

// NewEvaluation creates an evaluation of user acting on course (and optionally lab)
func NewEvaluation(facts FactSource, user *models.User, course *models.Course, lab *models.Lab) *Evaluation {
	return &Evaluation{User: user, Course: course, Lab: lab, facts: facts}
}

// Role returns the user's membership role in the course
func (e *Evaluation) Role(ctx context.Context) (models.MembershipRole, error) {
	if e.role != nil {
		return *e.role, nil
	}
	if e.User == nil || e.Course == nil {
		return models.RoleNone, nil
	}
	role, err := e.facts.Role(ctx, e.Course.ID, e.User.ID)
	if err != nil {
		return models.RoleNone, err
	}
	e.role = &role
	return role, nil
}

// RankSubmitted reports whether the user has a non-empty submission for the course
func (e *Evaluation) RankSubmitted(ctx context.Context) (bool, error) {
	if e.submitted != nil {
		return *e.submitted, nil
	}
	if e.User == nil || e.Course == nil {
		return false, nil
	}
	ok, err := e.facts.HasSubmitted(ctx, e.User.ID, e.Course.ID)
	if err != nil {
		return false, err
	}
	e.submitted = &ok
	return ok, nil
}

// Predicate is a boolean gate over an evaluation
type Predicate func(ctx context.Context, e *Evaluation) (bool, error)

// All is true when every predicate is; evaluation stops at the first false or error
func All(preds ...Predicate) Predicate {
	return func(ctx context.Context, e *Evaluation) (bool, error) {
		for _, p := range preds {
			ok, err := p(ctx, e)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}

// Any is true when some predicate is; evaluation stops at the first true or error
func Any(preds ...Predicate) Predicate {
	return func(ctx context.Context, e *Evaluation) (bool, error) {
		for _, p := range preds {
			ok, err := p(ctx, e)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

// IsCourseMember holds when the user belongs to the course
func IsCourseMember(ctx context.Context, e *Evaluation) (bool, error) {
	role, err := e.Role(ctx)
	return role.IsMember(), err
}

// IsCourseAdmin holds when the user is in the course's admin group
func IsCourseAdmin(ctx context.Context, e *Evaluation) (bool, error) {
	role, err := e.Role(ctx)
	return role.IsAdmin(), err
}

// IsAdmin holds for staff and superusers regardless of course
func IsAdmin(_ context.Context, e *Evaluation) (bool, error) {
	return e.User.IsAdmin(), nil
}

// GPARequirement holds when a GPA is set and reaches the course threshold
func GPARequirement(_ context.Context, e *Evaluation) (bool, error) {
	if !e.User.HasGPA() {
		return false, nil
	}
	threshold := 0.0
	if e.Course != nil {
		threshold = e.Course.Config.MinGPA
	}
	return *e.User.GPA >= threshold, nil
}

// ScreenNameRequirement holds when a non-blank screen name is set
func ScreenNameRequirement(_ context.Context, e *Evaluation) (bool, error) {
	return e.User.HasScreenName(), nil
}

// RankSubmitted holds once the user has submitted at least one rank for the course
func RankSubmitted(ctx context.Context, e *Evaluation) (bool, error) {
	return e.RankSubmitted(ctx)
}

// Policy is a named rule guarding an operation
type Policy struct {
	Name string
	Rule Predicate
}

// Policies for the gated operations
var (
	CanViewLabs = Policy{
		Name: "view the labs of this course",
		Rule: Any(IsCourseMember, IsAdmin),
	}
	CanViewLabDetail = Policy{
		Name: "view this lab",
		Rule: Any(All(IsCourseMember, GPARequirement, ScreenNameRequirement, RankSubmitted), IsAdmin),
	}
	CanManageCourse = Policy{
		Name: "manage this course",
		Rule: Any(All(IsCourseMember, IsCourseAdmin), IsAdmin),
	}
	CanViewRoster = Policy{
		Name: "view the members of this course",
		Rule: Any(IsCourseMember, IsAdmin),
	}
	CanSubmitRanks = Policy{
		Name: "submit ranks for this course",
		Rule: IsCourseMember,
	}
)
