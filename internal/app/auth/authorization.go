package auth

import (
	"context"
	"fmt"

	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/app/repositories"
	"github.com/yigit/saffron/internal/pkg/apperrors"
	"github.com/yigit/saffron/internal/pkg/logger"
)

// repoFacts reads predicate facts from the repositories
type repoFacts struct {
	memberships repositories.MembershipRepository
	ranks       repositories.RankRepository
}

func (f repoFacts) Role(ctx context.Context, courseID, userID int64) (models.MembershipRole, error) {
	return f.memberships.Role(ctx, courseID, userID)
}

func (f repoFacts) HasSubmitted(ctx context.Context, userID, courseID int64) (bool, error) {
	return f.ranks.HasSubmitted(ctx, userID, courseID)
}

// AuthorizationService evaluates policies for authenticated users
type AuthorizationService struct {
	facts FactSource
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(memberships repositories.MembershipRepository, ranks repositories.RankRepository) *AuthorizationService {
	return &AuthorizationService{facts: repoFacts{memberships: memberships, ranks: ranks}}
}

// NewAuthorizationServiceWithFacts creates an AuthorizationService over an arbitrary fact source
func NewAuthorizationServiceWithFacts(facts FactSource) *AuthorizationService {
	return &AuthorizationService{facts: facts}
}

// Evaluate reports whether policy holds for user on course and lab
func (s *AuthorizationService) Evaluate(ctx context.Context, policy Policy, user *models.User, course *models.Course, lab *models.Lab) (bool, error) {
	if user == nil {
		return false, apperrors.ErrUnauthenticated
	}
	ok, err := policy.Rule(ctx, NewEvaluation(s.facts, user, course, lab))
	if err != nil {
		logger.Error().Err(err).Int64("userID", user.ID).Str("policy", policy.Name).Msg("Error evaluating policy")
		return false, fmt.Errorf("error evaluating policy: %w", err)
	}
	return ok, nil
}

// Authorize returns ErrPermissionDenied when policy does not hold
func (s *AuthorizationService) Authorize(ctx context.Context, policy Policy, user *models.User, course *models.Course, lab *models.Lab) error {
	ok, err := s.Evaluate(ctx, policy, user, course, lab)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewForbiddenError("you are not allowed to " + policy.Name)
	}
	return nil
}

// RequirementStatus reports each eligibility requirement for user in course
func (s *AuthorizationService) RequirementStatus(ctx context.Context, user *models.User, course *models.Course) (*models.RequirementStatus, error) {
	if user == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	e := NewEvaluation(s.facts, user, course, nil)
	status := &models.RequirementStatus{}

	checks := []struct {
		dst  *bool
		pred Predicate
	}{
		{&status.Member, IsCourseMember},
		{&status.CourseAdmin, IsCourseAdmin},
		{&status.GPA, GPARequirement},
		{&status.ScreenName, ScreenNameRequirement},
		{&status.RankSubmitted, RankSubmitted},
	}
	for _, c := range checks {
		ok, err := c.pred(ctx, e)
		if err != nil {
			return nil, fmt.Errorf("error checking requirements: %w", err)
		}
		*c.dst = ok
	}
	return status, nil
}

// Role returns the user's role in course
func (s *AuthorizationService) Role(ctx context.Context, user *models.User, course *models.Course) (models.MembershipRole, error) {
	return NewEvaluation(s.facts, user, course, nil).Role(ctx)
}
