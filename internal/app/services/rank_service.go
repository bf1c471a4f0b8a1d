package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/saffron/internal/app/auth"
	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/app/repositories"
	"github.com/yigit/saffron/internal/pkg/apperrors"
)

// RankService manages users' lab preference lists
type RankService interface {
	SubmitRanks(ctx context.Context, user *models.User, course *models.Course, labIDs []int64) ([]*models.Lab, error)
	ListRanks(ctx context.Context, user *models.User, course *models.Course) ([]*models.Lab, error)
}

// rankServiceImpl implements RankService
type rankServiceImpl struct {
	labs   repositories.LabRepository
	ranks  repositories.RankRepository
	authz  *auth.AuthorizationService
	logger zerolog.Logger
}

// NewRankService creates a new RankService
func NewRankService(repos *repositories.Repositories, authz *auth.AuthorizationService, logger zerolog.Logger) RankService {
	return &rankServiceImpl{
		labs:   repos.Labs,
		ranks:  repos.Ranks,
		authz:  authz,
		logger: logger,
	}
}

// SubmitRanks replaces the user's preference list for the course. Position i of labIDs
// becomes order i. Nothing changes when the submission is rejected.
func (s *rankServiceImpl) SubmitRanks(ctx context.Context, user *models.User, course *models.Course, labIDs []int64) ([]*models.Lab, error) {
	if err := s.authz.Authorize(ctx, auth.CanSubmitRanks, user, course, nil); err != nil {
		return nil, err
	}
	s.logger.Debug().Int64("userID", user.ID).Int64("courseID", course.ID).Ints64("labIDs", labIDs).Msg("Submitting ranks")

	if len(labIDs) > course.Config.RankLimit {
		return nil, apperrors.RankLimitExceeded(course.Config.RankLimit, len(labIDs))
	}

	seen := make(map[int64]bool, len(labIDs))
	var duplicates []int64
	for _, id := range labIDs {
		if seen[id] {
			duplicates = append(duplicates, id)
		}
		seen[id] = true
	}
	if len(duplicates) > 0 {
		return nil, apperrors.DuplicateRanks(duplicates)
	}

	courseLabs, err := s.labs.ListByCourse(ctx, course.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("courseID", course.ID).Msg("Failed to list course labs")
		return nil, fmt.Errorf("error listing labs: %w", err)
	}
	byID := make(map[int64]*models.Lab, len(courseLabs))
	for _, l := range courseLabs {
		byID[l.ID] = l
	}

	var foreign []int64
	ranked := make([]*models.Lab, 0, len(labIDs))
	for _, id := range labIDs {
		lab, ok := byID[id]
		if !ok {
			foreign = append(foreign, id)
			continue
		}
		ranked = append(ranked, lab)
	}
	if len(foreign) > 0 {
		return nil, apperrors.UnknownLabs(foreign)
	}

	if err := s.ranks.Replace(ctx, user.ID, course.ID, labIDs); err != nil {
		if apperrors.Is(err, apperrors.ErrNotJoined, apperrors.ErrDuplicateRank, apperrors.ErrValidationFailed) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("userID", user.ID).Int64("courseID", course.ID).Msg("Failed to replace ranks")
		return nil, fmt.Errorf("error submitting ranks: %w", err)
	}

	s.logger.Info().Int64("userID", user.ID).Int64("courseID", course.ID).Int("count", len(labIDs)).Msg("Ranks submitted")
	return ranked, nil
}

// ListRanks returns the user's ranked labs in preference order
func (s *rankServiceImpl) ListRanks(ctx context.Context, user *models.User, course *models.Course) ([]*models.Lab, error) {
	if err := s.authz.Authorize(ctx, auth.CanSubmitRanks, user, course, nil); err != nil {
		return nil, err
	}
	s.logger.Debug().Int64("userID", user.ID).Int64("courseID", course.ID).Msg("Listing ranks")

	labs, err := s.ranks.ListLabs(ctx, user.ID, course.ID)
	if err != nil && !errors.Is(err, apperrors.ErrResourceNotFound) {
		s.logger.Error().Err(err).Int64("userID", user.ID).Int64("courseID", course.ID).Msg("Failed to list ranks")
		return nil, fmt.Errorf("error listing ranks: %w", err)
	}
	if labs == nil {
		labs = []*models.Lab{}
	}
	return labs, nil
}
