package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/saffron/internal/app/auth"
	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/app/repositories"
	"github.com/yigit/saffron/internal/pkg/apperrors"
	"github.com/yigit/saffron/internal/pkg/validation"
)

// NewLab is one lab to create
type NewLab struct {
	Name     string
	Capacity int
}

// LabUpdate carries the optional changes of UpdateLab
type LabUpdate struct {
	Name     *string
	Capacity *int
}

// LabService exposes course labs to members and course managers
type LabService interface {
	ListLabs(ctx context.Context, actor *models.User, course *models.Course) ([]*models.Lab, error)
	GetLabDetail(ctx context.Context, actor *models.User, course *models.Course, labID int64) (*models.LabDetail, error)
	CreateLabs(ctx context.Context, actor *models.User, course *models.Course, labs []NewLab) ([]*models.Lab, error)
	UpdateLab(ctx context.Context, actor *models.User, course *models.Course, labID int64, update LabUpdate) (*models.Lab, error)
	DeleteLab(ctx context.Context, actor *models.User, course *models.Course, labID int64) error
}

// labServiceImpl implements LabService
type labServiceImpl struct {
	labs   repositories.LabRepository
	ranks  repositories.RankRepository
	authz  *auth.AuthorizationService
	logger zerolog.Logger
}

// NewLabService creates a new LabService
func NewLabService(repos *repositories.Repositories, authz *auth.AuthorizationService, logger zerolog.Logger) LabService {
	return &labServiceImpl{
		labs:   repos.Labs,
		ranks:  repos.Ranks,
		authz:  authz,
		logger: logger,
	}
}

func validateLab(prefix, name string, capacity int, fields map[string]interface{}) string {
	name = strings.TrimSpace(name)
	if len(name) < validation.NameMinLength {
		fields[prefix+"name"] = "name is required"
	} else if len(name) > validation.NameMaxLength {
		fields[prefix+"name"] = fmt.Sprintf("name must be at most %d characters", validation.NameMaxLength)
	}
	if capacity < 0 {
		fields[prefix+"capacity"] = "capacity must not be negative"
	}
	return name
}

// ListLabs returns the labs of a course
func (s *labServiceImpl) ListLabs(ctx context.Context, actor *models.User, course *models.Course) ([]*models.Lab, error) {
	s.logger.Debug().Int64("courseID", course.ID).Msg("Listing labs")

	if err := s.authz.Authorize(ctx, auth.CanViewLabs, actor, course, nil); err != nil {
		return nil, err
	}
	labs, err := s.labs.ListByCourse(ctx, course.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("courseID", course.ID).Msg("Failed to list labs")
		return nil, fmt.Errorf("error listing labs: %w", err)
	}
	return labs, nil
}

// GetLabDetail returns a lab with its rankers grouped by preference position. Slot i holds
// the users who ranked the lab at order i, so the set has exactly RankLimit slots.
func (s *labServiceImpl) GetLabDetail(ctx context.Context, actor *models.User, course *models.Course, labID int64) (*models.LabDetail, error) {
	s.logger.Debug().Int64("courseID", course.ID).Int64("labID", labID).Msg("Getting lab detail")

	lab, err := s.labs.GetByID(ctx, course.ID, labID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, auth.CanViewLabDetail, actor, course, lab); err != nil {
		return nil, err
	}

	rankers, err := s.ranks.ListRankers(ctx, lab.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("labID", lab.ID).Msg("Failed to list lab rankers")
		return nil, fmt.Errorf("error listing rankers: %w", err)
	}

	rankSet := make([][]*models.User, course.Config.RankLimit)
	for i := range rankSet {
		rankSet[i] = []*models.User{}
	}
	for _, r := range rankers {
		// orders beyond a since-lowered limit are not shown
		if r.Order < 0 || r.Order >= len(rankSet) {
			continue
		}
		rankSet[r.Order] = append(rankSet[r.Order], r.User)
	}

	return &models.LabDetail{Lab: lab, RankSet: rankSet}, nil
}

// CreateLabs adds labs to a course in one batch
func (s *labServiceImpl) CreateLabs(ctx context.Context, actor *models.User, course *models.Course, input []NewLab) ([]*models.Lab, error) {
	s.logger.Debug().Int64("courseID", course.ID).Int("count", len(input)).Msg("Creating labs")

	if err := s.authz.Authorize(ctx, auth.CanManageCourse, actor, course, nil); err != nil {
		return nil, err
	}
	if len(input) == 0 {
		return nil, apperrors.NewValidationError("no labs given", map[string]interface{}{"labs": "at least one lab is required"})
	}

	fields := map[string]interface{}{}
	labs := make([]*models.Lab, 0, len(input))
	for i, in := range input {
		name := validateLab(fmt.Sprintf("labs[%d].", i), in.Name, in.Capacity, fields)
		labs = append(labs, &models.Lab{CourseID: course.ID, Name: name, Capacity: in.Capacity})
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("invalid labs", fields)
	}

	if err := s.labs.CreateMany(ctx, labs); err != nil {
		if !apperrors.Is(err, apperrors.ErrConflict, apperrors.ErrResourceNotFound) {
			s.logger.Error().Err(err).Int64("courseID", course.ID).Msg("Failed to create labs")
		}
		return nil, err
	}

	s.logger.Info().Int64("courseID", course.ID).Int("count", len(labs)).Msg("Labs created")
	return labs, nil
}

// UpdateLab renames a lab or changes its capacity
func (s *labServiceImpl) UpdateLab(ctx context.Context, actor *models.User, course *models.Course, labID int64, update LabUpdate) (*models.Lab, error) {
	s.logger.Debug().Int64("courseID", course.ID).Int64("labID", labID).Msg("Updating lab")

	if err := s.authz.Authorize(ctx, auth.CanManageCourse, actor, course, nil); err != nil {
		return nil, err
	}
	lab, err := s.labs.GetByID(ctx, course.ID, labID)
	if err != nil {
		return nil, err
	}

	name, capacity := lab.Name, lab.Capacity
	if update.Name != nil {
		name = *update.Name
	}
	if update.Capacity != nil {
		capacity = *update.Capacity
	}
	fields := map[string]interface{}{}
	lab.Name = validateLab("", name, capacity, fields)
	lab.Capacity = capacity
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("invalid lab", fields)
	}

	if err := s.labs.Update(ctx, lab); err != nil {
		return nil, err
	}
	return lab, nil
}

// DeleteLab removes a lab and every rank that points at it
func (s *labServiceImpl) DeleteLab(ctx context.Context, actor *models.User, course *models.Course, labID int64) error {
	s.logger.Debug().Int64("courseID", course.ID).Int64("labID", labID).Msg("Deleting lab")

	if err := s.authz.Authorize(ctx, auth.CanManageCourse, actor, course, nil); err != nil {
		return err
	}
	return s.labs.Delete(ctx, course.ID, labID)
}
