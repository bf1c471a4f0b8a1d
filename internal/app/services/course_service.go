package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/saffron/internal/app/auth"
	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/app/repositories"
	"github.com/yigit/saffron/internal/pkg/apperrors"
	pkgAuth "github.com/yigit/saffron/internal/pkg/auth"
	"github.com/yigit/saffron/internal/pkg/helpers"
	"github.com/yigit/saffron/internal/pkg/validation"
)

// NewCourse is the input of CreateCourse. Year 0 means the current year; nil config fields keep defaults.
type NewCourse struct {
	Name      string
	PIN       string
	Year      int
	RankLimit *int
	MinGPA    *float64
}

// CourseUpdate carries the optional changes of UpdateCourse
type CourseUpdate struct {
	Name      *string
	RankLimit *int
	MinGPA    *float64
}

// CourseService defines the course aggregate operations. Methods taking an actor check
// the matching policy first; the others trust their caller.
type CourseService interface {
	CreateCourse(ctx context.Context, input NewCourse) (*models.Course, error)
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	ListCourses(ctx context.Context, filter repositories.CourseFilter) ([]*models.Course, int64, error)
	CheckPIN(course *models.Course, raw string) bool
	SetPIN(ctx context.Context, course *models.Course, raw string) error
	RenameCourse(ctx context.Context, course *models.Course, name string) error
	Join(ctx context.Context, course *models.Course, user *models.User, raw string) (bool, error)
	Leave(ctx context.Context, course *models.Course, user *models.User) error
	RegisterAsAdmin(ctx context.Context, course *models.Course, user *models.User) error
	UnregisterFromAdmin(ctx context.Context, course *models.Course, user *models.User) error
	DeleteCourse(ctx context.Context, course *models.Course) error
	Role(ctx context.Context, course *models.Course, user *models.User) (models.MembershipRole, error)

	CreateCourseAs(ctx context.Context, actor *models.User, input NewCourse) (*models.Course, error)
	UpdateCourse(ctx context.Context, actor *models.User, course *models.Course, update CourseUpdate) error
	ChangePIN(ctx context.Context, actor *models.User, course *models.Course, raw string) error
	RemoveCourse(ctx context.Context, actor *models.User, course *models.Course) error
	PromoteMember(ctx context.Context, actor *models.User, course *models.Course, userID int64) (*models.User, error)
	DemoteMember(ctx context.Context, actor *models.User, course *models.Course, userID int64) error
	ListMembers(ctx context.Context, actor *models.User, course *models.Course, role models.MembershipRole) ([]*models.Member, error)
	RequirementStatus(ctx context.Context, actor *models.User, course *models.Course) (*models.RequirementStatus, error)
}

// courseServiceImpl implements CourseService
type courseServiceImpl struct {
	courses          repositories.CourseRepository
	memberships      repositories.MembershipRepository
	users            repositories.UserRepository
	hasher           pkgAuth.Hasher
	authz            *auth.AuthorizationService
	defaultRankLimit int
	now              helpers.Clock
	logger           zerolog.Logger
}

// CourseServiceOptions configures NewCourseService
type CourseServiceOptions struct {
	DefaultRankLimit int
	Clock            helpers.Clock
}

// NewCourseService creates a new CourseService
func NewCourseService(
	repos *repositories.Repositories,
	hasher pkgAuth.Hasher,
	authz *auth.AuthorizationService,
	opts CourseServiceOptions,
	logger zerolog.Logger,
) CourseService {
	if opts.DefaultRankLimit < 1 {
		opts.DefaultRankLimit = models.DefaultRankLimit
	}
	if opts.Clock == nil {
		opts.Clock = helpers.SystemClock
	}
	return &courseServiceImpl{
		courses:          repos.Courses,
		memberships:      repos.Memberships,
		users:            repos.Users,
		hasher:           hasher,
		authz:            authz,
		defaultRankLimit: opts.DefaultRankLimit,
		now:              opts.Clock,
		logger:           logger,
	}
}

func validateCourseName(name string, fields map[string]interface{}) string {
	name = strings.TrimSpace(name)
	switch {
	case len(name) < validation.NameMinLength:
		fields["name"] = "name is required"
	case len(name) > validation.NameMaxLength:
		fields["name"] = fmt.Sprintf("name must be at most %d characters", validation.NameMaxLength)
	}
	return name
}

func validateConfig(rankLimit *int, minGPA *float64, fields map[string]interface{}) {
	if rankLimit != nil && *rankLimit < 1 {
		fields["rankLimit"] = "rankLimit must be at least 1"
	}
	if minGPA != nil && !validation.IsValidGPA(*minGPA) {
		fields["minGpa"] = "minGpa must be between 0 and 4"
	}
}

// CreateCourse hashes the PIN, resolves the year and persists the course with a fresh config
func (s *courseServiceImpl) CreateCourse(ctx context.Context, input NewCourse) (*models.Course, error) {
	s.logger.Debug().Str("name", input.Name).Int("year", input.Year).Msg("Creating course")

	fields := map[string]interface{}{}
	name := validateCourseName(input.Name, fields)
	if input.PIN == "" {
		fields["pin"] = "pin is required"
	}
	validateConfig(input.RankLimit, input.MinGPA, fields)
	if input.Year < 0 {
		fields["year"] = "year must be positive"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("invalid course", fields)
	}

	year := input.Year
	if year == 0 {
		year = s.now().Year()
	}

	config := models.DefaultCourseConfig()
	config.RankLimit = s.defaultRankLimit
	if input.RankLimit != nil {
		config.RankLimit = *input.RankLimit
	}
	if input.MinGPA != nil {
		config.MinGPA = *input.MinGPA
	}

	pinHash, err := s.hasher.Hash(input.PIN)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash course PIN")
		return nil, fmt.Errorf("error hashing PIN: %w", err)
	}

	course := &models.Course{
		Name:    name,
		PinHash: pinHash,
		Year:    year,
		Config:  config,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		if !errors.Is(err, apperrors.ErrDuplicateCourse) {
			s.logger.Error().Err(err).Str("name", name).Int("year", year).Msg("Failed to create course")
		}
		return nil, err
	}

	s.logger.Info().Int64("courseID", course.ID).Str("name", name).Int("year", year).Msg("Course created")
	return course, nil
}

// GetCourse retrieves a course by ID
func (s *courseServiceImpl) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	return s.courses.GetByID(ctx, id)
}

// ListCourses returns a page of courses and the total count
func (s *courseServiceImpl) ListCourses(ctx context.Context, filter repositories.CourseFilter) ([]*models.Course, int64, error) {
	s.logger.Debug().Interface("filter", filter).Msg("Listing courses")
	return s.courses.List(ctx, filter)
}

// CheckPIN verifies raw against the stored hash; a wrong PIN returns false
func (s *courseServiceImpl) CheckPIN(course *models.Course, raw string) bool {
	return course.CheckPassword(s.hasher, raw)
}

// SetPIN replaces the PIN hash. Existing members keep their membership.
func (s *courseServiceImpl) SetPIN(ctx context.Context, course *models.Course, raw string) error {
	s.logger.Debug().Int64("courseID", course.ID).Msg("Setting course PIN")

	if raw == "" {
		return apperrors.NewValidationError("invalid PIN", map[string]interface{}{"pin": "pin is required"})
	}

	hash, err := s.hasher.Hash(raw)
	if err != nil {
		s.logger.Error().Err(err).Int64("courseID", course.ID).Msg("Failed to hash course PIN")
		return fmt.Errorf("error hashing PIN: %w", err)
	}

	previous := course.PinHash
	course.PinHash = hash
	if err := s.courses.Update(ctx, course); err != nil {
		course.PinHash = previous
		return err
	}
	return nil
}

// RenameCourse changes the name. AdminGroupName derives from the id and is unaffected.
func (s *courseServiceImpl) RenameCourse(ctx context.Context, course *models.Course, name string) error {
	s.logger.Debug().Int64("courseID", course.ID).Str("name", name).Msg("Renaming course")

	fields := map[string]interface{}{}
	name = validateCourseName(name, fields)
	if len(fields) > 0 {
		return apperrors.NewValidationError("invalid course name", fields)
	}

	previous := course.Name
	course.Name = name
	if err := s.courses.Update(ctx, course); err != nil {
		course.Name = previous
		return err
	}
	return nil
}

// Join adds user to the course if raw is the current PIN. A wrong PIN yields (false, nil);
// joining twice yields ErrAlreadyJoined.
func (s *courseServiceImpl) Join(ctx context.Context, course *models.Course, user *models.User, raw string) (bool, error) {
	if user == nil {
		return false, apperrors.ErrUnauthenticated
	}
	s.logger.Debug().Int64("courseID", course.ID).Int64("userID", user.ID).Msg("User joining course")

	if !s.CheckPIN(course, raw) {
		return false, nil
	}

	if err := s.memberships.Add(ctx, course.ID, user.ID); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyJoined) {
			return false, err
		}
		s.logger.Error().Err(err).Int64("courseID", course.ID).Int64("userID", user.ID).Msg("Failed to add course member")
		return false, fmt.Errorf("error joining course: %w", err)
	}
	return true, nil
}

// Leave removes the membership, any admin status and the user's ranks for the course
func (s *courseServiceImpl) Leave(ctx context.Context, course *models.Course, user *models.User) error {
	if user == nil {
		return apperrors.ErrUnauthenticated
	}
	s.logger.Debug().Int64("courseID", course.ID).Int64("userID", user.ID).Msg("User leaving course")

	if err := s.memberships.Remove(ctx, course.ID, user.ID); err != nil {
		if errors.Is(err, apperrors.ErrNotJoined) {
			return err
		}
		s.logger.Error().Err(err).Int64("courseID", course.ID).Int64("userID", user.ID).Msg("Failed to remove course member")
		return fmt.Errorf("error leaving course: %w", err)
	}
	return nil
}

// RegisterAsAdmin promotes a member. Promoting an admin again is a no-op.
func (s *courseServiceImpl) RegisterAsAdmin(ctx context.Context, course *models.Course, user *models.User) error {
	s.logger.Debug().Int64("courseID", course.ID).Int64("userID", user.ID).Msg("Registering course admin")

	if err := s.memberships.Promote(ctx, course.ID, user.ID); err != nil {
		if errors.Is(err, apperrors.ErrNotJoined) {
			return err
		}
		s.logger.Error().Err(err).Int64("courseID", course.ID).Int64("userID", user.ID).Msg("Failed to promote member")
		return fmt.Errorf("error registering admin: %w", err)
	}
	return nil
}

// UnregisterFromAdmin demotes an admin back to member
func (s *courseServiceImpl) UnregisterFromAdmin(ctx context.Context, course *models.Course, user *models.User) error {
	s.logger.Debug().Int64("courseID", course.ID).Int64("userID", user.ID).Msg("Unregistering course admin")

	if err := s.memberships.Demote(ctx, course.ID, user.ID); err != nil {
		if errors.Is(err, apperrors.ErrNotAdmin) {
			return err
		}
		s.logger.Error().Err(err).Int64("courseID", course.ID).Int64("userID", user.ID).Msg("Failed to demote admin")
		return fmt.Errorf("error unregistering admin: %w", err)
	}
	return nil
}

// DeleteCourse removes the course with its ranks, labs and memberships
func (s *courseServiceImpl) DeleteCourse(ctx context.Context, course *models.Course) error {
	s.logger.Debug().Int64("courseID", course.ID).Msg("Deleting course")

	if err := s.courses.Delete(ctx, course.ID); err != nil {
		if !errors.Is(err, apperrors.ErrResourceNotFound) {
			s.logger.Error().Err(err).Int64("courseID", course.ID).Msg("Failed to delete course")
		}
		return err
	}
	s.logger.Info().Int64("courseID", course.ID).Msg("Course deleted")
	return nil
}

// Role returns the user's state in the course
func (s *courseServiceImpl) Role(ctx context.Context, course *models.Course, user *models.User) (models.MembershipRole, error) {
	return s.memberships.Role(ctx, course.ID, user.ID)
}

// CreateCourseAs creates a course on behalf of a global admin
func (s *courseServiceImpl) CreateCourseAs(ctx context.Context, actor *models.User, input NewCourse) (*models.Course, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbiddenError("only staff can create courses")
	}
	return s.CreateCourse(ctx, input)
}

// UpdateCourse applies a rename and config changes in one write
func (s *courseServiceImpl) UpdateCourse(ctx context.Context, actor *models.User, course *models.Course, update CourseUpdate) error {
	if err := s.authz.Authorize(ctx, auth.CanManageCourse, actor, course, nil); err != nil {
		return err
	}

	fields := map[string]interface{}{}
	updated := *course
	if update.Name != nil {
		updated.Name = validateCourseName(*update.Name, fields)
	}
	validateConfig(update.RankLimit, update.MinGPA, fields)
	if len(fields) > 0 {
		return apperrors.NewValidationError("invalid course", fields)
	}
	if update.RankLimit != nil {
		updated.Config.RankLimit = *update.RankLimit
	}
	if update.MinGPA != nil {
		updated.Config.MinGPA = *update.MinGPA
	}

	if err := s.courses.Update(ctx, &updated); err != nil {
		return err
	}
	*course = updated
	return nil
}

// ChangePIN sets a new PIN on behalf of a course manager
func (s *courseServiceImpl) ChangePIN(ctx context.Context, actor *models.User, course *models.Course, raw string) error {
	if err := s.authz.Authorize(ctx, auth.CanManageCourse, actor, course, nil); err != nil {
		return err
	}
	return s.SetPIN(ctx, course, raw)
}

// RemoveCourse deletes the course on behalf of a course manager
func (s *courseServiceImpl) RemoveCourse(ctx context.Context, actor *models.User, course *models.Course) error {
	if err := s.authz.Authorize(ctx, auth.CanManageCourse, actor, course, nil); err != nil {
		return err
	}
	return s.DeleteCourse(ctx, course)
}

// memberOf loads userID and its role, reporting non-members as not found
func (s *courseServiceImpl) memberOf(ctx context.Context, course *models.Course, userID int64) (*models.User, models.MembershipRole, error) {
	notMember := apperrors.NewResourceNotFoundError("the user does not exist or has not joined this course")

	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, models.RoleNone, notMember
		}
		return nil, models.RoleNone, err
	}
	role, err := s.memberships.Role(ctx, course.ID, target.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("courseID", course.ID).Int64("userID", userID).Msg("Failed to load membership")
		return nil, models.RoleNone, fmt.Errorf("error loading membership: %w", err)
	}
	if !role.IsMember() {
		return nil, models.RoleNone, notMember
	}
	return target, role, nil
}

// PromoteMember makes the member userID a course admin. Unlike RegisterAsAdmin, promoting
// an existing admin is rejected.
func (s *courseServiceImpl) PromoteMember(ctx context.Context, actor *models.User, course *models.Course, userID int64) (*models.User, error) {
	if err := s.authz.Authorize(ctx, auth.CanManageCourse, actor, course, nil); err != nil {
		return nil, err
	}

	target, role, err := s.memberOf(ctx, course, userID)
	if err != nil {
		return nil, err
	}
	if role.IsAdmin() {
		return nil, apperrors.NewBadRequestError("this user is already an admin of the course")
	}
	if err := s.RegisterAsAdmin(ctx, course, target); err != nil {
		return nil, err
	}
	return target, nil
}

// DemoteMember removes userID from the course admins. Admins cannot demote themselves.
func (s *courseServiceImpl) DemoteMember(ctx context.Context, actor *models.User, course *models.Course, userID int64) error {
	if err := s.authz.Authorize(ctx, auth.CanManageCourse, actor, course, nil); err != nil {
		return err
	}

	target, _, err := s.memberOf(ctx, course, userID)
	if err != nil {
		return err
	}
	if target.ID == actor.ID {
		return apperrors.NewBadRequestError("you cannot remove yourself from the course admins")
	}
	return s.UnregisterFromAdmin(ctx, course, target)
}

// ListMembers lists the course roster, optionally filtered to one role
func (s *courseServiceImpl) ListMembers(ctx context.Context, actor *models.User, course *models.Course, role models.MembershipRole) ([]*models.Member, error) {
	if err := s.authz.Authorize(ctx, auth.CanViewRoster, actor, course, nil); err != nil {
		return nil, err
	}
	members, err := s.memberships.List(ctx, course.ID, role)
	if err != nil {
		s.logger.Error().Err(err).Int64("courseID", course.ID).Msg("Failed to list course members")
		return nil, fmt.Errorf("error listing members: %w", err)
	}
	return members, nil
}

// RequirementStatus reports which eligibility requirements actor meets in course
func (s *courseServiceImpl) RequirementStatus(ctx context.Context, actor *models.User, course *models.Course) (*models.RequirementStatus, error) {
	return s.authz.RequirementStatus(ctx, actor, course)
}
