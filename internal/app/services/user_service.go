package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/app/repositories"
	"github.com/yigit/saffron/internal/pkg/apperrors"
	pkgAuth "github.com/yigit/saffron/internal/pkg/auth"
	"github.com/yigit/saffron/internal/pkg/validation"
)

// NewUser is the input of Register
type NewUser struct {
	Username   string
	Password   string
	ScreenName *string
	GPA        *float64
}

// ProfileUpdate carries the optional profile changes. A pointer to "" clears the screen name.
type ProfileUpdate struct {
	ScreenName *string
	GPA        *float64
}

// UserService defines the interface for user operations
type UserService interface {
	Register(ctx context.Context, input NewUser) (*models.User, error)
	CreateSuperuser(ctx context.Context, username, password string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User, update ProfileUpdate) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

// userServiceImpl implements UserService
type userServiceImpl struct {
	users       repositories.UserRepository
	hasher      pkgAuth.Hasher
	emailDomain string
	logger      zerolog.Logger
}

// NewUserService creates a new UserService
func NewUserService(users repositories.UserRepository, hasher pkgAuth.Hasher, emailDomain string, logger zerolog.Logger) UserService {
	return &userServiceImpl{
		users:       users,
		hasher:      hasher,
		emailDomain: emailDomain,
		logger:      logger,
	}
}

func validateProfile(screenName *string, gpa *float64, fields map[string]interface{}) {
	if screenName != nil && len(strings.TrimSpace(*screenName)) > validation.NameMaxLength {
		fields["screenName"] = fmt.Sprintf("screenName must be at most %d characters", validation.NameMaxLength)
	}
	if gpa != nil && !validation.IsValidGPA(*gpa) {
		fields["gpa"] = "gpa must be between 0 and 4"
	}
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Register creates an active student account. The email is derived from the username.
func (s *userServiceImpl) Register(ctx context.Context, input NewUser) (*models.User, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	s.logger.Debug().Str("username", username).Msg("Registering user")

	fields := map[string]interface{}{}
	if !validation.IsStudentNumber(username) {
		fields["username"] = "username must be a student number such as b1234567"
	}
	if len(input.Password) < validation.PasswordMinLength {
		fields["password"] = fmt.Sprintf("password must be at least %d characters", validation.PasswordMinLength)
	}
	validateProfile(input.ScreenName, input.GPA, fields)
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("invalid registration", fields)
	}

	return s.create(ctx, &models.User{
		Username:   username,
		Email:      models.StudentEmail(username, s.emailDomain),
		IsActive:   true,
		ScreenName: trimmedOrNil(input.ScreenName),
		GPA:        input.GPA,
	}, input.Password)
}

// CreateSuperuser creates a staff superuser. The username is not held to the student pattern.
func (s *userServiceImpl) CreateSuperuser(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	s.logger.Debug().Str("username", username).Msg("Creating superuser")

	fields := map[string]interface{}{}
	if username == "" {
		fields["username"] = "username is required"
	}
	if len(password) < validation.PasswordMinLength {
		fields["password"] = fmt.Sprintf("password must be at least %d characters", validation.PasswordMinLength)
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("invalid superuser", fields)
	}

	return s.create(ctx, &models.User{
		Username:    username,
		Email:       models.StudentEmail(username, s.emailDomain),
		IsActive:    true,
		IsStaff:     true,
		IsSuperuser: true,
	}, password)
}

func (s *userServiceImpl) create(ctx context.Context, user *models.User, password string) (*models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, apperrors.ErrConflict) {
			s.logger.Error().Err(err).Str("username", user.Username).Msg("Failed to create user")
		}
		return nil, err
	}

	s.logger.Info().Int64("userID", user.ID).Str("username", user.Username).Msg("User created")
	return user, nil
}

// GetByID retrieves a user by ID
func (s *userServiceImpl) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// GetByUsername retrieves a user by username
func (s *userServiceImpl) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.users.GetByUsername(ctx, strings.TrimSpace(username))
}

// UpdateProfile sets the screen name and GPA the eligibility requirements look at
func (s *userServiceImpl) UpdateProfile(ctx context.Context, user *models.User, update ProfileUpdate) (*models.User, error) {
	s.logger.Debug().Int64("userID", user.ID).Msg("Updating profile")

	fields := map[string]interface{}{}
	validateProfile(update.ScreenName, update.GPA, fields)
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("invalid profile", fields)
	}

	updated := *user
	if update.ScreenName != nil {
		updated.ScreenName = trimmedOrNil(update.ScreenName)
	}
	if update.GPA != nil {
		gpa := *update.GPA
		updated.GPA = &gpa
	}

	if err := s.users.Update(ctx, &updated); err != nil {
		if !errors.Is(err, apperrors.ErrResourceNotFound) {
			s.logger.Error().Err(err).Int64("userID", user.ID).Msg("Failed to update profile")
		}
		return nil, err
	}
	return &updated, nil
}

// Authenticate checks a username and password pair. Unknown users and wrong passwords
// are indistinguishable to the caller.
func (s *userServiceImpl) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	s.logger.Debug().Str("username", username).Msg("Authenticating user")

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Msg("Failed to load user for authentication")
		return nil, fmt.Errorf("error authenticating: %w", err)
	}
	if !s.hasher.Check(user.PasswordHash, password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}
	return user, nil
}
