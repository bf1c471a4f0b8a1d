package services

import (
	"github.com/rs/zerolog"
	"github.com/yigit/saffron/internal/app/auth"
	"github.com/yigit/saffron/internal/app/repositories"
	pkgAuth "github.com/yigit/saffron/internal/pkg/auth"
	"github.com/yigit/saffron/internal/pkg/helpers"
)

// Options carries the settings services read from configuration
type Options struct {
	DefaultRankLimit   int
	StudentEmailDomain string
	Clock              helpers.Clock
}

// Services holds every service of the application
type Services struct {
	Users   UserService
	Auth    *AuthService
	Courses CourseService
	Labs    LabService
	Ranks   RankService
	Authz   *auth.AuthorizationService
}

// NewServices wires all services over repos
func NewServices(
	repos *repositories.Repositories,
	hasher pkgAuth.Hasher,
	tokens *pkgAuth.TokenService,
	opts Options,
	logger zerolog.Logger,
) *Services {
	authz := auth.NewAuthorizationService(repos.Memberships, repos.Ranks)
	users := NewUserService(repos.Users, hasher, opts.StudentEmailDomain, logger.With().Str("service", "users").Logger())

	return &Services{
		Users: users,
		Auth:  NewAuthService(users, tokens, logger.With().Str("service", "auth").Logger()),
		Courses: NewCourseService(repos, hasher, authz, CourseServiceOptions{
			DefaultRankLimit: opts.DefaultRankLimit,
			Clock:            opts.Clock,
		}, logger.With().Str("service", "courses").Logger()),
		Labs:  NewLabService(repos, authz, logger.With().Str("service", "labs").Logger()),
		Ranks: NewRankService(repos, authz, logger.With().Str("service", "ranks").Logger()),
		Authz: authz,
	}
}
