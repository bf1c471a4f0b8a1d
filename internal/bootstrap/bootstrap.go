package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/saffron/internal/app/controllers"
	appMigrations "github.com/yigit/saffron/internal/app/migrations"
	appRepos "github.com/yigit/saffron/internal/app/repositories"
	"github.com/yigit/saffron/internal/app/repositories/memory"
	appRoutes "github.com/yigit/saffron/internal/app/routes"
	appServices "github.com/yigit/saffron/internal/app/services"
	"github.com/yigit/saffron/internal/config"
	"github.com/yigit/saffron/internal/db"
	appMiddleware "github.com/yigit/saffron/internal/middleware"
	pkgAuth "github.com/yigit/saffron/internal/pkg/auth"
	"github.com/yigit/saffron/internal/pkg/helpers"
	"github.com/yigit/saffron/internal/pkg/logger"
	"github.com/yigit/saffron/internal/seed"
)

// DefaultConfigPath is where the server and CLI look for the YAML config
const DefaultConfigPath = "configs/config.yaml"

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos          *appRepos.Repositories
	Services       *appServices.Services
	Tokens         *pkgAuth.TokenService
	Hasher         pkgAuth.Hasher
	AuthMiddleware *appMiddleware.AuthMiddleware
	Controllers    appRoutes.Controllers
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	lgr := logger.Configure(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	lgr.Info().Stringer("logLevel", logger.ParseLevel(cfg.Logging.Level)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Str("host", cfg.Database.Host).Str("dbname", cfg.Database.Name).Msg("Establishing database connection...")
	database, err := db.Open(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}

	lgr.Info().Msg("Running database migrations...")
	applied, err := appMigrations.NewMigrator(database.Pool, lgr).Migrate(ctx, appMigrations.Files())
	if err != nil {
		database.Close()
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Int("applied", len(applied)).Msg("Database schema is up to date")

	return database, nil
}

// OpenRepositories builds the repositories for the configured driver. The returned
// function releases the underlying connections.
func OpenRepositories(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*appRepos.Repositories, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		lgr.Warn().Msg("Using the in-memory store; data is lost on exit")
		return memory.NewRepositories(), func() {}, nil
	case config.DriverPostgres:
		database, err := SetupDatabase(ctx, cfg, lgr)
		if err != nil {
			return nil, nil, err
		}
		return appRepos.NewRepositories(database), database.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// BuildDependencies initializes application services and controllers over repos.
func BuildDependencies(cfg *config.Config, repos *appRepos.Repositories, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Repos: repos, Logger: lgr}

	deps.Hasher = pkgAuth.NewBcryptHasher(cfg.Security.BcryptCost)
	deps.Tokens = pkgAuth.NewTokenService(pkgAuth.TokenConfig{
		Secret: cfg.JWT.Secret,
		TTL:    helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 24*time.Hour),
		Issuer: cfg.JWT.Issuer,
	})

	deps.Services = appServices.NewServices(repos, deps.Hasher, deps.Tokens, appServices.Options{
		DefaultRankLimit:   cfg.Course.DefaultRankLimit,
		StudentEmailDomain: cfg.Course.StudentEmailDomain,
		Clock:              helpers.SystemClock,
	}, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.Services.Auth)

	deps.Controllers = appRoutes.Controllers{
		Auth:    appControllers.NewAuthController(deps.Services.Auth, lgr),
		Users:   appControllers.NewUserController(deps.Services.Users, lgr),
		Courses: appControllers.NewCourseController(deps.Services.Courses, lgr),
		Labs:    appControllers.NewLabController(deps.Services.Courses, deps.Services.Labs, lgr),
		Ranks:   appControllers.NewRankController(deps.Services.Courses, deps.Services.Ranks, lgr),
	}

	return deps, nil
}

// SeedData creates the configured default accounts
func SeedData(ctx context.Context, cfg *config.Config, deps *Dependencies) error {
	return seed.EnsureSuperuser(ctx, deps.Services.Users, cfg.Seed.SuperuserUsername, cfg.Seed.SuperuserPassword, deps.Logger)
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := appMiddleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr))

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router, nil
}
