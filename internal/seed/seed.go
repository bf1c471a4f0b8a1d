package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/saffron/internal/app/services"
	"github.com/yigit/saffron/internal/pkg/apperrors"
)

// EnsureSuperuser creates the configured superuser unless an account with that username exists.
// An empty username disables seeding.
func EnsureSuperuser(ctx context.Context, users services.UserService, username, password string, lgr zerolog.Logger) error {
	if username == "" {
		lgr.Debug().Msg("No seed superuser configured")
		return nil
	}

	existing, err := users.GetByUsername(ctx, username)
	if err == nil {
		lgr.Debug().Int64("userID", existing.ID).Str("username", username).Msg("Seed superuser already exists")
		return nil
	}
	if !errors.Is(err, apperrors.ErrResourceNotFound) {
		return fmt.Errorf("error looking up seed superuser: %w", err)
	}

	user, err := users.CreateSuperuser(ctx, username, password)
	if err != nil {
		return fmt.Errorf("error creating seed superuser: %w", err)
	}

	lgr.Info().Int64("userID", user.ID).Str("username", username).Msg("Seed superuser created")
	return nil
}
