package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/app/models/dto"
	"github.com/yigit/saffron/internal/pkg/auth"
)

// AuthService exchanges credentials for access tokens and tokens for users
type AuthService struct {
	users  UserService
	tokens *auth.TokenService
	logger zerolog.Logger
}

func NewAuthService(users UserService, tokens *auth.TokenService, logger zerolog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

// Login checks the credentials and issues an access token
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	issued, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error().Err(err).Int64("userID", user.ID).Msg("Failed to issue access token")
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}

	s.logger.Info().Int64("userID", user.ID).Msg("User logged in")
	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken: issued.Value,
			TokenType:   "Bearer",
			ExpiresIn:   int64(issued.ExpiresIn.Seconds()),
		},
		User: dto.NewUserResponse(user),
	}, nil
}

// ResolveToken validates an access token and loads its user. Inactive accounts are rejected.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}
	if !user.IsActive {
		return nil, auth.ErrInvalidToken
	}
	return user, nil
}
