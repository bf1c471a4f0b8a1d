package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/pkg/apperrors"
)

var (
	ErrInvalidToken    = apperrors.ErrTokenInvalid
	ErrExpiredToken    = apperrors.ErrTokenExpired
	ErrMalformedHeader = fmt.Errorf("%w: malformed authorization header", apperrors.ErrTokenInvalid)
)

// TokenConfig configures access token signing
type TokenConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// TokenService signs and verifies HS256 access tokens
type TokenService struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenService(cfg TokenConfig) *TokenService {
	return &TokenService{cfg: cfg, now: time.Now}
}

// Claims identify the user a token was issued to. Staff is informational; authorization
// always reloads the user.
type Claims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Staff    bool   `json:"staff,omitempty"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token and its lifetime
type IssuedToken struct {
	Value     string
	ExpiresIn time.Duration
}

// Issue signs a token for user valid for the configured TTL
func (s *TokenService) Issue(user *models.User) (IssuedToken, error) {
	now := s.now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Staff:    user.IsAdmin(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.cfg.Issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return IssuedToken{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return IssuedToken{Value: signed, ExpiresIn: s.cfg.TTL}, nil
}

// Verify checks signature, issuer and lifetime of raw and returns its claims.
// Expired tokens yield ErrExpiredToken; every other failure wraps ErrInvalidToken.
func (s *TokenService) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case claims.UserID <= 0:
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// BearerToken returns the token of an Authorization header. A bare JWT without the
// scheme is accepted.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		if token = strings.TrimSpace(token); token != "" {
			return token, nil
		}
		return "", ErrMalformedHeader
	}
	if header != "" && strings.Count(header, ".") == 2 && !strings.Contains(header, " ") {
		return header, nil
	}
	return "", ErrMalformedHeader
}
