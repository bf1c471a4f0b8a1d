package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/pkg/apperrors"
	"github.com/yigit/saffron/internal/pkg/auth"
)

const userContextKey = "currentUser"

// TokenResolver turns an access token into the user it was issued to
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware authenticates bearer tokens and gates staff-only routes
type AuthMiddleware struct {
	resolver TokenResolver
}

func NewAuthMiddleware(resolver TokenResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// JWTAuth resolves the bearer token to a user and stores it in the context. A missing header
// is 401 AUTH_008; malformed, invalid and expired tokens map through HandleAPIError.
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			HandleAPIError(c, apperrors.ErrUnauthenticated)
			return
		}

		token, err := auth.BearerToken(header)
		if err == nil {
			var user *models.User
			if user, err = m.resolver.ResolveToken(c.Request.Context(), token); err == nil {
				SetCurrentUser(c, user)
				c.Next()
				return
			}
		}
		HandleAPIError(c, err)
	}
}

// StaffRequired rejects users without the global admin capability. Must run after JWTAuth.
func (m *AuthMiddleware) StaffRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch user, ok := CurrentUser(c); {
		case !ok:
			HandleAPIError(c, apperrors.ErrUnauthenticated)
			return
		case !user.IsAdmin():
			HandleAPIError(c, apperrors.NewForbiddenError("Staff access is required for this operation"))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user JWTAuth stored in the context
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// SetCurrentUser stores user in the context
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(userContextKey, user)
}
