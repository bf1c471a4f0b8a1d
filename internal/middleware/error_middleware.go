package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/saffron/internal/app/models/dto"
	"github.com/yigit/saffron/internal/pkg/apperrors"
	"github.com/yigit/saffron/internal/pkg/logger"
)

type errorMapping struct {
	target  error
	status  int
	code    dto.ErrorCode
	message string
}

// Order matters: the first matching sentinel wins
var errorMappings = []errorMapping{
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	{apperrors.ErrUnauthenticated, http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Authentication required"},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{apperrors.ErrAccountDisabled, http.StatusUnauthorized, dto.ErrorCodeAccountDisabled, "Account is disabled"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrDuplicateRank, http.StatusBadRequest, dto.ErrorCodeDuplicateRank, "The same lab appears more than once"},
	{apperrors.ErrLimitExceeded, http.StatusBadRequest, dto.ErrorCodeRankLimitExceeded, "Too many ranks submitted"},
	{apperrors.ErrNotJoined, http.StatusBadRequest, dto.ErrorCodeNotJoined, "You have not joined this course"},
	{apperrors.ErrNotAdmin, http.StatusBadRequest, dto.ErrorCodeNotAdmin, "This user is not an admin of the course"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Bad request"},
	{apperrors.ErrDuplicateCourse, http.StatusConflict, dto.ErrorCodeDuplicateCourse, "A course with this name already exists for the year"},
	{apperrors.ErrAlreadyJoined, http.StatusConflict, dto.ErrorCodeAlreadyJoined, "You have already joined this course"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict, "Resource already exists"},
}

// StatusFor returns the HTTP status and error code err maps to
func StatusFor(err error) (int, dto.ErrorCode) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, dto.ErrorCodeInternalServer
}

// HandleAPIError writes the response for err using the first matching mapping.
// Unmapped errors are logged and reported as a bare 500.
func HandleAPIError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			AbortWithError(c, m.status, m.code, apperrors.MessageOf(err, m.message), detailsOf(err))
			return
		}
	}

	logger.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled error")
	AbortWithError(c, http.StatusInternalServerError, dto.ErrorCodeInternalServer, "Internal server error", nil)
}

// detailsOf keeps a nil map from surfacing as an empty "details" member
func detailsOf(err error) interface{} {
	if details := apperrors.DetailsOf(err); details != nil {
		return details
	}
	return nil
}

// AbortWithError writes an error response with an explicit status and code
func AbortWithError(c *gin.Context, status int, code dto.ErrorCode, message string, details interface{}) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(code, message, details))
}
