package dto

import "time"

// ErrorCode is the machine-readable reason carried in every error body
type ErrorCode string

// Authentication
const (
	ErrorCodeInvalidCredentials ErrorCode = "AUTH_001"
	ErrorCodeAccountDisabled    ErrorCode = "AUTH_002"
	ErrorCodeInvalidToken       ErrorCode = "AUTH_005"
	ErrorCodeExpiredToken       ErrorCode = "AUTH_006"
	ErrorCodeUnauthorized       ErrorCode = "AUTH_008"
	ErrorCodeForbidden          ErrorCode = "FORBIDDEN"
)

// Generic request and resource failures
const (
	ErrorCodeResourceNotFound ErrorCode = "RES_001"
	ErrorCodeConflict         ErrorCode = "RES_004"
	ErrorCodeValidationFailed ErrorCode = "VAL_001"
	ErrorCodeBadRequest       ErrorCode = "BAD_REQUEST"
	ErrorCodeInternalServer   ErrorCode = "SRV_001"
)

// Course membership and ranking
const (
	ErrorCodeCoursePinMismatch ErrorCode = "COURSE_PIN_MISMATCH"
	ErrorCodeDuplicateCourse   ErrorCode = "COURSE_DUPLICATE"
	ErrorCodeAlreadyJoined     ErrorCode = "COURSE_ALREADY_JOINED"
	ErrorCodeNotJoined         ErrorCode = "COURSE_NOT_JOINED"
	ErrorCodeNotAdmin          ErrorCode = "COURSE_NOT_ADMIN"
	ErrorCodeDuplicateRank     ErrorCode = "RANK_DUPLICATE"
	ErrorCodeRankLimitExceeded ErrorCode = "RANK_LIMIT_EXCEEDED"
)

// ErrorDetail is the "error" member of a failed response. Details holds structured context
// such as offending lab ids or per-field validation messages.
type ErrorDetail struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Success   bool         `json:"success"`
	Error     *ErrorDetail `json:"error"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewErrorResponse builds a failed envelope; nil details are omitted
func NewErrorResponse(code ErrorCode, message string, details interface{}) ErrorResponse {
	return ErrorResponse{
		Error:     &ErrorDetail{Code: code, Message: message, Details: details},
		Timestamp: time.Now(),
	}
}
