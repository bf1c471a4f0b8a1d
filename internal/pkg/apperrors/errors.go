package apperrors

import "errors"

// Kinds shared by every layer. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")
	ErrBadRequest       = errors.New("bad request")
	ErrValidationFailed = errors.New("validation failed")
	ErrPermissionDenied = errors.New("permission denied")
)

// Authentication
var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
)

// CustomError attaches a client-facing message and structured details to one of the kinds above
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

func (e *CustomError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError wraps kind with message
func NewCustomError(kind error, message string) *CustomError {
	return &CustomError{Err: kind, Message: message}
}

// WithDetails sets the structured context returned to clients
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

func NewResourceNotFoundError(message string) error {
	return NewCustomError(ErrResourceNotFound, message)
}

func NewConflictError(message string) error {
	return NewCustomError(ErrConflict, message)
}

func NewForbiddenError(message string) error {
	return NewCustomError(ErrPermissionDenied, message)
}

func NewBadRequestError(message string) error {
	return NewCustomError(ErrBadRequest, message)
}

// NewValidationError reports invalid input; details maps each offending field to its problem
func NewValidationError(message string, details map[string]interface{}) error {
	return NewCustomError(ErrValidationFailed, message).WithDetails(details)
}

// Is reports whether err matches any of the given kinds
func Is(err, target error, more ...error) bool {
	if errors.Is(err, target) {
		return true
	}
	for _, t := range more {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// DetailsOf returns the details of the outermost CustomError in err's chain
func DetailsOf(err error) map[string]interface{} {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Details
	}
	return nil
}

// MessageOf returns the message of the outermost CustomError in err's chain, or fallback
func MessageOf(err error, fallback string) string {
	var ce *CustomError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return fallback
}
