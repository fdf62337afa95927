package commonerrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCategory string

const (
	CategoryValidation   ErrorCategory = "VALIDATION"
	CategoryNotFound     ErrorCategory = "NOT_FOUND"
	CategoryConflict     ErrorCategory = "CONFLICT"
	CategoryUnauthorized ErrorCategory = "UNAUTHORIZED"
	CategoryInternal     ErrorCategory = "INTERNAL"
	CategoryExternal     ErrorCategory = "EXTERNAL"
)

type DomainError interface {
	error
	Code() string
	Category() ErrorCategory
	HTTPStatus() int
	Message() string
	TraceID() string
	Unwrap() error
	WithCause(cause error) DomainError
	WithTraceID(traceID string) DomainError
}

type domainError struct {
	code     string
	category ErrorCategory
	status   int
	message  string
	traceID  string
	cause    error
}

func (e *domainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *domainError) Code() string {
	return e.code
}

func (e *domainError) Category() ErrorCategory {
	return e.category
}

func (e *domainError) HTTPStatus() int {
	return e.status
}

func (e *domainError) Message() string {
	return e.message
}

func (e *domainError) TraceID() string {
	return e.traceID
}

func (e *domainError) Unwrap() error {
	return e.cause
}

// Is matches on code so that errors built with WithCause still compare equal
// to the catalogue value they were derived from.
func (e *domainError) Is(target error) bool {
	t, ok := target.(*domainError)
	if !ok {
		return false
	}
	return e.code == t.code
}

func (e *domainError) WithCause(cause error) DomainError {
	return &domainError{
		code:     e.code,
		category: e.category,
		status:   e.status,
		message:  e.message,
		traceID:  e.traceID,
		cause:    cause,
	}
}

func (e *domainError) WithTraceID(traceID string) DomainError {
	return &domainError{
		code:     e.code,
		category: e.category,
		status:   e.status,
		message:  e.message,
		traceID:  traceID,
		cause:    e.cause,
	}
}

func NewDomainError(code string, category ErrorCategory, status int, message string) DomainError {
	return &domainError{
		code:     code,
		category: category,
		status:   status,
		message:  message,
	}
}

func IsDomainError(err error) bool {
	var de DomainError
	return errors.As(err, &de)
}

func AsDomainError(err error) (DomainError, bool) {
	var de DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// InnermostDomainError walks the cause chain and returns the deepest domain
// error, so a wrapper such as ErrRemoteStore yields to the specific reason.
func InnermostDomainError(err error) (DomainError, bool) {
	var found DomainError
	for err != nil {
		if de, ok := err.(DomainError); ok {
			found = de
		}
		err = errors.Unwrap(err)
	}
	return found, found != nil
}

var (
	ErrMissingRequiredEnv = NewDomainError(
		"MISSING_REQUIRED_ENV",
		CategoryValidation,
		http.StatusInternalServerError,
		"missing required environment variable",
	)

	ErrInvalidJWTSecret = NewDomainError(
		"INVALID_JWT_SECRET",
		CategoryValidation,
		http.StatusInternalServerError,
		"REGISTRY_JWT_SECRET must be at least 32 bytes",
	)

	ErrInvalidAPIKey = NewDomainError(
		"INVALID_API_KEY",
		CategoryUnauthorized,
		http.StatusUnauthorized,
		"invalid api key",
	)

	ErrMissingAPIKey = NewDomainError(
		"MISSING_API_KEY",
		CategoryUnauthorized,
		http.StatusUnauthorized,
		"missing api key",
	)

	ErrCircuitOpen = NewDomainError(
		"CIRCUIT_OPEN",
		CategoryExternal,
		http.StatusServiceUnavailable,
		"circuit breaker is open",
	)

	ErrRemoteStore = NewDomainError(
		"REMOTE_STORE_ERROR",
		CategoryExternal,
		http.StatusBadGateway,
		"remote store request failed",
	)

	ErrEmptyUUID = NewDomainError(
		"EMPTY_UUID",
		CategoryValidation,
		http.StatusBadRequest,
		"uuid cannot be empty",
	)

	ErrInvalidUUID = NewDomainError(
		"INVALID_UUID",
		CategoryValidation,
		http.StatusBadRequest,
		"invalid uuid format",
	)

	ErrValidation = NewDomainError(
		"VALIDATION_FAILED",
		CategoryValidation,
		http.StatusBadRequest,
		"validation failed",
	)

	ErrUserNotFound = NewDomainError(
		"USER_NOT_FOUND",
		CategoryNotFound,
		http.StatusNotFound,
		"user not found",
	)

	ErrEmailAlreadyRegistered = NewDomainError(
		"EMAIL_ALREADY_REGISTERED",
		CategoryConflict,
		http.StatusConflict,
		"email already registered",
	)

	ErrUserListFailed = NewDomainError(
		"USER_LIST_FAILED",
		CategoryInternal,
		http.StatusInternalServerError,
		"failed to list users",
	)

	ErrUserCreateFailed = NewDomainError(
		"USER_CREATE_FAILED",
		CategoryInternal,
		http.StatusInternalServerError,
		"failed to create user",
	)

	ErrUserDeleteFailed = NewDomainError(
		"USER_DELETE_FAILED",
		CategoryInternal,
		http.StatusInternalServerError,
		"failed to delete user",
	)

	ErrSubscribeFailed = NewDomainError(
		"SUBSCRIBE_FAILED",
		CategoryExternal,
		http.StatusServiceUnavailable,
		"failed to subscribe to user changes",
	)

	ErrFeedClosed = NewDomainError(
		"FEED_CLOSED",
		CategoryExternal,
		http.StatusServiceUnavailable,
		"change feed is closed",
	)

	ErrTooManySessions = NewDomainError(
		"TOO_MANY_SESSIONS",
		CategoryExternal,
		http.StatusServiceUnavailable,
		"too many live sessions",
	)

	ErrInternalError = NewDomainError(
		"INTERNAL_ERROR",
		CategoryInternal,
		http.StatusInternalServerError,
		"internal server error",
	)

	ErrInvalidPayload = NewDomainError(
		"INVALID_PAYLOAD",
		CategoryValidation,
		http.StatusBadRequest,
		"invalid payload",
	)

	ErrUnknownMessageType = NewDomainError(
		"UNKNOWN_MESSAGE_TYPE",
		CategoryValidation,
		http.StatusBadRequest,
		"unknown message type",
	)
)
