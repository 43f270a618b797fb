package todoapi

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// Text codes carried by the rich errors so callers and log pipelines
// can branch without string matching on messages.
const (
	TextCodeInvalidCreds        = "INVALID_CREDENTIALS"
	TextCodeMissingToken        = "TOKEN_MISSING"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
	TextCodeTokenSignature      = "TOKEN_SIGNATURE_INVALID"
	TextCodeTokenNotYetValid    = "TOKEN_NOT_YET_VALID"
	TextCodeOwnershipRequired   = "OWNERSHIP_REQUIRED"
	TextCodeTodoNotFound        = "TODO_NOT_FOUND"
	TextCodeIdentityNotFound    = "IDENTITY_NOT_FOUND"
	TextCodeDuplicateIdentifier = "DUPLICATE_IDENTIFIER"
	TextCodeTooManyAttempts     = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeAccountInactive     = "ACCOUNT_INACTIVE"
	TextCodeKeyLoad             = "KEY_LOAD_ERROR"
	TextCodeDependencyDown      = "DEPENDENCY_UNAVAILABLE"
	TextCodeValidation          = "VALIDATION_ERROR"
)

// ErrInvalidCredentials covers both unknown identifiers and password
// mismatches so a caller cannot probe which accounts exist.
var ErrInvalidCredentials = errors.New("incorrect username or password", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// ErrMissingToken is returned when a protected route gets no credential
var ErrMissingToken = errors.New("missing authentication token", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeMissingToken)

// ErrTokenExpired is returned for tokens past their expiry instant
var ErrTokenExpired = errors.New("token has expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed covers tokens that fail to parse or carry an
// unexpected signing method
var ErrTokenMalformed = errors.New("invalid authentication token", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrTokenSignatureInvalid is returned when the signature does not
// verify against the configured public key
var ErrTokenSignatureInvalid = errors.New("invalid token signature", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenSignature)

// ErrTokenNotYetValid is returned for tokens issued in the future
var ErrTokenNotYetValid = errors.New("token is not valid yet", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenNotYetValid)

// ErrAccountInactive blocks deactivated accounts from logging in or
// presenting still-live tokens
var ErrAccountInactive = errors.New("user account is inactive", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeAccountInactive)

// ErrForbidden is the ownership denial, distinct from not-found
var ErrForbidden = errors.New("you don't have permission to access this resource", errors.CategoryAuthz).
	WithCode(errors.CodeForbidden).
	WithTextCode(TextCodeOwnershipRequired)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound).
	WithTextCode(TextCodeIdentityNotFound)

// ErrTodoNotFound is returned for missing or soft-deleted todos
var ErrTodoNotFound = errors.New("todo not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound).
	WithTextCode(TextCodeTodoNotFound)

// ErrDuplicateIdentifier is returned when a register hits an email or
// username that is already taken
var ErrDuplicateIdentifier = errors.New("username or email already registered", errors.CategoryConflict).
	WithCode(errors.CodeConflict).
	WithTextCode(TextCodeDuplicateIdentifier)

// ErrTooManyLoginAttempts is the cooldown lockout error
var ErrTooManyLoginAttempts = errors.New("too many failed login attempts, try again later", errors.CategoryRateLimit).
	WithCode(http.StatusTooManyRequests).
	WithTextCode(TextCodeTooManyAttempts)

// ErrDependencyUnavailable is returned when a required collaborator,
// e.g. the database, cannot be reached
var ErrDependencyUnavailable = errors.New("a required service dependency is unavailable", errors.CategoryOperation).
	WithCode(http.StatusServiceUnavailable).
	WithTextCode(TextCodeDependencyDown)

const (
	// ErrorTypeClient marks envelopes for 4xx responses
	ErrorTypeClient = "client_error"
	// ErrorTypeServer marks envelopes for 5xx responses
	ErrorTypeServer = "server_error"
)

const genericServerMessage = "An unexpected error occurred"

// ErrorEnvelope is the wire shape every failed request resolves to.
// Message is safe for clients: server-side detail stays in the logs.
type ErrorEnvelope struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Type       string `json:"type"`
}

// Classify maps any error to an ErrorEnvelope. It is total: errors it
// does not recognize come back as 500/server_error with a generic
// message, never as a passthrough of internal detail.
func Classify(err error) ErrorEnvelope {
	if err == nil {
		return ErrorEnvelope{
			StatusCode: http.StatusInternalServerError,
			Message:    genericServerMessage,
			Type:       ErrorTypeServer,
		}
	}

	var vErrs validation.Errors
	if stderrors.As(err, &vErrs) {
		return ErrorEnvelope{
			StatusCode: http.StatusUnprocessableEntity,
			Message:    "request validation failed: " + vErrs.Error(),
			Type:       ErrorTypeClient,
		}
	}

	// repository not found errors carry a storage category of their
	// own, fold them into 404 before the generic rich error mapping
	if repository.IsRecordNotFound(err) {
		return ErrorEnvelope{
			StatusCode: http.StatusNotFound,
			Message:    "resource not found",
			Type:       ErrorTypeClient,
		}
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		status := richErr.Code
		if status < http.StatusBadRequest || status > 599 {
			status = categoryStatus(richErr.Category)
		}
		message := richErr.Message
		if status >= http.StatusInternalServerError {
			message = serverMessage(status)
		}
		return ErrorEnvelope{
			StatusCode: status,
			Message:    message,
			Type:       errorType(status),
		}
	}

	if errors.IsNotFound(err) || stderrors.Is(err, sql.ErrNoRows) {
		return ErrorEnvelope{
			StatusCode: http.StatusNotFound,
			Message:    "resource not found",
			Type:       ErrorTypeClient,
		}
	}

	return ErrorEnvelope{
		StatusCode: http.StatusInternalServerError,
		Message:    genericServerMessage,
		Type:       ErrorTypeServer,
	}
}

// ErrorKind returns a stable label for logs: the rich error's text
// code when set, its category otherwise, "unclassified" for anything
// the vocabulary does not cover.
func ErrorKind(err error) string {
	if err == nil {
		return "unclassified"
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		if richErr.TextCode != "" {
			return richErr.TextCode
		}
		return fmt.Sprintf("%v", richErr.Category)
	}

	var vErrs validation.Errors
	if stderrors.As(err, &vErrs) {
		return TextCodeValidation
	}

	return "unclassified"
}

func categoryStatus(category errors.Category) int {
	switch category {
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryValidation:
		return http.StatusUnprocessableEntity
	case errors.CategoryBadInput:
		return http.StatusBadRequest
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case errors.CategoryOperation:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorType(status int) string {
	if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		return ErrorTypeClient
	}
	return ErrorTypeServer
}

func serverMessage(status int) string {
	if status == http.StatusServiceUnavailable {
		return "service temporarily unavailable"
	}
	return genericServerMessage
}
