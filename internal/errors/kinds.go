package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Violation describes one failed field constraint.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every constraint an input violated.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a violation.
func (e *ValidationError) Add(field, message string) {
	e.Violations = append(e.Violations, Violation{Field: field, Message: message})
}

// Has reports whether field has at least one violation.
func (e *ValidationError) Has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// OrNil returns nil when no violations were collected.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Violations) == 0 {
		return nil
	}
	return e
}

// AuthorizationError is returned when the actor may not perform an action.
type AuthorizationError struct {
	ActorID string
	Action  string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %q is not allowed to %s", e.ActorID, e.Action)
}

// NotFoundError is returned when a referenced entity does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ConflictError is returned when a write would break a uniqueness rule.
type ConflictError struct {
	Resource string
	Field    string
	Value    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Resource, e.Field, e.Value)
}

// Upstream failure codes reported by the Authenticator and the TextSuggester.
const (
	UpstreamInvalidCredential = "InvalidCredential"
	UpstreamRateLimited       = "RateLimited"
	UpstreamEmailInUse        = "EmailInUse"
	UpstreamUnavailable       = "Unavailable"
	UpstreamOther             = "Other"
)

// Upstream services.
const (
	ServiceAuthenticator = "authenticator"
	ServiceTextSuggester = "text-suggester"
)

// UpstreamError wraps a failure of an external collaborator.
type UpstreamError struct {
	Service string
	Code    string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Service, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Code, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError builds an UpstreamError.
func NewUpstreamError(service, code string, err error) *UpstreamError {
	return &UpstreamError{Service: service, Code: code, Err: err}
}

// IsUpstream reports whether err is an UpstreamError with the given code.
func IsUpstream(err error, code string) bool {
	var upstream *UpstreamError
	return stderrors.As(err, &upstream) && upstream.Code == code
}

// UserMessage translates an error into the message shown to end users.
func UserMessage(err error) string {
	var (
		validation *ValidationError
		authz      *AuthorizationError
		notFound   *NotFoundError
		conflict   *ConflictError
		upstream   *UpstreamError
	)

	switch {
	case stderrors.As(err, &validation):
		return "Please correct the highlighted fields."
	case stderrors.As(err, &authz):
		return "You do not have permission to perform this action."
	case stderrors.As(err, &notFound):
		return fmt.Sprintf("The requested %s could not be found.", notFound.Resource)
	case stderrors.As(err, &conflict):
		if conflict.Field == "email" {
			return "This email address is already in use."
		}
		return "This resource already exists."
	case stderrors.As(err, &upstream):
		switch upstream.Code {
		case UpstreamInvalidCredential:
			return "Invalid email or password."
		case UpstreamRateLimited:
			return "Too many attempts. Please try again later."
		case UpstreamEmailInUse:
			return "This email address is already in use."
		}
		if upstream.Service == ServiceTextSuggester {
			return "AI assistance is currently unavailable."
		}
		return "An unexpected error occurred."
	default:
		return "An unexpected error occurred."
	}
}

// Respond writes the HTTP response matching the kind of err.
func Respond(c *gin.Context, err error) {
	var (
		validation *ValidationError
		authz      *AuthorizationError
		notFound   *NotFoundError
		conflict   *ConflictError
		upstream   *UpstreamError
	)

	message := UserMessage(err)

	switch {
	case stderrors.As(err, &validation):
		BadRequestWithDetails(c, message, validation.Violations)
	case stderrors.As(err, &authz):
		Forbidden(c, message)
	case stderrors.As(err, &notFound):
		NotFound(c, message)
	case stderrors.As(err, &conflict):
		RespondWithError(c, http.StatusConflict, NewAPIError(ErrCodeAlreadyExists, message))
	case stderrors.As(err, &upstream):
		switch upstream.Code {
		case UpstreamInvalidCredential:
			RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeInvalidCredentials, message))
		case UpstreamRateLimited:
			RespondWithError(c, http.StatusTooManyRequests, NewAPIError(ErrCodeRateLimited, message))
		case UpstreamEmailInUse:
			RespondWithError(c, http.StatusConflict, NewAPIError(ErrCodeAlreadyExists, message))
		default:
			if upstream.Service == ServiceTextSuggester {
				ServiceUnavailable(c, message)
				return
			}
			RespondWithError(c, http.StatusBadGateway, NewAPIError(ErrCodeUpstreamError, message))
		}
	default:
		InternalError(c, "")
	}
}
