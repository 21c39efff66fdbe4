// Package apperror defines the error taxonomy shared by handlers and
// middleware.  Every failure a client can observe is one of the types
// below; the router's error handler translates them into the uniform
// {success:false, error:{code, message, statusCode, details?}} envelope.
// Anything that is not an *Error reaches the client as an opaque 500.
package apperror

import "net/http"

// Error is the single concrete error type used across the API surface.
// Code is a stable machine-readable identifier, Status the HTTP status
// the router should respond with.  Details carries optional structured
// context such as field-level validation messages or retry timing.
type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]any
}

func (e *Error) Error() string { return e.Message }

// WithDetails returns a copy of the error carrying the given detail map.
func (e *Error) WithDetails(details map[string]any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Status: e.Status, Details: details}
}

// Authentication covers missing, malformed and expired credentials alike.
// The message is deliberately uninformative about the specific cause so the
// endpoint cannot be used as an oracle for credential guessing.
func Authentication() *Error {
	return &Error{Code: "AUTHENTICATION_FAILED", Message: "authentication required", Status: http.StatusUnauthorized}
}

// AccountLocked is the one authentication failure that does explain itself:
// remaining lock time is not a secret and telling the user improves UX.
func AccountLocked(minutesLeft int) *Error {
	return &Error{
		Code:    "ACCOUNT_LOCKED",
		Message: "account temporarily locked due to repeated failed logins",
		Status:  http.StatusUnauthorized,
		Details: map[string]any{"retry_after_minutes": minutesLeft},
	}
}

// Authorization means the identity is valid but the role does not permit
// the operation (or a restricted field in it).
func Authorization(msg string) *Error {
	if msg == "" {
		msg = "insufficient permissions"
	}
	return &Error{Code: "FORBIDDEN", Message: msg, Status: http.StatusForbidden}
}

// RateLimited carries machine-readable retry timing for a denied request.
func RateLimited(retryAfterSeconds, limit int, resetAt string) *Error {
	return &Error{
		Code:    "RATE_LIMITED",
		Message: "rate limit exceeded",
		Status:  http.StatusTooManyRequests,
		Details: map[string]any{
			"retry_after": retryAfterSeconds,
			"limit":       limit,
			"remaining":   0,
			"reset_at":    resetAt,
		},
	}
}

// Validation reports malformed input with optional per-field messages.
func Validation(msg string, fields map[string]any) *Error {
	if msg == "" {
		msg = "invalid request"
	}
	return &Error{Code: "VALIDATION_ERROR", Message: msg, Status: http.StatusBadRequest, Details: fields}
}

// Conflict reports a duplicate resource, e.g. an already registered email.
func Conflict(msg string) *Error {
	return &Error{Code: "CONFLICT", Message: msg, Status: http.StatusConflict}
}

// NotFound reports a missing resource.
func NotFound(msg string) *Error {
	if msg == "" {
		msg = "not found"
	}
	return &Error{Code: "NOT_FOUND", Message: msg, Status: http.StatusNotFound}
}

// Internal is the generic fallback; the message shown to clients is fixed
// and internals stay in the server log.
func Internal() *Error {
	return &Error{Code: "INTERNAL_ERROR", Message: "internal server error", Status: http.StatusInternalServerError}
}
