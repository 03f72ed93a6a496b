package standup

import "errors"

// AuthErrorCode classifies credential resolution failures.
type AuthErrorCode string

const (
	CodeInvalidFormat AuthErrorCode = "invalid_format"
	CodeExpired       AuthErrorCode = "expired"
	CodeWrongType     AuthErrorCode = "wrong_type"
	CodeAccessDenied  AuthErrorCode = "access_denied"
)

// Machine-readable codes carried to the error route on redirect.
const (
	RedirectInvalidToken = "InvalidToken"
	RedirectAccessDenied = "AccessDenied"
)

// AuthError is a credential failure. Error returns the user-facing message.
type AuthError struct {
	Code    AuthErrorCode
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// RedirectCode maps the error to the code used on the error route.
func (e *AuthError) RedirectCode() string {
	if e.Code == CodeAccessDenied {
		return RedirectAccessDenied
	}
	return RedirectInvalidToken
}

// AccessDenied reports that a credential does not grant access to org.
func AccessDenied(org string) *AuthError {
	return &AuthError{Code: CodeAccessDenied, Message: "Access denied to organization: " + org}
}

// IsAuthCode reports whether err is an *AuthError with the given code.
func IsAuthCode(err error, code AuthErrorCode) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Code == code
}

var (
	// ErrNotAuthenticated is returned when no usable credential is available.
	ErrNotAuthenticated = errors.New("Not authenticated. Please sign in.")

	// ErrNoActivity signals that the backend found nothing to report (HTTP 204).
	// It is a first-class empty result, not a failure.
	ErrNoActivity = errors.New("no activity in the requested range")

	// ErrAlreadyRunning is returned when a generation cycle is already in flight.
	ErrAlreadyRunning = errors.New("report generation already in progress")

	// ErrNoResult is a protocol violation: a completed task without a result.
	ErrNoResult = errors.New("Task completed but no result found")

	// ErrSessionRejected is returned when the backend refuses a session credential.
	ErrSessionRejected = errors.New("session credential rejected")

	// ErrValidationInFlight is returned when a session validation is already running.
	ErrValidationInFlight = errors.New("session validation already in progress")
)
