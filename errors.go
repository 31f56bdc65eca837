package userkit

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for userkit operations.
var (
	// ErrInvalidArgument is returned when a role entity is passed where a role title
	// is expected, or when an already saved user is created again.
	ErrInvalidArgument = errors.New("userkit: invalid argument")

	// ErrNotPersisted is returned when an operation needs a saved user.
	ErrNotPersisted = errors.New("userkit: user not persisted")

	// ErrUserNotFound is returned when no user matches a lookup.
	ErrUserNotFound = errors.New("userkit: user not found")

	// ErrDuplicateUsername is returned by stores when the username unique constraint fires.
	ErrDuplicateUsername = errors.New("userkit: duplicate username")

	// ErrUnauthorized is returned when the acting user may not perform an operation.
	ErrUnauthorized = errors.New("userkit: unauthorized")

	// ErrNoUserID is returned when user ID is not found in context.
	ErrNoUserID = errors.New("userkit: no user ID in context")

	// ErrInvalidResetToken is returned when a reset password token is blank or unknown.
	ErrInvalidResetToken = errors.New("userkit: invalid reset password token")

	// ErrDatabaseError is returned when a database operation fails.
	ErrDatabaseError = errors.New("userkit: database error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err     error  // Underlying sentinel error
	Message string // Additional context
	UserID  string // User involved (if applicable)
	ActorID string // Actor who triggered the error (if applicable)
	Role    string // Role involved (if applicable)
	Plugin  string // Plugin involved (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithUser adds user information to the error.
func (e *Error) WithUser(userID string) *Error {
	e.UserID = userID
	return e
}

// WithActor adds actor information to the error.
func (e *Error) WithActor(actorID string) *Error {
	e.ActorID = actorID
	return e
}

// WithRole adds role information to the error.
func (e *Error) WithRole(role string) *Error {
	e.Role = role
	return e
}

// WithPlugin adds plugin information to the error.
func (e *Error) WithPlugin(plugin string) *Error {
	e.Plugin = plugin
	return e
}

// IsUnauthorized checks if an error is an authorization error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsInvalidArgument checks if an error is due to an invalid argument.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsNotPersisted checks if an error is due to an unsaved user.
func IsNotPersisted(err error) bool {
	return errors.Is(err, ErrNotPersisted)
}

// IsUserNotFound checks if an error is due to a missing user.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// ValidationErrors maps a field name to its failed validation messages.
// A nil or empty value means the record is valid.
type ValidationErrors map[string][]string

// Add appends a message for a field.
func (v *ValidationErrors) Add(field, message string) {
	if *v == nil {
		*v = make(ValidationErrors)
	}
	(*v)[field] = append((*v)[field], message)
}

// Any reports whether at least one message is present.
func (v ValidationErrors) Any() bool {
	return len(v) > 0
}

// On returns the messages recorded for a field.
func (v ValidationErrors) On(field string) []string {
	return v[field]
}

// FullMessages returns "field message" strings sorted by field.
func (v ValidationErrors) FullMessages() []string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var out []string
	for _, f := range fields {
		for _, m := range v[f] {
			out = append(out, f+" "+m)
		}
	}
	return out
}

// Error implements the error interface so callers can surface the messages directly.
func (v ValidationErrors) Error() string {
	return "userkit: validation failed: " + strings.Join(v.FullMessages(), ", ")
}
