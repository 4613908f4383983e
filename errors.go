package auth

import (
	"errors"
	"net/http"
	"strings"
)

// Category groups errors by how callers should react to them.
type Category string

const (
	CategoryValidation      Category = "validation"
	CategoryBadInput        Category = "bad_input"
	CategoryConflict        Category = "conflict"
	CategoryUnauthenticated Category = "unauthenticated"
	CategoryForbidden       Category = "forbidden"
	CategoryNotFound        Category = "not_found"
	CategoryInternal        Category = "internal"
)

// HTTPStatus returns the status code a transport should use for the category
func (c Category) HTTPStatus() int {
	switch c {
	case CategoryValidation, CategoryBadInput:
		return http.StatusBadRequest
	case CategoryConflict:
		return http.StatusConflict
	case CategoryUnauthenticated:
		return http.StatusUnauthorized
	case CategoryForbidden:
		return http.StatusForbidden
	case CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// FieldError is a single violated field rule
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a categorized error. Two errors match with errors.Is when
// they share the same TextCode.
type Error struct {
	Category         Category
	TextCode         string
	Message          string
	Source           error
	ValidationErrors []FieldError
}

// NewError creates a new categorized error
func NewError(category Category, textCode, message string) *Error {
	return &Error{
		Category: category,
		TextCode: textCode,
		Message:  message,
	}
}

// Wrap decorates source with a category and message. The source is kept
// so it can be logged but it is never part of the public message.
func Wrap(source error, category Category, message string) *Error {
	return &Error{
		Category: category,
		TextCode: strings.ToUpper(string(category)),
		Message:  message,
		Source:   source,
	}
}

func (e *Error) Error() string {
	if e.Source != nil {
		return e.Message + ": " + e.Source.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Source
}

// Is reports whether target carries the same text code
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.TextCode != "" && e.TextCode == t.TextCode
}

// WithSource returns a copy of the error wrapping source
func (e *Error) WithSource(source error) *Error {
	clone := *e
	clone.Source = source
	return &clone
}

// NewValidationError builds a validation error from the given violations,
// the message joins them in the order they were reported.
func NewValidationError(violations []FieldError) *Error {
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.Message)
	}
	return &Error{
		Category:         CategoryValidation,
		TextCode:         ErrValidation.TextCode,
		Message:          strings.Join(msgs, ", "),
		ValidationErrors: violations,
	}
}

var (
	// ErrValidation matches any error produced by NewValidationError
	ErrValidation = NewError(CategoryValidation, "VALIDATION_FAILED", "validation failed")

	// ErrNoToken request carried no bearer token
	ErrNoToken = NewError(CategoryUnauthenticated, "NO_TOKEN", "Not authorized, no token.")
	// ErrTokenMalformed token could not be parsed or its signature did not match
	ErrTokenMalformed = NewError(CategoryUnauthenticated, "TOKEN_INVALID", "Not authorized, token failed.")
	// ErrTokenExpired token is well formed but past its expiration
	ErrTokenExpired = NewError(CategoryUnauthenticated, "TOKEN_EXPIRED", "Not authorized, token failed.")
	// ErrUserNotFound the token subject no longer exists
	ErrUserNotFound = NewError(CategoryUnauthenticated, "USER_NOT_FOUND", "User not found.")
	// ErrAccountInactive the account was deactivated
	ErrAccountInactive = NewError(CategoryUnauthenticated, "ACCOUNT_INACTIVE", "Account is inactive.")
	// ErrEmailNotVerified the account email has not been verified yet
	ErrEmailNotVerified = NewError(CategoryForbidden, "EMAIL_NOT_VERIFIED", "Email address has not been verified.")

	// ErrMissingCredentials login payload lacks email or password
	ErrMissingCredentials = NewError(CategoryBadInput, "MISSING_CREDENTIALS", "Please provide email and password.")
	// ErrInvalidCredentials unknown user or wrong password, never tell which
	ErrInvalidCredentials = NewError(CategoryUnauthenticated, "INVALID_CREDENTIALS", "Invalid credentials.")
	// ErrMismatchedHashAndPassword password does not match stored hash
	ErrMismatchedHashAndPassword = NewError(CategoryUnauthenticated, "MISMATCHED_PASSWORD", "password does not match")
	// ErrNoEmptyString empty passwords are never hashed
	ErrNoEmptyString = NewError(CategoryBadInput, "EMPTY_PASSWORD", "password must not be empty")

	// ErrForbidden caller is known but not allowed
	ErrForbidden = NewError(CategoryForbidden, "FORBIDDEN", "You do not have permission to perform this action.")
	// ErrInvalidUpdate update payload names fields outside the allowed set
	ErrInvalidUpdate = NewError(CategoryBadInput, "INVALID_UPDATE", "Invalid updates!")
	// ErrConflict email or employee id already taken
	ErrConflict = NewError(CategoryConflict, "CONFLICT", "Email or Employee ID already exists.")
	// ErrNotFound target record does not exist
	ErrNotFound = NewError(CategoryNotFound, "NOT_FOUND", "User not found.")

	// ErrRecordNotFound is returned by stores when no record matches
	ErrRecordNotFound = NewError(CategoryNotFound, "RECORD_NOT_FOUND", "record not found")
	// ErrDuplicateRecord is returned by stores when a unique index rejects a write
	ErrDuplicateRecord = NewError(CategoryConflict, "DUPLICATE_RECORD", "duplicate record")
)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}

// IsMalformedError will check for malformed or tampered tokens
func IsMalformedError(err error) bool {
	return errors.Is(err, ErrTokenMalformed)
}

// HTTPStatus resolves the status code for err. Uncategorized errors are
// internal errors.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Category.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message that is safe to show to a client, or
// fallback for internal and uncategorized errors.
func PublicMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Category != CategoryInternal {
		return e.Message
	}
	return fallback
}
