package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger is the logging contract used across the package. Args are
// key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Email() string
	Role() string
}

// PasswordHasher hashes and compares passwords
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TokenService issues and validates bearer tokens
type TokenService interface {
	TokenValidator
	Generate(identity Identity) (string, error)
	Issue(identity Identity, ttl time.Duration) (string, time.Time, error)
	SignClaims(claims *JWTClaims) (string, error)
}

// Users is the user store contract.
//
// Stores must report unique index violations as ErrDuplicateRecord and
// missing records as ErrRecordNotFound. Lookups exclude the password
// hash unless the method says otherwise.
type Users interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetByEmailWithPassword includes the password hash in the result
	GetByEmailWithPassword(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	// UpdateProfile persists name, phone and preferences only
	UpdateProfile(ctx context.Context, user *User) (*User, error)
	// TrackSuccessfulLogin sets last_login without validating the record
	TrackSuccessfulLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserFinder is the read side of Users used by the authentication guard
type UserFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Printf("[ERR] AUTH %s%s\n", msg, formatArgs(args))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Printf("[WRN] AUTH %s%s\n", msg, formatArgs(args))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Printf("[INF] AUTH %s%s\n", msg, formatArgs(args))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Printf("[DBG] AUTH %s%s\n", msg, formatArgs(args))
}

func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	return b.String()
}

// DefaultLogger returns the stdout logger used when none is configured
func DefaultLogger() Logger {
	return defLogger{}
}
