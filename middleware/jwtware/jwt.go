package jwtware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/skfsd/go-auth"
)

const (
	defaultHeader     = fiber.HeaderAuthorization
	defaultAuthScheme = "Bearer"
	defaultContextKey = "user"
	defaultClaimsKey  = "claims"
)

// ValidationListener is invoked after the token was validated and the user
// resolved, before the request proceeds.
type ValidationListener func(c *fiber.Ctx, claims auth.AuthClaims, user *auth.User) error

type Config struct {
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	ErrorHandler   fiber.ErrorHandler

	// TokenValidator is required for token validation
	TokenValidator auth.TokenValidator
	// Users resolves the token subject to the current record, required
	Users auth.UserFinder

	// Header and AuthScheme locate the token, "Authorization: Bearer <token>"
	Header     string
	AuthScheme string

	// ContextKey and ClaimsKey are the fiber locals the user and the
	// claims are stored under
	ContextKey string
	ClaimsKey  string

	// RequireActive rejects accounts with IsActive false
	RequireActive bool
	// RequireVerifiedEmail rejects accounts with EmailVerified false
	RequireVerifiedEmail bool

	ValidationListeners []ValidationListener

	Logger auth.Logger
}

// New returns the authentication middleware. Every request triggers one
// store lookup so deleted or deactivated accounts are rejected even while
// their token is still valid.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extract := jwtFromHeader(cfg.Header, cfg.AuthScheme)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := extract(c)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.TokenValidator.Validate(raw)
		if err != nil {
			cfg.Logger.Debug("jwtware token rejected", "error", err)
			return cfg.ErrorHandler(c, asTokenError(err))
		}

		id, err := uuid.Parse(claims.UserID())
		if err != nil {
			return cfg.ErrorHandler(c, auth.ErrTokenMalformed.WithSource(err))
		}

		user, err := cfg.Users.GetByID(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, auth.ErrRecordNotFound) {
				return cfg.ErrorHandler(c, auth.ErrUserNotFound.WithSource(err))
			}
			return cfg.ErrorHandler(c, auth.Wrap(err, auth.CategoryInternal, "failed to resolve token subject"))
		}

		if cfg.RequireActive && !user.IsActive {
			return cfg.ErrorHandler(c, auth.ErrAccountInactive)
		}

		if cfg.RequireVerifiedEmail && !user.EmailVerified {
			return cfg.ErrorHandler(c, auth.ErrEmailNotVerified)
		}

		for _, listener := range cfg.ValidationListeners {
			if listener == nil {
				continue
			}
			if err := listener(c, claims, user); err != nil {
				return cfg.ErrorHandler(c, err)
			}
		}

		c.Locals(cfg.ContextKey, user)
		c.Locals(cfg.ClaimsKey, claims)

		ctx := auth.WithContext(c.UserContext(), user)
		ctx = auth.WithClaimsContext(ctx, claims)
		c.SetUserContext(ctx)

		return cfg.SuccessHandler(c)
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenValidator == nil {
		panic("AUTH: JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.Users == nil {
		panic("AUTH: JWT middleware configuration: Users is required.")
	}

	if cfg.Logger == nil {
		cfg.Logger = auth.DefaultLogger()
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = ErrorResponder(cfg.Logger)
	}

	if cfg.Header == "" {
		cfg.Header = defaultHeader
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = defaultAuthScheme
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = defaultContextKey
	}

	if cfg.ClaimsKey == "" {
		cfg.ClaimsKey = defaultClaimsKey
	}

	return cfg
}

// ErrorResponder renders err as {"message": ...} with the status of its
// category. Internal errors are logged and replaced by a generic message.
func ErrorResponder(logger auth.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = auth.DefaultLogger()
	}
	return func(c *fiber.Ctx, err error) error {
		status := auth.HTTPStatus(err)
		if status == fiber.StatusInternalServerError {
			logger.Error("jwtware request failed", "path", c.Path(), "error", err)
		}
		return c.Status(status).JSON(fiber.Map{
			"message": auth.PublicMessage(err, "Server error."),
		})
	}
}

// asTokenError keeps expired and malformed errors as they are and turns
// anything else a validator returns into ErrTokenMalformed.
func asTokenError(err error) error {
	if errors.Is(err, auth.ErrTokenExpired) || errors.Is(err, auth.ErrTokenMalformed) {
		return err
	}
	return auth.ErrTokenMalformed.WithSource(err)
}

type JWTExtractor func(c *fiber.Ctx) (string, error)

// jwtFromHeader returns a function that extracts the token from the request
// header. The token is whatever follows the first space after the scheme,
// an empty token is left to the validator to reject.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	authScheme = strings.TrimSpace(authScheme)
	l := len(authScheme)
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		if len(a) > l && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			return strings.TrimSpace(a[l+1:]), nil
		}
		return "", auth.ErrNoToken
	}
}
