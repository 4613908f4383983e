package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is used when the service is created without a TTL
const DefaultTokenTTL = 24 * time.Hour

// TokenServiceImpl implements the TokenService interface with HS256
type TokenServiceImpl struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

// TokenServiceOption configures a TokenServiceImpl
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenIssuer sets the iss claim, validated on parse
func WithTokenIssuer(issuer string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.issuer = issuer
	}
}

// WithTokenAudience sets the aud claim, validated on parse
func WithTokenAudience(audience ...string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.audience = jwt.ClaimStrings(audience)
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// WithTokenClock overrides the time source, used in tests
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// NewTokenService creates a new TokenService instance. The signing key
// is process scoped configuration and is never exposed to clients.
func NewTokenService(signingKey []byte, ttl time.Duration, opts ...TokenServiceOption) *TokenServiceImpl {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	ts := &TokenServiceImpl{
		signingKey: signingKey,
		ttl:        ttl,
		logger:     defLogger{},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}
	return ts
}

// TTL returns the default token lifetime
func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.ttl
}

// Generate creates a JWT token with the default TTL
func (ts *TokenServiceImpl) Generate(identity Identity) (string, error) {
	token, _, err := ts.Issue(identity, ts.ttl)
	return token, err
}

// Issue creates a JWT for identity that expires after ttl
func (ts *TokenServiceImpl) Issue(identity Identity, ttl time.Duration) (string, time.Time, error) {
	if identity == nil {
		return "", time.Time{}, NewError(CategoryInternal, "NO_IDENTITY", "identity is required")
	}
	if ttl <= 0 {
		ttl = ts.ttl
	}

	now := ts.now()
	expiresAt := now.Add(ttl)
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:      identity.ID(),
		UserRole: identity.Role(),
	}

	token, err := ts.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", NewError(CategoryInternal, "NO_CLAIMS", "claims must not be nil")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", Wrap(err, CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string. Expired tokens return
// ErrTokenExpired, everything else ErrTokenMalformed.
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.now),
		jwt.WithExpirationRequired(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Warn("token service unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired.WithSource(err)
		}
		return nil, ErrTokenMalformed.WithSource(err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.UserID() == "" {
		ts.logger.Warn("token service could not decode claims")
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
