package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/skfsd/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenService(t *testing.T) {
	signingKey := []byte("test-signing-key")

	ts := auth.NewTokenService(signingKey, time.Hour)
	assert.NotNil(t, ts)
	assert.Equal(t, time.Hour, ts.TTL())

	ts = auth.NewTokenService(signingKey, 0)
	assert.Equal(t, auth.DefaultTokenTTL, ts.TTL())
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	signingKey := []byte("test-signing-key")
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ts := auth.NewTokenService(signingKey, time.Hour, auth.WithTokenClock(func() time.Time { return now }))

	identity := new(MockIdentity)
	identity.On("ID").Return("7b3b5a5e-8a4b-4c2f-9b7f-3c1f0e1c2d3e")
	identity.On("Role").Return("admin")

	token, expiresAt, err := ts.Issue(identity, 2*time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, now.Add(2*time.Hour), expiresAt)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := ts.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "7b3b5a5e-8a4b-4c2f-9b7f-3c1f0e1c2d3e", claims.Subject())
	assert.Equal(t, "7b3b5a5e-8a4b-4c2f-9b7f-3c1f0e1c2d3e", claims.UserID())
	assert.Equal(t, "admin", claims.Role())
	assert.True(t, claims.HasRole("supervisor", "admin"))
	assert.Equal(t, now.Unix(), claims.IssuedAt().Unix())
	assert.Equal(t, expiresAt.Unix(), claims.Expires().Unix())

	identity.AssertExpectations(t)
}

func TestTokenService_GenerateUsesDefaultTTL(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ts := auth.NewTokenService([]byte("k"), 30*time.Minute, auth.WithTokenClock(func() time.Time { return now }))

	token, err := ts.Generate(auth.IdentityFromUser(&auth.User{Role: auth.RoleUser}))
	require.NoError(t, err)

	claims, err := ts.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*time.Minute).Unix(), claims.Expires().Unix())
}

func TestTokenService_Validate(t *testing.T) {
	signingKey := []byte("test-signing-key")
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := issued

	ts := auth.NewTokenService(signingKey, time.Hour,
		auth.WithTokenClock(func() time.Time { return clock }),
		auth.WithTokenLogger(quietLogger{}),
	)

	user := &auth.User{Role: auth.RoleUser}
	valid, err := ts.Generate(auth.IdentityFromUser(user))
	require.NoError(t, err)

	other := auth.NewTokenService([]byte("another-key"), time.Hour, auth.WithTokenClock(func() time.Time { return clock }))
	foreign, err := other.Generate(auth.IdentityFromUser(user))
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "someone",
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
		},
		UID: "someone",
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExp, err := ts.SignClaims(&auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "someone"},
		UID:              "someone",
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		advance time.Duration
		wantErr error
	}{
		{name: "valid token", token: valid},
		{name: "expired token", token: valid, advance: 2 * time.Hour, wantErr: auth.ErrTokenExpired},
		{name: "wrong signing key", token: foreign, wantErr: auth.ErrTokenMalformed},
		{name: "alg none", token: unsigned, wantErr: auth.ErrTokenMalformed},
		{name: "missing exp", token: noExp, wantErr: auth.ErrTokenMalformed},
		{name: "garbage", token: "not.a.token", wantErr: auth.ErrTokenMalformed},
		{name: "empty", token: "", wantErr: auth.ErrTokenMalformed},
		{name: "tampered payload", token: tamper(valid), wantErr: auth.ErrTokenMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock = issued.Add(tt.advance)
			claims, err := ts.Validate(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, claims)
		})
	}

	clock = issued.Add(2 * time.Hour)
	_, err = ts.Validate(valid)
	assert.True(t, auth.IsTokenExpiredError(err))
	assert.False(t, auth.IsMalformedError(err))
}

func TestTokenService_IssuerAndAudience(t *testing.T) {
	key := []byte("test-signing-key")
	issuing := auth.NewTokenService(key, time.Hour, auth.WithTokenIssuer("skfsd"), auth.WithTokenAudience("skfsd-web"))

	token, err := issuing.Generate(auth.IdentityFromUser(&auth.User{Role: auth.RoleSPM}))
	require.NoError(t, err)

	_, err = issuing.Validate(token)
	assert.NoError(t, err)

	strict := auth.NewTokenService(key, time.Hour, auth.WithTokenIssuer("someone-else"))
	_, err = strict.Validate(token)
	assert.ErrorIs(t, err, auth.ErrTokenMalformed)
}

func TestTokenService_IssueNilIdentity(t *testing.T) {
	ts := auth.NewTokenService([]byte("k"), time.Hour)
	_, _, err := ts.Issue(nil, time.Hour)
	assert.Error(t, err)

	_, err = ts.SignClaims(nil)
	assert.Error(t, err)
}

func TestTokenValidatorFunc(t *testing.T) {
	var nilFunc auth.TokenValidatorFunc
	_, err := nilFunc.Validate("x")
	assert.ErrorIs(t, err, auth.ErrTokenMalformed)

	called := false
	fn := auth.TokenValidatorFunc(func(token string) (auth.AuthClaims, error) {
		called = true
		assert.Equal(t, "abc", token)
		return &auth.JWTClaims{UID: "1"}, nil
	})
	claims, err := fn.Validate("abc")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "1", claims.UserID())
}

func tamper(token string) string {
	parts := strings.Split(token, ".")
	payload := []byte(parts[1])
	if payload[0] == 'e' {
		payload[0] = 'f'
	} else {
		payload[0] = 'e'
	}
	parts[1] = string(payload)
	return strings.Join(parts, ".")
}
