package auth_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/skfsd/go-auth"
	"github.com/stretchr/testify/mock"
)

// MockUsers implements auth.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	return userResult(args, ctx, user)
}

func (m *MockUsers) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByEmailWithPassword(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) List(ctx context.Context) ([]*auth.User, error) {
	args := m.Called(ctx)
	if u, ok := args.Get(0).([]*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) UpdateProfile(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	return userResult(args, ctx, user)
}

// userResult supports both a fixed *auth.User and a func computing it
// from the call arguments.
func userResult(args mock.Arguments, ctx context.Context, user *auth.User) (*auth.User, error) {
	switch v := args.Get(0).(type) {
	case *auth.User:
		return v, args.Error(1)
	case func(context.Context, *auth.User) *auth.User:
		return v(ctx, user), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) TrackSuccessfulLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockUsers) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockIdentity implements auth.Identity for testing
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Role() string {
	args := m.Called()
	return args.String(0)
}

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// quietLogger discards everything
type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}
