package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RegisterRequest carries the registration input
type RegisterRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	EmployeeID string `json:"employeeId"`
	Phone      string `json:"phone"`
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

// AccountService orchestrates registration, login and account management
type AccountService struct {
	users    Users
	hasher   PasswordHasher
	tokens   TokenService
	tokenTTL time.Duration
	logger   Logger
	activity ActivitySink
	now      func() time.Time

	requireActive bool

	dummyOnce sync.Once
	dummyHash string
}

// NewAccountService creates an AccountService. Inactive accounts cannot
// login unless WithRequireActive(false) is used.
func NewAccountService(users Users, tokens TokenService, hasher PasswordHasher) *AccountService {
	if hasher == nil {
		hasher = defaultHasher
	}
	return &AccountService{
		users:         users,
		hasher:        hasher,
		tokens:        tokens,
		logger:        defLogger{},
		activity:      noopActivitySink{},
		now:           time.Now,
		requireActive: true,
	}
}

func (s *AccountService) WithLogger(logger Logger) *AccountService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting account events.
func (s *AccountService) WithActivitySink(sink ActivitySink) *AccountService {
	s.activity = normalizeActivitySink(sink)
	return s
}

// WithTokenTTL overrides the token service default TTL for login tokens
func (s *AccountService) WithTokenTTL(ttl time.Duration) *AccountService {
	s.tokenTTL = ttl
	return s
}

// WithRequireActive toggles rejecting logins of inactive accounts
func (s *AccountService) WithRequireActive(v bool) *AccountService {
	s.requireActive = v
	return s
}

// WithClock overrides the time source
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	if now != nil {
		s.now = now
	}
	return s
}

// Register validates and stores a new account. The password is hashed
// here, the only place a plaintext reaches the service.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	user := NewUser(req.Name, req.Email, req.EmployeeID, req.Phone)

	if err := ValidateRegistration(user, req.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("register hash password", "error", err)
		return nil, Wrap(err, CategoryInternal, "failed to hash password")
	}
	user.PasswordHash = hash

	// The unique indexes are the only source of truth for conflicts,
	// there is no lookup before the insert.
	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, ErrDuplicateRecord) {
			return nil, ErrConflict.WithSource(err)
		}
		s.logger.Error("register create user", "error", err)
		return nil, Wrap(err, CategoryInternal, "failed to create user")
	}

	s.emit(ctx, ActivityEventUserRegistered, created.ID.String(), created.ID.String(), map[string]any{
		"email": created.Email,
	})

	return created.Sanitized(), nil
}

// Login verifies the credentials and issues a token. Unknown users and
// wrong passwords produce the same ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetByEmailWithPassword(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			// unknown emails pay for a comparison too so timing does not
			// reveal which accounts exist
			s.compareDummy(password)
			s.emit(ctx, ActivityEventLoginFailure, "", "", map[string]any{"email": NormalizeEmail(email)})
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("login find user", "error", err)
		return nil, Wrap(err, CategoryInternal, "failed to retrieve user")
	}

	if err := s.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if !errors.Is(err, ErrMismatchedHashAndPassword) {
			s.logger.Error("login compare password", "error", err)
		}
		s.emit(ctx, ActivityEventLoginFailure, "", user.ID.String(), map[string]any{"email": user.Email})
		return nil, ErrInvalidCredentials
	}

	if s.requireActive && !user.IsActive {
		s.emit(ctx, ActivityEventLoginFailure, "", user.ID.String(), map[string]any{"reason": "inactive"})
		return nil, ErrAccountInactive
	}

	now := s.now()
	if err := s.users.TrackSuccessfulLogin(ctx, user.ID, now); err != nil {
		s.logger.Error("login track successful login", "error", err)
		return nil, Wrap(err, CategoryInternal, "failed to track login")
	}
	user.LastLogin = &now

	token, expiresAt, err := s.tokens.Issue(IdentityFromUser(user), s.tokenTTL)
	if err != nil {
		s.logger.Error("login issue token", "error", err)
		return nil, Wrap(err, CategoryInternal, "failed to issue token")
	}

	s.emit(ctx, ActivityEventLoginSuccess, user.ID.String(), user.ID.String(), nil)

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.Sanitized(),
	}, nil
}

// Profile returns the account with the given id
func (s *AccountService) Profile(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, s.translateLookup(err, "profile find user")
	}
	return user.Sanitized(), nil
}

// UpdateProfile applies a self service update. Ownership is enforced by
// the caller, this method only guards which fields can change.
func (s *AccountService) UpdateProfile(ctx context.Context, actorID string, id uuid.UUID, upd ProfileUpdate) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, s.translateLookup(err, "update profile find user")
	}

	upd.Apply(user)

	if err := ValidateProfile(user); err != nil {
		return nil, err
	}

	updated, err := s.users.UpdateProfile(ctx, user)
	if err != nil {
		return nil, s.translateLookup(err, "update profile persist")
	}

	s.emit(ctx, ActivityEventProfileUpdated, actorID, updated.ID.String(), nil)

	return updated.Sanitized(), nil
}

// ListUsers returns every account
func (s *AccountService) ListUsers(ctx context.Context) ([]*User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		s.logger.Error("list users", "error", err)
		return nil, Wrap(err, CategoryInternal, "failed to list users")
	}
	out := make([]*User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Sanitized())
	}
	return out, nil
}

// DeleteUser permanently removes an account
func (s *AccountService) DeleteUser(ctx context.Context, actorID string, id uuid.UUID) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return s.translateLookup(err, "delete user")
	}
	s.emit(ctx, ActivityEventUserDeleted, actorID, id.String(), nil)
	return nil
}

// compareDummy runs a comparison against a hash made with the configured
// hasher, the result is discarded.
func (s *AccountService) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.HashPassword("not-a-real-password")
		if err != nil {
			s.logger.Warn("login dummy hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_ = s.hasher.ComparePasswordAndHash(password, s.dummyHash)
	}
}

func (s *AccountService) translateLookup(err error, op string) error {
	if errors.Is(err, ErrRecordNotFound) {
		return ErrNotFound.WithSource(err)
	}
	s.logger.Error(op, "error", err)
	return Wrap(err, CategoryInternal, op)
}

func (s *AccountService) emit(ctx context.Context, eventType ActivityEventType, actorID, userID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		ActorID:    actorID,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: s.now(),
	}
	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink failed", "event", string(eventType), "error", err)
	}
}
