package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/skfsd/go-auth"
	"github.com/skfsd/go-auth/persistence"
)

func setupUsersRepo(t *testing.T) (*Users, *bun.DB, *time.Time) {
	t.Helper()
	ctx := context.Background()

	db, err := persistence.Open(ctx, persistence.Config{
		Driver: persistence.DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, persistence.Migrate(ctx, db))

	now := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	repo := NewUsers(db, WithUsersClock(func() time.Time { return now }))
	return repo, db, &now
}

func newRecord(email, employeeID string) *auth.User {
	u := auth.NewUser("Ada Lovelace", email, employeeID, "+12015550123")
	u.PasswordHash = "$2a$04$abcdefghijklmnopqrstuuJ3sB8Yb1m7o7QeH2r5d8fX5n9uQy0aG"
	return u
}

func TestUsersCreateAndGet(t *testing.T) {
	repo, _, now := setupUsersRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, newRecord("Ada@Example.com", "E-1"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.Equal(t, *now, created.CreatedAt)
	assert.Equal(t, *now, created.UpdatedAt)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)
	assert.Equal(t, "E-1", byID.EmployeeID)
	assert.Empty(t, byID.PasswordHash, "GetByID must not load the hash")
	assert.Equal(t, auth.DefaultPreferences(), byID.Preferences)
	assert.Equal(t, auth.RoleUser, byID.Role)
	assert.True(t, byID.IsActive)
	assert.Nil(t, byID.LastLogin)

	withHash, err := repo.GetByEmailWithPassword(ctx, "  ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, withHash.ID)
	assert.NotEmpty(t, withHash.PasswordHash)
}

func TestUsersCreateUniqueness(t *testing.T) {
	repo, _, _ := setupUsersRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, newRecord("a@x.com", "E1"))
	require.NoError(t, err)

	tests := []struct {
		name       string
		email      string
		employeeID string
	}{
		{"same email", "a@x.com", "E2"},
		{"same email different case", "A@X.com", "E3"},
		{"same employee id", "b@x.com", "E1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Create(ctx, newRecord(tt.email, tt.employeeID))
			assert.ErrorIs(t, err, auth.ErrDuplicateRecord)
		})
	}

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUsersNotFound(t *testing.T) {
	repo, _, _ := setupUsersRepo(t)
	ctx := context.Background()
	missing := uuid.New()

	_, err := repo.GetByID(ctx, missing)
	assert.ErrorIs(t, err, auth.ErrRecordNotFound)

	_, err = repo.GetByEmailWithPassword(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, auth.ErrRecordNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, missing), auth.ErrRecordNotFound)
	assert.ErrorIs(t, repo.TrackSuccessfulLogin(ctx, missing, time.Now()), auth.ErrRecordNotFound)

	_, err = repo.UpdateProfile(ctx, &auth.User{ID: missing, Name: "Nobody"})
	assert.ErrorIs(t, err, auth.ErrRecordNotFound)
}

func TestUsersUpdateProfileKeepsOtherColumns(t *testing.T) {
	repo, _, now := setupUsersRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, newRecord("a@x.com", "E1"))
	require.NoError(t, err)

	*now = now.Add(time.Hour)

	change := *created
	change.Name = "Grace Hopper"
	change.Phone = ""
	change.Preferences.Theme = auth.ThemeDark
	change.Role = auth.RoleAdmin
	change.Email = "evil@x.com"
	change.PasswordHash = ""

	updated, err := repo.UpdateProfile(ctx, &change)
	require.NoError(t, err)

	assert.Equal(t, "Grace Hopper", updated.Name)
	assert.Equal(t, "", updated.Phone)
	assert.Equal(t, auth.ThemeDark, updated.Preferences.Theme)
	assert.True(t, now.Equal(updated.UpdatedAt))
	assert.Equal(t, auth.RoleUser, updated.Role)
	assert.Equal(t, "a@x.com", updated.Email)

	withHash, err := repo.GetByEmailWithPassword(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.PasswordHash, withHash.PasswordHash)
}

func TestUsersTrackSuccessfulLogin(t *testing.T) {
	repo, _, _ := setupUsersRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, newRecord("a@x.com", "E1"))
	require.NoError(t, err)

	at := time.Date(2025, 6, 7, 8, 9, 10, 0, time.UTC)
	require.NoError(t, repo.TrackSuccessfulLogin(ctx, created.ID, at))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, at.Equal(*got.LastLogin))
}

func TestUsersListAndDelete(t *testing.T) {
	repo, _, _ := setupUsersRepo(t)
	ctx := context.Background()

	a, err := repo.Create(ctx, newRecord("a@x.com", "E1"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newRecord("b@x.com", "E2"))
	require.NoError(t, err)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.Empty(t, u.PasswordHash)
	}

	require.NoError(t, repo.Delete(ctx, a.ID))

	_, err = repo.GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, auth.ErrRecordNotFound)

	users, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUsersCreateTxRollsBack(t *testing.T) {
	repo, db, _ := setupUsersRepo(t)
	ctx := context.Background()
	m := NewManager(db)
	require.NoError(t, m.Validate())

	sentinel := errors.New("abort")
	err := m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := m.Users().CreateTx(ctx, tx, newRecord("a@x.com", "E1")); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestManagerValidate(t *testing.T) {
	assert.Error(t, NewManager(nil).Validate())
	assert.Panics(t, func() { NewManager(nil).MustValidate() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, db, _ := setupUsersRepo(t)
	err := NewManager(db).RunInTx(ctx, nil, func(context.Context, bun.Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)")))
	assert.False(t, IsUniqueViolation(errors.New("no such table: users")))
}
