package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"github.com/skfsd/go-auth"
)

// pgUniqueViolation is the SQLSTATE postgres reports for unique index
// violations
const pgUniqueViolation = "23505"

// Users is the bun backed implementation of auth.Users
type Users struct {
	db  *bun.DB
	now func() time.Time
}

var _ auth.Users = (*Users)(nil)

type UsersOption func(*Users)

// WithUsersClock overrides the clock used for created_at and updated_at
func WithUsersClock(now func() time.Time) UsersOption {
	return func(u *Users) {
		if now != nil {
			u.now = now
		}
	}
}

func NewUsers(db *bun.DB, opts ...UsersOption) *Users {
	u := &Users{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}
	return u
}

func (r *Users) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	return r.CreateTx(ctx, r.db, user)
}

// CreateTx inserts user. The unique indexes on email and employee_id are
// the only conflict check.
func (r *Users) CreateTx(ctx context.Context, tx bun.IDB, user *auth.User) (*auth.User, error) {
	record := *user
	record.Normalize()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := r.now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	if _, err := tx.NewInsert().Model(&record).Exec(ctx); err != nil {
		return nil, translateError(err)
	}

	return &record, nil
}

func (r *Users) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

func (r *Users) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*auth.User, error) {
	record := &auth.User{}
	err := tx.NewSelect().
		Model(record).
		ExcludeColumn("password_hash").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return record, nil
}

func (r *Users) GetByEmailWithPassword(ctx context.Context, email string) (*auth.User, error) {
	return r.GetByEmailWithPasswordTx(ctx, r.db, email)
}

func (r *Users) GetByEmailWithPasswordTx(ctx context.Context, tx bun.IDB, email string) (*auth.User, error) {
	record := &auth.User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", auth.NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return record, nil
}

func (r *Users) List(ctx context.Context) ([]*auth.User, error) {
	return r.ListTx(ctx, r.db)
}

func (r *Users) ListTx(ctx context.Context, tx bun.IDB) ([]*auth.User, error) {
	records := []*auth.User{}
	err := tx.NewSelect().
		Model(&records).
		ExcludeColumn("password_hash").
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return records, nil
}

func (r *Users) UpdateProfile(ctx context.Context, user *auth.User) (*auth.User, error) {
	return r.UpdateProfileTx(ctx, r.db, user)
}

// UpdateProfileTx writes the self service columns only, the password hash
// and identity columns are never part of the statement.
func (r *Users) UpdateProfileTx(ctx context.Context, tx bun.IDB, user *auth.User) (*auth.User, error) {
	record := *user
	record.UpdatedAt = r.now().UTC()

	res, err := tx.NewUpdate().
		Model(&record).
		Column("name", "phone", "preferences", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}

	return r.GetByIDTx(ctx, tx, record.ID)
}

func (r *Users) TrackSuccessfulLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.TrackSuccessfulLoginTx(ctx, r.db, id, at)
}

// TrackSuccessfulLoginTx stamps last_login without loading or validating
// the record.
func (r *Users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	at = at.UTC()
	res, err := tx.NewUpdate().
		Model((*auth.User)(nil)).
		Set("last_login = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return translateError(err)
	}
	return expectAffected(res)
}

func (r *Users) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DeleteTx(ctx, r.db, id)
}

func (r *Users) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model(&auth.User{ID: id}).
		WherePK().
		Exec(ctx)
	if err != nil {
		return translateError(err)
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return auth.Wrap(err, auth.CategoryInternal, "failed to read affected rows")
	}
	if n == 0 {
		return auth.ErrRecordNotFound
	}
	return nil
}

// translateError maps driver errors to the store error kinds
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return auth.ErrRecordNotFound.WithSource(err)
	case IsUniqueViolation(err):
		return auth.ErrDuplicateRecord.WithSource(err)
	default:
		return err
	}
}

// IsUniqueViolation reports whether err was raised by a unique index, for
// postgres (pgx) and sqlite drivers.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// sqlite drivers only expose the constraint through the message
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
