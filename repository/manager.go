package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// Manager exposes the SQL repositories and their transaction scope
type Manager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Users() *Users
}

type mngr struct {
	db    *bun.DB
	users *Users
}

var _ Manager = (*mngr)(nil)

func NewManager(db *bun.DB, opts ...UsersOption) Manager {
	return &mngr{
		db:    db,
		users: NewUsers(db, opts...),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}

	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() *Users {
	return m.users
}
