// Package persistence opens the SQL database backing the users store and
// applies the embedded migrations.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/migrate"

	"github.com/skfsd/go-auth"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultSQLiteDSN keeps the database in memory, shared between the pool's
// connections
const DefaultSQLiteDSN = "file::memory:?cache=shared"

type Config struct {
	Driver string
	DSN    string
	Debug  bool
}

// Open returns a bun.DB for the configured driver. The connection is
// checked with a ping before returning.
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	var db *bun.DB

	switch strings.ToLower(cfg.Driver) {
	case "", DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = DefaultSQLiteDSN
		}
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
			sqldb.SetMaxOpenConns(1)
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres requires a DSN")
		}
		sqldb, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
		))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	return db, nil
}

// Migrate applies the pending migrations of the database dialect.
// Applied migrations are recorded in bun_migrations, so Migrate can run on
// each start.
func Migrate(ctx context.Context, db *bun.DB) error {
	dir := path.Join("data/sql/migrations", dialectDir(db))
	fsys, err := fs.Sub(auth.GetMigrationsFS(), dir)
	if err != nil {
		return fmt.Errorf("migrations %s: %w", dir, err)
	}
	_, err = MigrateFS(ctx, db, fsys)
	return err
}

// MigrateFS discovers the NNNN_name.up.sql / .down.sql files at the root
// of fsys and applies the ones not yet recorded. The returned group is
// zero when nothing was pending.
func MigrateFS(ctx context.Context, db *bun.DB, fsys fs.FS) (*migrate.MigrationGroup, error) {
	migrations := migrate.NewMigrations()
	if err := migrations.Discover(fsys); err != nil {
		return nil, fmt.Errorf("discover migrations: %w", err)
	}

	migrator := migrate.NewMigrator(db, migrations, migrate.WithMarkAppliedOnSuccess(true))
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}

	if err := migrator.Lock(ctx); err != nil {
		return nil, fmt.Errorf("lock migrations: %w", err)
	}
	defer func() { _ = migrator.Unlock(ctx) }()

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return group, fmt.Errorf("apply migrations: %w", err)
	}
	return group, nil
}

func dialectDir(db *bun.DB) string {
	if db.Dialect().Name() == dialect.PG {
		return DriverPostgres
	}
	return DriverSQLite
}
