package repository

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

// NewDatabase opens a pgx connection pool and verifies it with a ping.
func NewDatabase(host, port, user, password, name string) (*pgxpool.Pool, error) {
	const connectTimeout = 5 * time.Second

	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, password),
		Host:   net.JoinHostPort(host, port),
		Path:   name,
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// EnsureSchema applies the embedded migrations in lexical order.
// Every statement is idempotent, so it is safe to run on each start.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		script, errRead := migrations.ReadFile(name)
		if errRead != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, errRead)
		}
		if _, errExec := r.db.Exec(ctx, string(script)); errExec != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, errExec)
		}
		r.log.DebugContext(ctx, "Migration applied", "name", name)
	}

	return nil
}
