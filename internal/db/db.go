package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

type Options struct {
	DSN     string
	MaxOpen int
	MaxIdle int
}

// Open connects to postgres and pings it, failing fast when the server is unreachable.
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("database url is required")
	}
	conn, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if opts.MaxOpen > 0 {
		conn.SetMaxOpenConns(opts.MaxOpen)
	}
	if opts.MaxIdle > 0 {
		conn.SetMaxIdleConns(opts.MaxIdle)
	}
	conn.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return conn, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
