//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package mysql provides the MySQL client shared by the MySQL-backed stores.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Register the MySQL driver.
	_ "github.com/go-sql-driver/mysql"
)

// Client is the interface the MySQL-backed stores program against. It keeps
// store code decoupled from *sql.DB so tests can substitute a mock connection.
type Client interface {
	// Exec executes a statement that returns no rows.
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	// Query executes a query and invokes scanFn once per row.
	Query(ctx context.Context, scanFn func(rows *sql.Rows) error, query string, args ...any) error
	// QueryRow executes a query expected to return at most one row and scans
	// it into dest. Returns sql.ErrNoRows when the row is absent.
	QueryRow(ctx context.Context, dest []any, query string, args ...any) error
	// Transaction runs fn inside a transaction, committing on nil error and
	// rolling back otherwise.
	Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error
	// Ping verifies the connection is alive.
	Ping() error
	// Close releases the underlying connection pool.
	Close() error
}

// ClientOpts holds the connection settings for NewClient.
type ClientOpts struct {
	// DSN is the MySQL data source name, e.g.
	// "user:pass@tcp(127.0.0.1:3306)/eval?parseTime=true".
	DSN string
	// MaxOpenConns limits the number of open connections.
	MaxOpenConns int
	// MaxIdleConns limits the number of idle connections.
	MaxIdleConns int
	// ConnMaxLifetime bounds how long a connection may be reused.
	ConnMaxLifetime time.Duration
	// ConnMaxIdleTime bounds how long a connection may sit idle.
	ConnMaxIdleTime time.Duration
}

// ClientOpt is a functional option for NewClient.
type ClientOpt func(*ClientOpts)

// WithDSN sets the MySQL data source name.
func WithDSN(dsn string) ClientOpt {
	return func(o *ClientOpts) {
		o.DSN = dsn
	}
}

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) ClientOpt {
	return func(o *ClientOpts) {
		o.MaxOpenConns = n
	}
}

// WithMaxIdleConns sets the maximum number of idle connections.
func WithMaxIdleConns(n int) ClientOpt {
	return func(o *ClientOpts) {
		o.MaxIdleConns = n
	}
}

// WithConnMaxLifetime sets the maximum amount of time a connection may be reused.
func WithConnMaxLifetime(d time.Duration) ClientOpt {
	return func(o *ClientOpts) {
		o.ConnMaxLifetime = d
	}
}

// WithConnMaxIdleTime sets the maximum amount of time a connection may be idle.
func WithConnMaxIdleTime(d time.Duration) ClientOpt {
	return func(o *ClientOpts) {
		o.ConnMaxIdleTime = d
	}
}

// NewClient opens a MySQL connection pool, applies the pool settings and
// verifies the connection with a ping.
func NewClient(opt ...ClientOpt) (Client, error) {
	opts := &ClientOpts{}
	for _, o := range opt {
		o(opts)
	}
	if opts.DSN == "" {
		return nil, errors.New("mysql dsn is empty")
	}
	db, err := sql.Open("mysql", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return WrapDB(db), nil
}

// WrapDB wraps an existing *sql.DB as a Client. Useful in tests where the
// database handle is created by a mock.
func WrapDB(db *sql.DB) Client {
	return &client{db: db}
}

type client struct {
	db *sql.DB
}

// Exec implements Client.
func (c *client) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

// Query implements Client.
func (c *client) Query(ctx context.Context, scanFn func(rows *sql.Rows) error, query string, args ...any) error {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scanFn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// QueryRow implements Client.
func (c *client) QueryRow(ctx context.Context, dest []any, query string, args ...any) error {
	return c.db.QueryRowContext(ctx, query, args...).Scan(dest...)
}

// Transaction implements Client.
func (c *client) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Ping implements Client.
func (c *client) Ping() error {
	return c.db.Ping()
}

// Close implements Client.
func (c *client) Close() error {
	return c.db.Close()
}
