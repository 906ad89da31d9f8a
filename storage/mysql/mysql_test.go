//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package mysql

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient(t *testing.T) (Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return WrapDB(db), mock
}

// TestNewClient_EmptyDSN verifies that an unset DSN is rejected before any
// connection attempt.
func TestNewClient_EmptyDSN(t *testing.T) {
	cli, err := NewClient()
	assert.Nil(t, cli)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "dsn is empty")
}

// TestWithOptions verifies the option functions populate ClientOpts.
func TestWithOptions(t *testing.T) {
	opts := &ClientOpts{}
	for _, o := range []ClientOpt{
		WithDSN("user:pass@tcp(localhost:3306)/eval?parseTime=true"),
		WithMaxOpenConns(16),
		WithMaxIdleConns(4),
		WithConnMaxLifetime(time.Hour),
		WithConnMaxIdleTime(10 * time.Minute),
	} {
		o(opts)
	}
	assert.Equal(t, "user:pass@tcp(localhost:3306)/eval?parseTime=true", opts.DSN)
	assert.Equal(t, 16, opts.MaxOpenConns)
	assert.Equal(t, 4, opts.MaxIdleConns)
	assert.Equal(t, time.Hour, opts.ConnMaxLifetime)
	assert.Equal(t, 10*time.Minute, opts.ConnMaxIdleTime)
}

// TestClient_Exec verifies Exec forwards statements to the database.
func TestClient_Exec(t *testing.T) {
	cli, mock := newMockClient(t)
	mock.ExpectExec("DELETE FROM eval_runs").
		WithArgs("run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := cli.Exec(context.Background(), "DELETE FROM eval_runs WHERE id = ?", "run-1")
	require.NoError(t, err)
	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestClient_Query verifies Query invokes the scan callback once per row.
func TestClient_Query(t *testing.T) {
	cli, mock := newMockClient(t)
	mock.ExpectQuery("SELECT id FROM eval_runs").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("run-1").AddRow("run-2"))

	var ids []string
	err := cli.Query(context.Background(), func(rows *sql.Rows) error {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	}, "SELECT id FROM eval_runs")
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1", "run-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestClient_QueryRow verifies single-row scans and the no-row error.
func TestClient_QueryRow(t *testing.T) {
	cli, mock := newMockClient(t)
	mock.ExpectQuery("SELECT dataset_id FROM eval_runs").
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"dataset_id"}).AddRow("qa-v1"))
	mock.ExpectQuery("SELECT dataset_id FROM eval_runs").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	var datasetID string
	err := cli.QueryRow(context.Background(), []any{&datasetID},
		"SELECT dataset_id FROM eval_runs WHERE id = ?", "run-1")
	require.NoError(t, err)
	assert.Equal(t, "qa-v1", datasetID)

	err = cli.QueryRow(context.Background(), []any{&datasetID},
		"SELECT dataset_id FROM eval_runs WHERE id = ?", "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestClient_Transaction verifies commit on success and rollback on failure.
func TestClient_Transaction(t *testing.T) {
	cli, mock := newMockClient(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE eval_runs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := cli.Transaction(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), "UPDATE eval_runs SET status = ?", 2)
		return err
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	wantErr := errors.New("boom")
	err = cli.Transaction(context.Background(), func(tx *sql.Tx) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestClient_Ping verifies the ping passthrough.
func TestClient_Ping(t *testing.T) {
	cli, mock := newMockClient(t)
	mock.ExpectPing()
	assert.NoError(t, cli.Ping())
	assert.NoError(t, mock.ExpectationsWereMet())
}
