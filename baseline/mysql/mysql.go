//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package mysql provides a MySQL-backed baseline store.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-eval-go/baseline"
	storage "trpc.group/trpc-go/trpc-eval-go/storage/mysql"
)

const defaultTable = "eval_baselines"

// The JSON column carries the full baseline; the extracted columns exist for
// lookups and ordering. is_active is authoritative in the column, since
// deactivation only touches the column, not the stored JSON.
const createTableDDL = `CREATE TABLE IF NOT EXISTS {{TABLE_NAME}} (
    id VARCHAR(64) NOT NULL,
    dataset_id VARCHAR(255) NOT NULL,
    run_id VARCHAR(64) NOT NULL,
    model_id VARCHAR(255) NOT NULL DEFAULT '',
    is_active TINYINT(1) NOT NULL DEFAULT 0,
    baseline JSON NOT NULL,
    created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
    PRIMARY KEY (id),
    KEY idx_baseline_dataset_active (dataset_id, is_active),
    KEY idx_baseline_dataset_created (dataset_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`

const schemaInitTimeout = 10 * time.Second

// options configures the MySQL baseline manager.
type options struct {
	table          string
	skipSchemaInit bool
}

// Option is a functional option for New.
type Option func(*options)

// WithTable overrides the baseline table name.
func WithTable(name string) Option {
	return func(o *options) {
		if name != "" {
			o.table = name
		}
	}
}

// WithSkipSchemaInit disables table creation on construction, for
// deployments where schema is managed externally.
func WithSkipSchemaInit() Option {
	return func(o *options) {
		o.skipSchemaInit = true
	}
}

// manager implements baseline.Manager on top of a MySQL client.
type manager struct {
	db    storage.Client
	table string
}

// New creates a MySQL-backed baseline manager and ensures its table exists
// unless WithSkipSchemaInit is given.
func New(db storage.Client, opt ...Option) (baseline.Manager, error) {
	if db == nil {
		return nil, errors.New("mysql client is nil")
	}
	opts := &options{table: defaultTable}
	for _, o := range opt {
		o(opts)
	}
	m := &manager{db: db, table: opts.table}
	if !opts.skipSchemaInit {
		ctx, cancel := context.WithTimeout(context.Background(), schemaInitTimeout)
		defer cancel()
		if err := m.ensureSchema(ctx); err != nil {
			return nil, fmt.Errorf("init baseline table %s: %w", m.table, err)
		}
	}
	return m, nil
}

func (m *manager) ensureSchema(ctx context.Context) error {
	ddl := strings.ReplaceAll(createTableDDL, "{{TABLE_NAME}}", m.table)
	_, err := m.db.Exec(ctx, ddl)
	return err
}

// Promote inserts b as the active baseline and deactivates the previously
// active baseline of the same dataset in one transaction.
func (m *manager) Promote(ctx context.Context, b *baseline.Baseline) error {
	if err := b.Validate(); err != nil {
		return err
	}
	promoted := *b
	promoted.IsActive = true
	if promoted.CreatedAt.IsZero() {
		promoted.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(&promoted)
	if err != nil {
		return fmt.Errorf("marshal baseline %s: %w", promoted.ID, err)
	}
	return m.db.Transaction(ctx, func(tx *sql.Tx) error {
		deactivate := fmt.Sprintf(
			"UPDATE %s SET is_active = 0 WHERE dataset_id = ? AND is_active = 1", m.table)
		if _, err := tx.ExecContext(ctx, deactivate, promoted.DatasetID); err != nil {
			return fmt.Errorf("deactivate previous baseline: %w", err)
		}
		insert := fmt.Sprintf(
			"INSERT INTO %s (id, dataset_id, run_id, model_id, is_active, baseline, created_at) "+
				"VALUES (?, ?, ?, ?, 1, ?, ?)", m.table)
		if _, err := tx.ExecContext(ctx, insert,
			promoted.ID, promoted.DatasetID, promoted.RunID, promoted.ModelID,
			payload, promoted.CreatedAt); err != nil {
			return fmt.Errorf("insert baseline %s: %w", promoted.ID, err)
		}
		return nil
	})
}

// Active returns the active baseline for a dataset.
func (m *manager) Active(ctx context.Context, datasetID string) (*baseline.Baseline, error) {
	if datasetID == "" {
		return nil, errors.New("dataset id is empty")
	}
	query := fmt.Sprintf(
		"SELECT baseline, is_active FROM %s WHERE dataset_id = ? AND is_active = 1 LIMIT 1", m.table)
	var payload []byte
	var active bool
	err := m.db.QueryRow(ctx, []any{&payload, &active}, query, datasetID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active baseline for dataset %s: %w", datasetID, os.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("query active baseline for dataset %s: %w", datasetID, err)
	}
	return decodeBaseline(payload, active)
}

// Get returns the baseline with the given ID.
func (m *manager) Get(ctx context.Context, id string) (*baseline.Baseline, error) {
	if id == "" {
		return nil, errors.New("baseline id is empty")
	}
	query := fmt.Sprintf("SELECT baseline, is_active FROM %s WHERE id = ?", m.table)
	var payload []byte
	var active bool
	err := m.db.QueryRow(ctx, []any{&payload, &active}, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get baseline %s: %w", id, os.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("query baseline %s: %w", id, err)
	}
	return decodeBaseline(payload, active)
}

// History returns all baselines for a dataset, newest first.
func (m *manager) History(ctx context.Context, datasetID string) ([]*baseline.Baseline, error) {
	if datasetID == "" {
		return nil, errors.New("dataset id is empty")
	}
	query := fmt.Sprintf(
		"SELECT baseline, is_active FROM %s WHERE dataset_id = ? ORDER BY created_at DESC, id DESC",
		m.table)
	var history []*baseline.Baseline
	err := m.db.Query(ctx, func(rows *sql.Rows) error {
		var payload []byte
		var active bool
		if err := rows.Scan(&payload, &active); err != nil {
			return err
		}
		b, err := decodeBaseline(payload, active)
		if err != nil {
			return err
		}
		history = append(history, b)
		return nil
	}, query, datasetID)
	if err != nil {
		return nil, fmt.Errorf("query baseline history for dataset %s: %w", datasetID, err)
	}
	return history, nil
}

func decodeBaseline(payload []byte, active bool) (*baseline.Baseline, error) {
	var b baseline.Baseline
	if err := json.Unmarshal(payload, &b); err != nil {
		return nil, fmt.Errorf("unmarshal baseline: %w", err)
	}
	b.IsActive = active
	return &b, nil
}
