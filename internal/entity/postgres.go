// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists entities in the ingested_entities table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates an entity store backed by the given pool.
// It ensures the table exists on creation.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure entity schema: %w", err)
	}
	slog.Info("entity store initialised")
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ingested_entities (
			id                UUID PRIMARY KEY,
			entity_type       TEXT NOT NULL,
			title             TEXT NOT NULL,
			dedup_key         TEXT DEFAULT '',
			source_message_id TEXT DEFAULT '',
			fields            JSONB NOT NULL,
			created_at        TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_entities_type ON ingested_entities(entity_type);
		CREATE INDEX IF NOT EXISTS idx_entities_dedup ON ingested_entities(entity_type, dedup_key);
	`)
	return err
}

// Create validates and inserts an entity, returning its id. Fields refused
// by the schema or by a database constraint yield a *RejectedError.
func (s *PostgresStore) Create(ctx context.Context, entityType string, fields map[string]any) (string, error) {
	if err := Check(entityType, fields); err != nil {
		return "", err
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("marshal entity fields: %w", err)
	}

	id := uuid.New().String()
	title, _ := fields[KeyTitle].(string)
	dedupKey, _ := fields[KeyDedup].(string)
	source, _ := fields[KeySourceMessage].(string)

	_, err = s.pool.Exec(ctx, `
		INSERT INTO ingested_entities
			(id, entity_type, title, dedup_key, source_message_id, fields)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, entityType, title, dedupKey, source, data)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
			return "", &RejectedError{EntityType: entityType, Field: pgErr.ColumnName, Reason: pgErr.Message}
		}
		return "", fmt.Errorf("insert entity: %w", err)
	}
	return id, nil
}

// FindByKey returns the id of an existing entity with the dedup key.
func (s *PostgresStore) FindByKey(ctx context.Context, entityType, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	var id string
	err := s.pool.QueryRow(ctx, `
		SELECT id::text FROM ingested_entities
		WHERE entity_type = $1 AND dedup_key = $2
		ORDER BY created_at
		LIMIT 1
	`, entityType, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find entity: %w", err)
	}
	return id, nil
}
