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

package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps named checkpoints in the ingestion_checkpoints table.
type PostgresStore struct {
	pool *pgxpool.Pool
	name string
}

// NewPostgresStore creates a checkpoint store for the given checkpoint name.
// It ensures the table exists on creation.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, name string) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool, name: name}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure checkpoint schema: %w", err)
	}
	slog.Info("checkpoint store initialised", "name", name)
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ingestion_checkpoints (
			name           TEXT PRIMARY KEY,
			last_processed TIMESTAMPTZ NOT NULL,
			updated_at     TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	return err
}

// Load returns the stored checkpoint, or nil if none exists.
func (s *PostgresStore) Load(ctx context.Context) (*time.Time, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT last_processed FROM ingestion_checkpoints WHERE name = $1
	`, s.name).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	t = t.UTC()
	return &t, nil
}

// Save advances the checkpoint. The stored value never moves backwards.
func (s *PostgresStore) Save(ctx context.Context, t time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingestion_checkpoints (name, last_processed)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET
			last_processed = GREATEST(ingestion_checkpoints.last_processed, EXCLUDED.last_processed),
			updated_at     = NOW()
	`, s.name, t.UTC())
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Reset deletes the checkpoint so the next cycle fetches everything.
func (s *PostgresStore) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM ingestion_checkpoints WHERE name = $1`, s.name)
	if err != nil {
		return fmt.Errorf("reset checkpoint: %w", err)
	}
	return nil
}
