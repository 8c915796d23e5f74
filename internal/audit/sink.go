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

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

// PostgresSink appends records to the ingestion_audit table.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates an audit sink backed by the given pool.
// It ensures the table exists on creation.
func NewPostgresSink(ctx context.Context, pool *pgxpool.Pool) (*PostgresSink, error) {
	s := &PostgresSink{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}
	slog.Info("audit sink initialised")
	return s, nil
}

func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ingestion_audit (
			id          UUID PRIMARY KEY,
			kind        TEXT NOT NULL,
			message_id  TEXT DEFAULT '',
			payload     JSONB,
			recorded_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_message ON ingestion_audit(message_id);
		CREATE INDEX IF NOT EXISTS idx_audit_recorded ON ingestion_audit(recorded_at);
	`)
	return err
}

// Write inserts rec.
func (s *PostgresSink) Write(ctx context.Context, rec models.AuditRecord) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO ingestion_audit (id, kind, message_id, payload, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.ID, string(rec.Kind), rec.MessageID, payload, rec.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// ListByMessage returns every record for messageID, oldest first.
func (s *PostgresSink) ListByMessage(ctx context.Context, messageID string) ([]models.AuditRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, kind, message_id, payload, recorded_at
		FROM ingestion_audit
		WHERE message_id = $1
		ORDER BY recorded_at
	`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// collectRecords scans multiple rows into a slice of AuditRecords.
func collectRecords(rows pgx.Rows) ([]models.AuditRecord, error) {
	var records []models.AuditRecord
	for rows.Next() {
		var (
			r       models.AuditRecord
			kind    string
			payload []byte
		)
		if err := rows.Scan(&r.ID, &kind, &r.MessageID, &payload, &r.RecordedAt); err != nil {
			return nil, err
		}
		r.Kind = models.AuditKind(kind)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &r.Payload); err != nil {
				return nil, fmt.Errorf("decode audit payload %s: %w", r.ID, err)
			}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// MemorySink keeps records in memory.
type MemorySink struct {
	mu      sync.Mutex
	records []models.AuditRecord
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write appends rec.
func (s *MemorySink) Write(_ context.Context, rec models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns a snapshot of all records.
func (s *MemorySink) Records() []models.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

// Kinds returns the kind of every record, in order.
func (s *MemorySink) Kinds() []models.AuditKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]models.AuditKind, len(s.records))
	for i, r := range s.records {
		kinds[i] = r.Kind
	}
	return kinds
}

// ForMessage returns the records for messageID.
func (s *MemorySink) ForMessage(messageID string) []models.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuditRecord
	for _, r := range s.records {
		if r.MessageID == messageID {
			out = append(out, r)
		}
	}
	return out
}

// ListByMessage returns the records for messageID.
func (s *MemorySink) ListByMessage(_ context.Context, messageID string) ([]models.AuditRecord, error) {
	return s.ForMessage(messageID), nil
}
