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

// Package audit keeps the append-only trail that lets an operator
// reconstruct why any message was or was not acted on.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

// DefaultWriteTimeout bounds a single sink write.
const DefaultWriteTimeout = 5 * time.Second

// Sink stores audit records. Records are never updated or deleted.
type Sink interface {
	Write(ctx context.Context, rec models.AuditRecord) error
}

// Logger writes audit records and never fails its caller: a sink error,
// timeout or panic is reported to the diagnostic logger and dropped.
type Logger struct {
	sink    Sink
	timeout time.Duration
	diag    *slog.Logger
	now     func() time.Time
}

// NewLogger creates an audit logger. A nil diag logs JSON to stderr.
func NewLogger(sink Sink, timeout time.Duration, diag *slog.Logger) *Logger {
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	if diag == nil {
		diag = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return &Logger{
		sink:    sink,
		timeout: timeout,
		diag:    diag,
		now:     time.Now,
	}
}

// Record appends one audit record.
func (l *Logger) Record(ctx context.Context, kind models.AuditKind, messageID string, payload map[string]any) {
	rec := models.AuditRecord{
		ID:         uuid.New().String(),
		Kind:       kind,
		MessageID:  messageID,
		Payload:    payload,
		RecordedAt: l.now().UTC(),
	}

	if err := l.write(ctx, rec); err != nil {
		l.diag.Error("audit write failed",
			"audit_id", rec.ID,
			"kind", kind,
			"message_id", messageID,
			"error", err,
		)
	}
}

func (l *Logger) write(ctx context.Context, rec models.AuditRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("audit sink panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()
	return l.sink.Write(ctx, rec)
}

// RecordDecision writes the terminal audit record for a decision.
func (l *Logger) RecordDecision(ctx context.Context, d models.Decision) error {
	l.Record(ctx, models.AuditKindFor(d.Outcome), d.MessageID, DecisionPayload(d))
	return nil
}

// DecisionPayload renders the fields an operator needs to understand d.
func DecisionPayload(d models.Decision) map[string]any {
	p := map[string]any{
		"outcome": string(d.Outcome),
	}
	if d.Category != "" {
		p["category"] = string(d.Category)
	}
	if d.Reason != "" {
		p["reason"] = d.Reason
	}
	if d.EntityID != "" {
		p["entity_id"] = d.EntityID
	}
	if d.Validation != nil {
		p["confidence"] = d.Validation.Confidence
		p["valid"] = d.Validation.Valid
		p["issues"] = d.Validation.Issues
		p["verified"] = d.Validation.Verified
	}
	if d.Record != nil {
		p["fields"] = d.Record.Fields
		if len(d.Record.Lists) > 0 {
			p["lists"] = d.Record.Lists
		}
		p["source"] = d.Record.Source
	}
	return p
}

// ClassificationPayload renders classifier scores for the classification
// record.
func ClassificationPayload(scores []models.CategoryScore, detected []models.CategoryScore) map[string]any {
	all := make(map[string]float64, len(scores))
	for _, s := range scores {
		all[string(s.Category)] = s.Confidence
	}
	det := make([]string, 0, len(detected))
	for _, s := range detected {
		det = append(det, string(s.Category))
	}
	return map[string]any{
		"scores":   all,
		"detected": det,
	}
}
