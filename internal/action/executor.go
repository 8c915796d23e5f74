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

// Package action turns validated records into durable entities.
package action

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/dedup"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/entity"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

// Reasons recorded on not-acted decisions.
const (
	ReasonNotAutoCreated = "category is not auto-created"
	ReasonDisabled       = "auto-create disabled"
	ReasonAlreadyActed   = "already acted"
	ReasonDuplicate      = "duplicate of existing entity"
)

// Options controls the action policy.
type Options struct {
	AutoCreate    bool
	DedupEntities bool
}

// Executor decides whether a record is acted on and persists it when it is.
// Only valid event records are persisted.
type Executor struct {
	store  entity.Store
	finder entity.Finder
	ledger dedup.Ledger
	opts   Options
	now    func() time.Time
}

// NewExecutor creates an executor. The ledger guards against acting twice
// on the same message id. Entity dedup is used only when the store also
// implements entity.Finder.
func NewExecutor(store entity.Store, ledger dedup.Ledger, opts Options) *Executor {
	e := &Executor{
		store:  store,
		ledger: ledger,
		opts:   opts,
		now:    time.Now,
	}
	if f, ok := store.(entity.Finder); ok {
		e.finder = f
	}
	return e
}

// MaybeAct applies the action policy to one validated record.
func (e *Executor) MaybeAct(ctx context.Context, messageID string, rec models.ExtractedRecord, v models.ValidationResult) models.Decision {
	d := models.Decision{
		MessageID:  messageID,
		Category:   rec.Category,
		Outcome:    models.OutcomeNotActed,
		Record:     &rec,
		Validation: &v,
		DecidedAt:  e.now().UTC(),
	}

	switch {
	case rec.Category != models.CategoryEvent:
		d.Reason = ReasonNotAutoCreated
		return d
	case !v.Valid:
		d.Reason = invalidReason(v)
		return d
	case !e.opts.AutoCreate:
		d.Reason = ReasonDisabled
		return d
	}

	if e.ledger != nil {
		seen, err := e.ledger.Seen(ctx, messageID)
		if err != nil {
			return e.fail(d, fmt.Errorf("check acted ledger: %w", err))
		}
		if seen {
			d.Reason = ReasonAlreadyActed
			return d
		}
	}

	key := dedup.EntityKey(rec.Field(models.FieldTitle), rec.Field(models.FieldStartDate))
	if e.opts.DedupEntities && e.finder != nil && key != "" {
		existing, err := e.finder.FindByKey(ctx, string(rec.Category), key)
		if err != nil {
			return e.fail(d, fmt.Errorf("look up duplicate entity: %w", err))
		}
		if existing != "" {
			d.Reason = ReasonDuplicate
			d.EntityID = existing
			return d
		}
	}

	id, err := e.store.Create(ctx, string(rec.Category), EntityFields(rec, v, key))
	if err != nil {
		return e.fail(d, err)
	}

	if e.ledger != nil {
		if err := e.ledger.Mark(ctx, messageID); err != nil {
			slog.Warn("failed to mark message as acted",
				"message_id", messageID,
				"entity_id", id,
				"error", err,
			)
		}
	}

	slog.Info("entity created",
		"message_id", messageID,
		"entity_id", id,
		"category", rec.Category,
		"confidence", v.Confidence,
	)

	d.Outcome = models.OutcomeActed
	d.EntityID = id
	return d
}

func (e *Executor) fail(d models.Decision, err error) models.Decision {
	slog.Error("action failed",
		"message_id", d.MessageID,
		"category", d.Category,
		"error", err,
	)
	d.Outcome = models.OutcomeFailed
	d.Reason = err.Error()
	return d
}

func invalidReason(v models.ValidationResult) string {
	if len(v.Issues) > 0 {
		return strings.Join(v.Issues, "; ")
	}
	return fmt.Sprintf("confidence %.2f below threshold", v.Confidence)
}

// EntityFields flattens a record into the field map handed to the store.
func EntityFields(rec models.ExtractedRecord, v models.ValidationResult, dedupKey string) map[string]any {
	fields := make(map[string]any, len(rec.Fields)+len(rec.Lists)+5)
	for k, val := range rec.Fields {
		fields[k] = val
	}
	for k, items := range rec.Lists {
		fields[k] = items
	}
	fields[entity.KeySourceMessage] = rec.Source.MessageID
	fields["source_sender"] = rec.Source.Sender
	fields["source_subject"] = rec.Source.Subject
	fields["confidence"] = v.Confidence
	if dedupKey != "" {
		fields[entity.KeyDedup] = dedupKey
	}
	return fields
}
