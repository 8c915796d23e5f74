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

package action

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/dedup"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/entity"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

type failingStore struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *failingStore) Create(context.Context, string, map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return "", f.err
}

func validEvent() (models.ExtractedRecord, models.ValidationResult) {
	rec := models.ExtractedRecord{
		Category: models.CategoryEvent,
		Source:   models.SourceRef{MessageID: "m1", Sender: "cubmaster@example.org"},
		Fields: map[string]string{
			models.FieldTitle:        "Pack Meeting",
			models.FieldDate:         "March 15, 2024",
			models.FieldStartDate:    "2024-03-15",
			models.FieldLocationName: "Community Center",
		},
	}
	return rec, models.ValidationResult{Valid: true, Confidence: 0.9, Issues: []string{}}
}

func TestMaybeActCreatesEntity(t *testing.T) {
	store := entity.NewMemoryStore()
	ledger := dedup.NewMemoryLedger(10, time.Hour)
	ex := NewExecutor(store, ledger, Options{AutoCreate: true})

	rec, v := validEvent()
	d := ex.MaybeAct(context.Background(), "m1", rec, v)

	if d.Outcome != models.OutcomeActed {
		t.Fatalf("Outcome = %q (%s), want acted", d.Outcome, d.Reason)
	}
	all := store.All()
	if len(all) != 1 || all[0].ID != d.EntityID {
		t.Fatalf("entities = %+v, want one with id %q", all, d.EntityID)
	}
	if all[0].Fields[entity.KeySourceMessage] != "m1" {
		t.Errorf("source_message_id = %v, want m1", all[0].Fields[entity.KeySourceMessage])
	}
	if seen, _ := ledger.Seen(context.Background(), "m1"); !seen {
		t.Error("message not marked in acted ledger")
	}
}

func TestMaybeActIsIdempotentPerMessage(t *testing.T) {
	store := entity.NewMemoryStore()
	ex := NewExecutor(store, dedup.NewMemoryLedger(10, time.Hour), Options{AutoCreate: true})
	rec, v := validEvent()

	first := ex.MaybeAct(context.Background(), "m1", rec, v)
	second := ex.MaybeAct(context.Background(), "m1", rec, v)

	if first.Outcome != models.OutcomeActed {
		t.Fatalf("first Outcome = %q, want acted", first.Outcome)
	}
	if second.Outcome != models.OutcomeNotActed || second.Reason != ReasonAlreadyActed {
		t.Errorf("second = %q/%q, want not_acted/%q", second.Outcome, second.Reason, ReasonAlreadyActed)
	}
	if n := len(store.All()); n != 1 {
		t.Errorf("entities = %d, want 1", n)
	}
}

func TestMaybeActPolicy(t *testing.T) {
	rec, v := validEvent()
	announcement := rec
	announcement.Category = models.CategoryAnnouncement

	tests := []struct {
		name       string
		opts       Options
		rec        models.ExtractedRecord
		v          models.ValidationResult
		wantReason string
	}{
		{"non-event", Options{AutoCreate: true}, announcement, v, ReasonNotAutoCreated},
		{"invalid", Options{AutoCreate: true}, rec, models.ValidationResult{Confidence: 0.3, Issues: []string{"missing start date", "missing location"}}, "missing start date; missing location"},
		{"low confidence", Options{AutoCreate: true}, rec, models.ValidationResult{Confidence: 0.5}, "confidence 0.50 below threshold"},
		{"disabled", Options{AutoCreate: false}, rec, v, ReasonDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := entity.NewMemoryStore()
			d := NewExecutor(store, nil, tt.opts).MaybeAct(context.Background(), "m1", tt.rec, tt.v)

			if d.Outcome != models.OutcomeNotActed {
				t.Errorf("Outcome = %q, want not_acted", d.Outcome)
			}
			if d.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", d.Reason, tt.wantReason)
			}
			if len(store.All()) != 0 {
				t.Error("entity created")
			}
		})
	}
}

func TestMaybeActPersistenceFailure(t *testing.T) {
	store := &failingStore{err: &entity.RejectedError{EntityType: "event", Field: "start_date", Reason: "is required"}}
	ledger := dedup.NewMemoryLedger(10, time.Hour)
	rec, v := validEvent()

	d := NewExecutor(store, ledger, Options{AutoCreate: true}).MaybeAct(context.Background(), "m1", rec, v)

	if d.Outcome != models.OutcomeFailed {
		t.Fatalf("Outcome = %q, want action_failed", d.Outcome)
	}
	if d.Reason != "event rejected: start_date is required" {
		t.Errorf("Reason = %q", d.Reason)
	}
	if seen, _ := ledger.Seen(context.Background(), "m1"); seen {
		t.Error("failed message marked as acted")
	}
}

type brokenLedger struct{}

func (brokenLedger) Seen(context.Context, string) (bool, error) { return false, errors.New("redis down") }
func (brokenLedger) Mark(context.Context, string) error         { return nil }

func TestMaybeActLedgerFailure(t *testing.T) {
	store := &failingStore{}
	rec, v := validEvent()

	d := NewExecutor(store, brokenLedger{}, Options{AutoCreate: true}).MaybeAct(context.Background(), "m1", rec, v)

	if d.Outcome != models.OutcomeFailed {
		t.Errorf("Outcome = %q, want action_failed", d.Outcome)
	}
	if store.calls != 0 {
		t.Errorf("store called %d times, want 0", store.calls)
	}
}

func TestMaybeActEntityDedup(t *testing.T) {
	store := entity.NewMemoryStore()
	ex := NewExecutor(store, dedup.NewMemoryLedger(10, time.Hour), Options{AutoCreate: true, DedupEntities: true})
	rec, v := validEvent()

	first := ex.MaybeAct(context.Background(), "m1", rec, v)

	again := rec.With(map[string]string{models.FieldTitle: "PACK MEETING!"})
	second := ex.MaybeAct(context.Background(), "m2", again, v)

	if second.Outcome != models.OutcomeNotActed || second.Reason != ReasonDuplicate {
		t.Fatalf("second = %q/%q, want not_acted/%q", second.Outcome, second.Reason, ReasonDuplicate)
	}
	if second.EntityID != first.EntityID {
		t.Errorf("EntityID = %q, want %q", second.EntityID, first.EntityID)
	}
	if n := len(store.All()); n != 1 {
		t.Errorf("entities = %d, want 1", n)
	}
}
