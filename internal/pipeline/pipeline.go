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

// Package pipeline runs one ingestion cycle: fetch, then for each message
// classify, extract, validate, act and fan the decision out to the audit
// trail, notifier and metrics.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/action"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/audit"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/checkpoint"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/classifier"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/events"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/extract"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/metrics"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/validate"
)

// Source fetches the messages received after since, oldest first.
// mailbox.Fetcher implements it.
type Source interface {
	FetchSince(ctx context.Context, since *time.Time) ([]models.RawMessage, error)
}

// State is threaded through every cycle by its owner. Checkpoint is the
// received-at time of the last fully processed message.
type State struct {
	Checkpoint *time.Time
	Cycles     int
	LastReport *Report
}

// Report summarises one cycle.
type Report struct {
	Since      *time.Time             `json:"since,omitempty"`
	Fetched    int                    `json:"fetched"`
	Processed  int                    `json:"processed"`
	Outcomes   map[models.Outcome]int `json:"outcomes"`
	Checkpoint *time.Time             `json:"checkpoint,omitempty"`
	StartedAt  time.Time              `json:"started_at"`
	Duration   time.Duration          `json:"duration"`
}

// Pipeline holds the components of a cycle. Checkpoints and Metrics may be
// nil: without a checkpoint store the cycle relies on State alone.
type Pipeline struct {
	source      Source
	classifier  *classifier.Classifier
	extractors  *extract.Set
	validator   *validate.Validator
	executor    *action.Executor
	bus         *events.Bus
	audit       *audit.Logger
	checkpoints checkpoint.Store
	metrics     *metrics.Metrics
}

// RunCycle fetches everything newer than the checkpoint and processes it
// message by message. A fetch failure aborts the cycle without moving the
// checkpoint. The checkpoint advances in st after each message and is
// persisted once at the end of the cycle, including after cancellation.
func (p *Pipeline) RunCycle(ctx context.Context, st *State) (*Report, error) {
	rep := &Report{
		StartedAt: time.Now().UTC(),
		Outcomes:  make(map[models.Outcome]int),
	}
	st.Cycles++
	st.LastReport = rep
	defer func() {
		rep.Duration = time.Since(rep.StartedAt)
		rep.Checkpoint = st.Checkpoint
	}()

	since := p.loadCheckpoint(ctx, st)
	rep.Since = since

	fetchStart := time.Now()
	msgs, err := p.source.FetchSince(ctx, since)
	if err != nil {
		slog.Error("fetch failed", "since", since, "error", err)
		p.audit.Record(ctx, models.AuditFetchError, "", map[string]any{
			"since": since,
			"error": err.Error(),
		})
		p.observeCycle("fetch_error", rep.StartedAt)
		return rep, fmt.Errorf("fetch: %w", err)
	}
	rep.Fetched = len(msgs)
	if p.metrics != nil {
		p.metrics.ObserveFetch(time.Since(fetchStart), len(msgs))
	}
	p.audit.Record(ctx, models.AuditFetch, "", map[string]any{
		"since": since,
		"count": len(msgs),
	})
	slog.Info("fetched messages", "since", since, "count", len(msgs))

	start := st.Checkpoint
	result := "ok"
	for _, msg := range msgs {
		if ctx.Err() != nil {
			result = "cancelled"
			break
		}

		d := p.Process(ctx, msg)
		rep.Processed++
		rep.Outcomes[d.Outcome]++
		advance(st, msg.ReceivedAt)
	}

	if st.Checkpoint != nil && (start == nil || st.Checkpoint.After(*start)) {
		p.saveCheckpoint(ctx, *st.Checkpoint)
	}

	p.observeCycle(result, rep.StartedAt)
	slog.Info("cycle complete",
		"fetched", rep.Fetched,
		"processed", rep.Processed,
		"acted", rep.Outcomes[models.OutcomeActed],
		"checkpoint", st.Checkpoint,
	)
	if result == "cancelled" {
		return rep, ctx.Err()
	}
	return rep, nil
}

// Process takes one message to a terminal decision and publishes it to the
// decision subscribers. It never fails: an error or panic in any step
// becomes a processing_error record instead.
func (p *Pipeline) Process(ctx context.Context, msg models.RawMessage) models.Decision {
	d, err := p.decideSafely(ctx, msg)
	if err != nil {
		slog.Error("message processing failed", "message_id", msg.ID, "error", err)
		p.audit.Record(ctx, models.AuditProcessingError, msg.ID, map[string]any{
			"error": err.Error(),
		})
		d = models.Decision{
			MessageID: msg.ID,
			Outcome:   models.OutcomeFailed,
			Reason:    "processing error: " + err.Error(),
			DecidedAt: time.Now().UTC(),
		}
		// The processing_error record above is terminal, so the decision
		// skips the bus and is only counted.
		if p.metrics != nil {
			_ = p.metrics.HandleDecision(ctx, d)
		}
		return d
	}

	_ = p.bus.Publish(ctx, d)
	return d
}

func (p *Pipeline) decideSafely(ctx context.Context, msg models.RawMessage) (d models.Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.decide(ctx, msg)
}

func (p *Pipeline) decide(ctx context.Context, msg models.RawMessage) (models.Decision, error) {
	if msg.ParseError != "" {
		return models.Decision{}, fmt.Errorf("parse message: %s", msg.ParseError)
	}

	text := msg.CombinedText()
	scores := p.classifier.Score(text)
	detected := p.classifier.Classify(text)
	p.audit.Record(ctx, models.AuditClassification, msg.ID, audit.ClassificationPayload(scores, detected))

	if len(detected) == 0 {
		return models.Decision{
			MessageID: msg.ID,
			Outcome:   models.OutcomeUnclassified,
			Reason:    classifier.ReasonUnrecognized,
			Scores:    scores,
			DecidedAt: time.Now().UTC(),
		}, nil
	}

	best := detected[0].Category
	rec, err := p.extractors.Extract(best, msg)
	if err != nil {
		return models.Decision{}, fmt.Errorf("extract %s: %w", best, err)
	}

	rec, v := p.validator.Validate(ctx, rec, scores)
	d := p.executor.MaybeAct(ctx, msg.ID, rec, v)
	d.Scores = scores
	return d, nil
}

func (p *Pipeline) loadCheckpoint(ctx context.Context, st *State) *time.Time {
	if p.checkpoints == nil {
		return st.Checkpoint
	}
	stored, err := p.checkpoints.Load(ctx)
	if err != nil {
		slog.Error("failed to load checkpoint", "error", err)
		p.audit.Record(ctx, models.AuditCheckpointError, "", map[string]any{
			"op":    "load",
			"error": err.Error(),
		})
		return st.Checkpoint
	}
	if stored != nil && (st.Checkpoint == nil || stored.After(*st.Checkpoint)) {
		st.Checkpoint = stored
	}
	return st.Checkpoint
}

func (p *Pipeline) saveCheckpoint(ctx context.Context, t time.Time) {
	if p.metrics != nil {
		p.metrics.SetCheckpoint(t)
	}
	if p.checkpoints == nil {
		return
	}
	if err := p.checkpoints.Save(context.WithoutCancel(ctx), t); err != nil {
		slog.Error("failed to save checkpoint", "checkpoint", t, "error", err)
		p.audit.Record(ctx, models.AuditCheckpointError, "", map[string]any{
			"op":         "save",
			"checkpoint": t,
			"error":      err.Error(),
		})
	}
}

func (p *Pipeline) observeCycle(result string, started time.Time) {
	if p.metrics != nil {
		p.metrics.ObserveCycle(result, time.Since(started))
	}
}

// advance moves the checkpoint forward to t. It never moves backwards.
func advance(st *State, t time.Time) {
	if t.IsZero() {
		return
	}
	if st.Checkpoint == nil || t.After(*st.Checkpoint) {
		t = t.UTC()
		st.Checkpoint = &t
	}
}
