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

package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/action"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/audit"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/checkpoint"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/classifier"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/config"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/dedup"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/entity"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/events"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/extract"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/geocode"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/metrics"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/notify"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/validate"
)

// Deps are the collaborators a pipeline is built from. Oracle, Ledger,
// Checkpoints, Metrics and Diagnostics are optional.
type Deps struct {
	Source      Source
	Entities    entity.Store
	Ledger      dedup.Ledger
	Channel     notify.Channel
	Oracle      geocode.Oracle
	AuditSink   audit.Sink
	Checkpoints checkpoint.Store
	Metrics     *metrics.Metrics
	Diagnostics *slog.Logger
}

// Build assembles a pipeline from configuration and collaborators.
func Build(cfg config.PipelineConfig, deps Deps) (*Pipeline, error) {
	if deps.Source == nil || deps.Entities == nil || deps.AuditSink == nil {
		return nil, fmt.Errorf("pipeline requires a source, an entity store and an audit sink")
	}

	extractors, err := extract.NewSet(extract.DefaultSpecs(), cfg.FieldPatterns)
	if err != nil {
		return nil, fmt.Errorf("build extractors: %w", err)
	}

	auditLog := audit.NewLogger(deps.AuditSink, 0, deps.Diagnostics)

	bus := events.NewBus()
	bus.Subscribe("audit", auditLog.RecordDecision)
	if cfg.NotifyOnCreation && deps.Channel != nil {
		n := notify.NewNotifier(deps.Channel, cfg.NotificationChannel, auditLog)
		if deps.Metrics != nil {
			n.OnError = func(error) { deps.Metrics.NotifyErrorsTotal.Inc() }
		}
		bus.Subscribe("notify", n.HandleDecision)
	}
	if deps.Metrics != nil {
		bus.Subscribe("metrics", deps.Metrics.HandleDecision)
	}

	return &Pipeline{
		source:     deps.Source,
		classifier: classifier.New(classifier.DefaultLexicons().Merge(cfg.CategoryLexicons)),
		extractors: extractors,
		validator:  validate.New(deps.Oracle, cfg.ConfidenceThreshold),
		executor: action.NewExecutor(deps.Entities, deps.Ledger, action.Options{
			AutoCreate:    cfg.AutoCreateEnabled,
			DedupEntities: cfg.DedupEntities,
		}),
		bus:         bus,
		audit:       auditLog,
		checkpoints: deps.Checkpoints,
		metrics:     deps.Metrics,
	}, nil
}
