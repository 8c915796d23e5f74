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

// Package backfill replays a historical window of mail through the
// pipeline without touching the persisted checkpoint.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/pipeline"
)

// Cycler runs one pipeline cycle. The pipeline handed to a Runner must be
// built without a checkpoint store.
type Cycler interface {
	RunCycle(ctx context.Context, st *pipeline.State) (*pipeline.Report, error)
}

// Request defines the window of a backfill run.
type Request struct {
	Since time.Duration // lookback window (e.g. 168h = 1 week)
}

// Result summarises a completed backfill run.
type Result struct {
	From      time.Time              `json:"from"`
	Passes    int                    `json:"passes"`
	Fetched   int                    `json:"fetched"`
	Processed int                    `json:"processed"`
	Outcomes  map[models.Outcome]int `json:"outcomes"`
	Elapsed   time.Duration          `json:"elapsed"`
}

// Runner performs backfills.
type Runner struct {
	cycler    Cycler
	maxPasses int
	passDelay time.Duration
	now       func() time.Time
}

// RunnerConfig holds dependencies for the backfill runner.
type RunnerConfig struct {
	Cycler    Cycler
	MaxPasses int           // cycles per run while new mail keeps arriving
	PassDelay time.Duration // delay between passes to avoid throttling
}

// NewRunner creates a backfill runner.
func NewRunner(cfg RunnerConfig) *Runner {
	passes := cfg.MaxPasses
	if passes <= 0 {
		passes = 10
	}
	return &Runner{
		cycler:    cfg.Cycler,
		maxPasses: passes,
		passDelay: cfg.PassDelay,
		now:       time.Now,
	}
}

// Run replays everything received in the window. Each pass starts where
// the previous one stopped and the run ends once a pass fetches nothing.
// Messages already acted upon are skipped by the acted ledger.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Since <= 0 {
		return nil, fmt.Errorf("backfill window must be positive, got %s", req.Since)
	}

	start := r.now()
	from := start.UTC().Add(-req.Since)
	st := &pipeline.State{Checkpoint: &from}
	res := &Result{
		From:     from,
		Outcomes: make(map[models.Outcome]int),
	}

	slog.Info("starting backfill", "from", from)

	for res.Passes < r.maxPasses {
		if res.Passes > 0 && r.passDelay > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(r.passDelay):
			}
		}

		rep, err := r.cycler.RunCycle(ctx, st)
		res.Passes++
		if rep != nil {
			res.Fetched += rep.Fetched
			res.Processed += rep.Processed
			for o, n := range rep.Outcomes {
				res.Outcomes[o] += n
			}
		}
		if err != nil {
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("backfill pass %d: %w", res.Passes, err)
		}
		if rep == nil || rep.Fetched == 0 {
			break
		}
	}

	res.Elapsed = time.Since(start)
	slog.Info("backfill complete",
		"from", from,
		"passes", res.Passes,
		"fetched", res.Fetched,
		"acted", res.Outcomes[models.OutcomeActed],
		"elapsed", res.Elapsed,
	)
	return res, nil
}
