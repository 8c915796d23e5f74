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

// Package scheduler drives pipeline cycles on a fixed interval and guards
// against overlapping cycles.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/pipeline"
)

// DefaultInterval is used when New is given a non-positive interval.
const DefaultInterval = 5 * time.Minute

// ErrCycleInProgress is returned by RunNow while another cycle is running.
var ErrCycleInProgress = errors.New("cycle already in progress")

// Runner executes one cycle. *pipeline.Pipeline implements it.
type Runner interface {
	RunCycle(ctx context.Context, st *pipeline.State) (*pipeline.Report, error)
}

// Controller owns the cycle state and the polling loop.
type Controller struct {
	runner   Runner
	state    *pipeline.State
	interval time.Duration

	// OnRunning, if set, is called when a cycle starts and ends.
	OnRunning func(running bool)

	running atomic.Bool
	last    atomic.Pointer[pipeline.Report]

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a controller. A nil st starts from an empty state.
func New(runner Runner, st *pipeline.State, interval time.Duration) *Controller {
	if st == nil {
		st = &pipeline.State{}
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Controller{
		runner:   runner,
		state:    st,
		interval: interval,
	}
}

// Start runs one cycle immediately and then one per interval until Stop is
// called or ctx is cancelled. Calling Start on a started controller is a
// no-op.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return
	}
	c.stop = make(chan struct{})

	c.wg.Add(1)
	go c.loop(ctx, c.stop)
}

// Stop prevents further cycles and waits for an in-flight cycle to finish.
// It does not cancel that cycle.
func (c *Controller) Stop() {
	c.mu.Lock()
	stop := c.stop
	c.stop = nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	c.wg.Wait()
}

// RunNow runs a cycle on the caller's goroutine unless one is in progress.
func (c *Controller) RunNow(ctx context.Context) (*pipeline.Report, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer c.finish()
	return c.run(ctx)
}

// Running reports whether a cycle is executing.
func (c *Controller) Running() bool {
	return c.running.Load()
}

// LastReport returns the report of the most recently finished cycle.
func (c *Controller) LastReport() *pipeline.Report {
	return c.last.Load()
}

func (c *Controller) loop(ctx context.Context, stop <-chan struct{}) {
	defer c.wg.Done()

	slog.Info("scheduler starting", "interval", c.interval)

	c.tick(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopping", "reason", ctx.Err())
			return
		case <-stop:
			slog.Info("scheduler stopping", "reason", "stopped")
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			c.tick(ctx)
		}
	}
}

func (c *Controller) tick(ctx context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		slog.Warn("skipping cycle, previous cycle still running")
		return
	}
	defer c.finish()

	if _, err := c.run(ctx); err != nil {
		slog.Error("cycle failed", "error", err)
	}
}

// run must be called with the running flag held.
func (c *Controller) run(ctx context.Context) (*pipeline.Report, error) {
	if c.OnRunning != nil {
		c.OnRunning(true)
	}
	rep, err := c.runner.RunCycle(ctx, c.state)
	if rep != nil {
		c.last.Store(rep)
	}
	return rep, err
}

func (c *Controller) finish() {
	c.running.Store(false)
	if c.OnRunning != nil {
		c.OnRunning(false)
	}
}
