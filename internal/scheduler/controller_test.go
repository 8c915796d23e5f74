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

package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/pipeline"
)

// --- Mock runner ---

type mockRunner struct {
	mu      sync.Mutex
	calls   int
	active  int
	overlap bool
	block   chan struct{}
	started chan struct{}
	err     error
}

func newMockRunner() *mockRunner {
	return &mockRunner{started: make(chan struct{}, 100)}
}

func (m *mockRunner) RunCycle(ctx context.Context, st *pipeline.State) (*pipeline.Report, error) {
	m.mu.Lock()
	m.calls++
	m.active++
	if m.active > 1 {
		m.overlap = true
	}
	block := m.block
	m.mu.Unlock()

	st.Cycles++
	m.started <- struct{}{}
	if block != nil {
		<-block
	}

	m.mu.Lock()
	m.active--
	m.mu.Unlock()
	return &pipeline.Report{Fetched: st.Cycles}, m.err
}

func (m *mockRunner) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func waitStarted(t *testing.T, m *mockRunner) {
	t.Helper()
	select {
	case <-m.started:
	case <-time.After(2 * time.Second):
		t.Fatal("cycle did not start")
	}
}

// --- Tests ---

func TestStartRunsImmediately(t *testing.T) {
	r := newMockRunner()
	c := New(r, nil, time.Hour)

	c.Start(context.Background())
	defer c.Stop()

	waitStarted(t, r)
}

func TestStartRunsOnInterval(t *testing.T) {
	r := newMockRunner()
	c := New(r, nil, 10*time.Millisecond)

	c.Start(context.Background())
	for range 3 {
		waitStarted(t, r)
	}
	c.Stop()

	if n := r.callCount(); n < 3 {
		t.Errorf("calls = %d, want at least 3", n)
	}
}

func TestStopDoesNotInterruptCycle(t *testing.T) {
	r := newMockRunner()
	r.block = make(chan struct{})
	c := New(r, nil, time.Hour)

	c.Start(context.Background())
	waitStarted(t, r)

	stopped := make(chan struct{})
	go func() {
		c.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a cycle was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(r.block)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the cycle finished")
	}

	if c.LastReport() == nil {
		t.Error("LastReport() = nil after a finished cycle")
	}
	if n := r.callCount(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestRunNowRejectsOverlap(t *testing.T) {
	r := newMockRunner()
	r.block = make(chan struct{})
	c := New(r, nil, time.Hour)

	c.Start(context.Background())
	waitStarted(t, r)

	if !c.Running() {
		t.Error("Running() = false during a cycle")
	}
	if _, err := c.RunNow(context.Background()); !errors.Is(err, ErrCycleInProgress) {
		t.Errorf("RunNow() error = %v, want ErrCycleInProgress", err)
	}

	close(r.block)
	c.Stop()

	if c.Running() {
		t.Error("Running() = true after Stop")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.overlap {
		t.Error("cycles overlapped")
	}
}

func TestRunNowThreadsState(t *testing.T) {
	r := newMockRunner()
	st := &pipeline.State{}
	c := New(r, st, time.Hour)

	for range 2 {
		if _, err := c.RunNow(context.Background()); err != nil {
			t.Fatalf("RunNow: %v", err)
		}
	}

	if st.Cycles != 2 {
		t.Errorf("Cycles = %d, want 2", st.Cycles)
	}
	if rep := c.LastReport(); rep == nil || rep.Fetched != 2 {
		t.Errorf("LastReport() = %+v, want report of the second cycle", rep)
	}
}

func TestRunNowReturnsCycleError(t *testing.T) {
	r := newMockRunner()
	r.err = errors.New("fetch: auth failed")
	c := New(r, nil, time.Hour)

	var mu sync.Mutex
	var flags []bool
	c.OnRunning = func(running bool) {
		mu.Lock()
		defer mu.Unlock()
		flags = append(flags, running)
	}

	if _, err := c.RunNow(context.Background()); err == nil {
		t.Fatal("RunNow() error = nil, want cycle error")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(flags) != 2 || !flags[0] || flags[1] {
		t.Errorf("OnRunning calls = %v, want [true false]", flags)
	}
}

func TestContextCancelStopsLoop(t *testing.T) {
	r := newMockRunner()
	c := New(r, nil, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	c.Start(ctx)
	waitStarted(t, r)
	cancel()

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}

func TestNewDefaultsInterval(t *testing.T) {
	c := New(newMockRunner(), nil, 0)
	if c.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", c.interval, DefaultInterval)
	}
}
