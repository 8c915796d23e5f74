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

// Package checkpoint persists the received-at timestamp of the last message
// the pipeline fully processed.
package checkpoint

import (
	"context"
	"sync"
	"time"
)

// Store loads and saves the checkpoint. Load returns nil when no checkpoint
// has been written yet.
type Store interface {
	Load(ctx context.Context) (*time.Time, error)
	Save(ctx context.Context, t time.Time) error
	Reset(ctx context.Context) error
}

// MemoryStore keeps the checkpoint in process memory.
type MemoryStore struct {
	mu sync.Mutex
	ts *time.Time
}

// NewMemoryStore creates an empty in-memory checkpoint.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the current checkpoint.
func (s *MemoryStore) Load(_ context.Context) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ts == nil {
		return nil, nil
	}
	t := *s.ts
	return &t, nil
}

// Save advances the checkpoint. Earlier timestamps are ignored.
func (s *MemoryStore) Save(_ context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ts != nil && !t.After(*s.ts) {
		return nil
	}
	t = t.UTC()
	s.ts = &t
	return nil
}

// Reset clears the checkpoint.
func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ts = nil
	return nil
}
