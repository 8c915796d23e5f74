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

// Package entity persists the records the pipeline creates (calendar events
// and friends) and enforces the minimal schema each entity type requires.
package entity

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Reserved field keys stored in dedicated columns.
const (
	KeyTitle         = "title"
	KeyDedup         = "dedup_key"
	KeySourceMessage = "source_message_id"
)

// ErrRejected is returned when the store refuses an entity's fields.
var ErrRejected = errors.New("entity rejected")

// RejectedError describes which field the store refused and why.
type RejectedError struct {
	EntityType string
	Field      string
	Reason     string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected: %s %s", e.EntityType, e.Field, e.Reason)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

// Store creates entities. Create returns the new entity id.
type Store interface {
	Create(ctx context.Context, entityType string, fields map[string]any) (string, error)
}

// Finder looks up an existing entity by dedup key. It returns "" when no
// entity carries the key.
type Finder interface {
	FindByKey(ctx context.Context, entityType, key string) (string, error)
}

// requiredFields lists the fields each entity type must carry.
var requiredFields = map[string][]string{
	"event":              {"title", "start_date"},
	"announcement":       {"title"},
	"resource":           {"title"},
	"volunteer_request":  {"title"},
	"fundraising_appeal": {"title"},
}

// Check validates fields against the schema of entityType.
func Check(entityType string, fields map[string]any) error {
	required, ok := requiredFields[entityType]
	if !ok {
		return &RejectedError{EntityType: entityType, Field: "entity_type", Reason: "is not supported"}
	}
	for _, name := range required {
		if v, _ := fields[name].(string); strings.TrimSpace(v) == "" {
			return &RejectedError{EntityType: entityType, Field: name, Reason: "is required"}
		}
	}
	if d, ok := fields["start_date"].(string); ok && d != "" {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return &RejectedError{EntityType: entityType, Field: "start_date", Reason: "must be YYYY-MM-DD"}
		}
	}
	return nil
}

// Entity is a stored entity.
type Entity struct {
	ID        string
	Type      string
	Fields    map[string]any
	CreatedAt time.Time
}

// MemoryStore keeps entities in memory. It is used by dry runs and tests.
type MemoryStore struct {
	mu       sync.Mutex
	entities []Entity
}

// NewMemoryStore creates an empty in-memory entity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Create validates and stores an entity.
func (s *MemoryStore) Create(_ context.Context, entityType string, fields map[string]any) (string, error) {
	if err := Check(entityType, fields); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.entities = append(s.entities, Entity{
		ID:        id,
		Type:      entityType,
		Fields:    maps.Clone(fields),
		CreatedAt: time.Now().UTC(),
	})
	return id, nil
}

// FindByKey returns the id of the first entity of entityType with key.
func (s *MemoryStore) FindByKey(_ context.Context, entityType, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.entities, func(e Entity) bool {
		k, _ := e.Fields[KeyDedup].(string)
		return e.Type == entityType && key != "" && k == key
	})
	if i < 0 {
		return "", nil
	}
	return s.entities[i].ID, nil
}

// All returns a snapshot of the stored entities.
func (s *MemoryStore) All() []Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entities)
}
