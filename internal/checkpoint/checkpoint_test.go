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

package checkpoint

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Fatalf("Load() = %v, want nil before first save", got)
	}

	t1 := time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)
	if err := s.Save(ctx, t1); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, t1.Add(-time.Hour)); err != nil {
		t.Fatalf("Save earlier: %v", err)
	}

	got, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || !got.Equal(t1) {
		t.Errorf("Load() = %v, want %v (checkpoint must not move backwards)", got, t1)
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got, _ := s.Load(ctx); got != nil {
		t.Errorf("Load() after Reset = %v, want nil", got)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = s.Save(ctx, t1)

	got, _ := s.Load(ctx)
	*got = got.Add(time.Hour)

	again, _ := s.Load(ctx)
	if !again.Equal(t1) {
		t.Errorf("Load() = %v, want %v", again, t1)
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	defer pool.Close()

	s, err := NewPostgresStore(ctx, pool, "test-"+time.Now().Format("150405.000000"))
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	testStore(t, s)
}
