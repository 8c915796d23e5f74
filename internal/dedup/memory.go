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

package dedup

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryLedger is a TTL-bound LRU of acted ids, for dry runs and
// deployments without Redis.
type MemoryLedger struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	now   func() time.Time
	ll    *list.List // most-recent at front
	items map[string]*list.Element
}

type entry struct {
	key string
	exp time.Time
}

// NewMemoryLedger creates a ledger holding at most maxKeys ids for ttl.
func NewMemoryLedger(maxKeys int, ttl time.Duration) *MemoryLedger {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryLedger{
		cap:   maxKeys,
		ttl:   ttl,
		now:   time.Now,
		ll:    list.New(),
		items: make(map[string]*list.Element),
	}
}

// Seen reports whether id was marked and has not expired.
func (m *MemoryLedger) Seen(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[id]
	if !ok {
		return false, nil
	}
	if m.now().Before(el.Value.(entry).exp) {
		m.ll.MoveToFront(el)
		return true, nil
	}
	m.ll.Remove(el)
	delete(m.items, id)
	return false, nil
}

// Mark records id, evicting the least recently used ids over capacity.
func (m *MemoryLedger) Mark(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp := m.now().Add(m.ttl)
	if el, ok := m.items[id]; ok {
		el.Value = entry{key: id, exp: exp}
		m.ll.MoveToFront(el)
		return nil
	}
	m.items[id] = m.ll.PushFront(entry{key: id, exp: exp})

	for m.ll.Len() > m.cap {
		m.removeBack()
	}
	for back := m.ll.Back(); back != nil && !m.now().Before(back.Value.(entry).exp); back = m.ll.Back() {
		m.removeBack()
	}
	return nil
}

// Len returns the number of ids held.
func (m *MemoryLedger) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ll.Len()
}

func (m *MemoryLedger) removeBack() {
	back := m.ll.Back()
	if back == nil {
		return
	}
	m.ll.Remove(back)
	delete(m.items, back.Value.(entry).key)
}
