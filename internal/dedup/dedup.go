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

// Package dedup remembers which messages the pipeline has already acted on
// so the same message id never triggers a second entity creation, even when
// a crash forces a batch to be re-processed.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long an acted message id is remembered. The
	// checkpoint moves past a message long before this expires.
	DefaultTTL = 30 * 24 * time.Hour

	// DefaultPrefix namespaces ledger keys in Redis.
	DefaultPrefix = "ingest:acted:"
)

// Ledger records acted message ids.
type Ledger interface {
	Seen(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
}

// RedisLedger is a Ledger backed by Redis keys with a TTL.
type RedisLedger struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisLedger creates a ledger backed by Redis.
func NewRedisLedger(rdb *redis.Client) *RedisLedger {
	return &RedisLedger{
		rdb:    rdb,
		prefix: DefaultPrefix,
		ttl:    DefaultTTL,
	}
}

// WithPrefix returns a copy of the ledger that uses prefix for its keys.
func (l *RedisLedger) WithPrefix(prefix string) *RedisLedger {
	c := *l
	c.prefix = prefix
	return &c
}

func (l *RedisLedger) key(id string) string {
	return l.prefix + id
}

// Seen reports whether id has been marked.
func (l *RedisLedger) Seen(ctx context.Context, id string) (bool, error) {
	n, err := l.rdb.Exists(ctx, l.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup EXISTS: %w", err)
	}
	return n > 0, nil
}

// Mark records id.
func (l *RedisLedger) Mark(ctx context.Context, id string) error {
	if err := l.rdb.Set(ctx, l.key(id), time.Now().UTC().Format(time.RFC3339), l.ttl).Err(); err != nil {
		return fmt.Errorf("dedup SET: %w", err)
	}
	return nil
}
