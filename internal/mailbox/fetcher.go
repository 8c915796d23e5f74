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

// Package mailbox retrieves new messages from the configured mailbox and
// parses them into models.RawMessage.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

// ErrTimeout is returned when the mailbox does not answer within the fetch
// timeout.
var ErrTimeout = errors.New("mailbox fetch timed out")

// Transport is a mailbox backend. since is nil on the first cycle.
type Transport interface {
	FetchSince(ctx context.Context, since *time.Time) ([]models.RawMessage, error)
}

// Fetcher bounds a Transport with a timeout and normalises its batches:
// only messages strictly newer than since, oldest first, no repeated ids.
type Fetcher struct {
	transport Transport
	timeout   time.Duration
}

// NewFetcher wraps t. A zero timeout disables the bound.
func NewFetcher(t Transport, timeout time.Duration) *Fetcher {
	return &Fetcher{transport: t, timeout: timeout}
}

type fetchResult struct {
	msgs []models.RawMessage
	err  error
}

// FetchSince returns the messages received after since. The call is
// read-only with respect to the mailbox.
func (f *Fetcher) FetchSince(ctx context.Context, since *time.Time) ([]models.RawMessage, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	done := make(chan fetchResult, 1)
	go func() {
		msgs, err := f.transport.FetchSince(ctx, since)
		done <- fetchResult{msgs: msgs, err: err}
	}()

	var res fetchResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	if res.err != nil {
		if errors.Is(res.err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, f.timeout)
		}
		return nil, fmt.Errorf("fetch messages: %w", res.err)
	}

	return Normalize(res.msgs, since), nil
}

// Normalize drops messages not strictly newer than since, removes repeated
// ids and orders the rest by receipt time.
func Normalize(msgs []models.RawMessage, since *time.Time) []models.RawMessage {
	seen := make(map[string]struct{}, len(msgs))
	out := make([]models.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		if since != nil && !m.ReceivedAt.After(*since) {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].ReceivedAt.Before(out[j].ReceivedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
