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

// Package events fans a pipeline decision out to independent subscribers.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

// Handler consumes one decision.
type Handler func(ctx context.Context, d models.Decision) error

type subscriber struct {
	name    string
	handler Handler
}

// Bus delivers each decision to every subscriber sequentially. A failing or
// panicking subscriber is logged and does not prevent delivery to the rest.
type Bus struct {
	subs []subscriber
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h under name. Subscribers run in registration order.
func (b *Bus) Subscribe(name string, h Handler) {
	b.subs = append(b.subs, subscriber{name: name, handler: h})
}

// Publish delivers d to every subscriber. The returned error joins the
// subscriber failures; callers are free to ignore it.
func (b *Bus) Publish(ctx context.Context, d models.Decision) error {
	var errs []error
	for _, s := range b.subs {
		if err := deliver(ctx, s, d); err != nil {
			slog.Error("decision subscriber failed",
				"subscriber", s.name,
				"message_id", d.MessageID,
				"outcome", d.Outcome,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func deliver(ctx context.Context, s subscriber, d models.Decision) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.handler(ctx, d)
}
