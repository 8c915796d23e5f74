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

package events

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

func TestPublishIsolatesSubscribers(t *testing.T) {
	bus := NewBus()
	var got []string

	bus.Subscribe("first", func(_ context.Context, d models.Decision) error {
		got = append(got, "first:"+d.MessageID)
		return errors.New("sink down")
	})
	bus.Subscribe("panicky", func(context.Context, models.Decision) error {
		panic("boom")
	})
	bus.Subscribe("last", func(_ context.Context, d models.Decision) error {
		got = append(got, "last:"+d.MessageID)
		return nil
	})

	err := bus.Publish(context.Background(), models.Decision{MessageID: "m1", Outcome: models.OutcomeActed})

	if strings.Join(got, ",") != "first:m1,last:m1" {
		t.Errorf("delivered = %v, want both healthy subscribers", got)
	}
	if err == nil {
		t.Fatal("Publish() error = nil, want joined error")
	}
	for _, want := range []string{"first: sink down", "panicky: panic: boom"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestPublishNoSubscribers(t *testing.T) {
	if err := NewBus().Publish(context.Background(), models.Decision{}); err != nil {
		t.Errorf("Publish() = %v, want nil", err)
	}
}
