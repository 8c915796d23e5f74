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

// Package notify publishes human-readable notifications about created
// entities. Delivery is best-effort.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

// Channel publishes text to a named channel.
type Channel interface {
	Publish(ctx context.Context, channelID, text string) error
}

// Message is the JSON envelope pushed to Redis.
type Message struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisChannel pushes notifications onto a Redis list for the chat
// delivery worker and publishes them on a pub/sub channel of the same name
// for live subscribers.
type RedisChannel struct {
	rdb       *redis.Client
	queueName string
}

// NewRedisChannel creates a Redis notification channel that appends to
// queueName.
func NewRedisChannel(rdb *redis.Client, queueName string) *RedisChannel {
	return &RedisChannel{rdb: rdb, queueName: queueName}
}

// Publish enqueues text for channelID.
func (c *RedisChannel) Publish(ctx context.Context, channelID, text string) error {
	msg := Message{
		ID:        uuid.New().String(),
		Channel:   channelID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, c.queueName, data)
	pipe.Publish(ctx, c.queueName+":"+channelID, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish notification: %w", err)
	}

	slog.Info("published notification",
		"notification_id", msg.ID,
		"channel", channelID,
		"queue", c.queueName,
	)
	return nil
}

// Ping checks the Redis connection.
func (c *RedisChannel) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// LogChannel writes notifications to a logger instead of delivering them.
type LogChannel struct {
	logger *slog.Logger
}

// NewLogChannel creates a channel that logs through logger.
func NewLogChannel(logger *slog.Logger) *LogChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogChannel{logger: logger}
}

// Publish logs the notification.
func (c *LogChannel) Publish(_ context.Context, channelID, text string) error {
	c.logger.Info("notification", "channel", channelID, "text", text)
	return nil
}

// Summarize renders the notification text for an acted decision.
func Summarize(d models.Decision) string {
	if d.Record == nil {
		return fmt.Sprintf("New %s created from an email (id %s).", label(d.Category), d.EntityID)
	}
	r := d.Record

	var b strings.Builder
	fmt.Fprintf(&b, "New %s: %s", label(d.Category), firstNonEmpty(r.Field(models.FieldTitle), "(untitled)"))

	when := firstNonEmpty(r.Field(models.FieldStartDate), r.Field(models.FieldDate))
	if end := r.Field(models.FieldEndDate); end != "" && when != "" {
		when += " to " + end
	}
	if t := r.Field(models.FieldStartTime); t != "" {
		when = strings.TrimSpace(when + " " + t)
	}
	if when != "" {
		fmt.Fprintf(&b, "\nWhen: %s", when)
	}
	if where := firstNonEmpty(r.Field(models.FieldLocationName), r.Field(models.FieldLocationAddress)); where != "" {
		fmt.Fprintf(&b, "\nWhere: %s", where)
	}
	if cost := r.Field(models.FieldCost); cost != "" {
		fmt.Fprintf(&b, "\nCost: %s", cost)
	}
	if r.Source.Sender != "" {
		fmt.Fprintf(&b, "\nFrom an email by %s", r.Source.Sender)
	}
	return b.String()
}

func label(c models.Category) string {
	if c == "" {
		return "entry"
	}
	return strings.ReplaceAll(string(c), "_", " ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Recorder writes audit records. audit.Logger implements it.
type Recorder interface {
	Record(ctx context.Context, kind models.AuditKind, messageID string, payload map[string]any)
}

// Notifier publishes a summary for every acted decision.
type Notifier struct {
	channel   Channel
	channelID string
	recorder  Recorder

	// OnError is called after a failed delivery, if set.
	OnError func(error)
}

// NewNotifier creates a notifier that publishes to channelID. Failed
// deliveries are recorded through rec.
func NewNotifier(ch Channel, channelID string, rec Recorder) *Notifier {
	return &Notifier{channel: ch, channelID: channelID, recorder: rec}
}

// HandleDecision publishes a notification when d is acted. It matches
// events.Handler.
func (n *Notifier) HandleDecision(ctx context.Context, d models.Decision) error {
	if d.Outcome != models.OutcomeActed {
		return nil
	}
	err := n.channel.Publish(ctx, n.channelID, Summarize(d))
	if err == nil {
		return nil
	}

	if n.recorder != nil {
		n.recorder.Record(ctx, models.AuditNotifyError, d.MessageID, map[string]any{
			"channel":   n.channelID,
			"entity_id": d.EntityID,
			"error":     err.Error(),
		})
	}
	if n.OnError != nil {
		n.OnError(err)
	}
	return fmt.Errorf("publish notification: %w", err)
}
