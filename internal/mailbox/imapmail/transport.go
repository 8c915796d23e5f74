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

// Package imapmail reads a mailbox folder over IMAP.
package imapmail

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/config"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/mailbox"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

// DialFunc opens an unauthenticated client connection.
type DialFunc func(addr string) (*client.Client, error)

// DialTLS connects with implicit TLS.
func DialTLS(addr string) (*client.Client, error) {
	return client.DialTLS(addr, &tls.Config{})
}

// Transport fetches messages from one IMAP folder. Each call opens its own
// connection; the mailbox is selected read-only and bodies are fetched with
// BODY.PEEK so nothing is marked as seen.
type Transport struct {
	cfg  config.IMAPConfig
	dial DialFunc
}

// New creates an IMAP transport. A nil dial uses DialTLS.
func New(cfg config.IMAPConfig, dial DialFunc) *Transport {
	if dial == nil {
		dial = DialTLS
	}
	if cfg.Folder == "" {
		cfg.Folder = "INBOX"
	}
	return &Transport{cfg: cfg, dial: dial}
}

// sinceSlack widens the SEARCH SINCE date. SINCE compares calendar dates in
// each message's own zone, and some servers treat it as exclusive.
const sinceSlack = 48 * time.Hour

// FetchSince returns messages whose internal date falls on or after a day
// safely before since. Sub-day filtering is left to mailbox.Fetcher.
// Messages that cannot be parsed are returned with ParseError set.
func (t *Transport) FetchSince(ctx context.Context, since *time.Time) ([]models.RawMessage, error) {
	c, err := t.dial(t.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.cfg.Addr, err)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = c.Terminate()
	})
	defer func() {
		stop()
		_ = c.Logout()
	}()

	if err := c.Login(t.cfg.Username, t.cfg.Password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if _, err := c.Select(t.cfg.Folder, true); err != nil {
		return nil, fmt.Errorf("select %s: %w", t.cfg.Folder, err)
	}

	criteria := imap.NewSearchCriteria()
	if since != nil {
		criteria.Since = since.Add(-sinceSlack)
	}
	if t.cfg.UnreadOnly {
		criteria.WithoutFlags = []string{imap.SeenFlag}
	}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("uid search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchInternalDate, imap.FetchUid}

	fetched := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, fetched)
	}()

	msgs := make([]models.RawMessage, 0, len(uids))
	for m := range fetched {
		msgs = append(msgs, t.toRawMessage(m, section))
	}

	if err := <-done; err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("uid fetch: %w", err)
	}
	return msgs, nil
}

func (t *Transport) toRawMessage(m *imap.Message, section *imap.BodySectionName) models.RawMessage {
	id := fmt.Sprintf("%s:%d", t.cfg.Folder, m.Uid)
	stub := func(reason string) models.RawMessage {
		slog.Warn("imap message could not be parsed",
			"folder", t.cfg.Folder,
			"uid", m.Uid,
			"error", reason,
		)
		return models.RawMessage{ID: id, ReceivedAt: m.InternalDate.UTC(), ParseError: reason}
	}

	body := m.GetBody(section)
	if body == nil {
		return stub("message has no body")
	}
	msg, err := mailbox.ParseMIME(body)
	if err != nil {
		return stub(err.Error())
	}
	if strings.TrimSpace(msg.ID) == "" {
		msg.ID = id
	}
	if !m.InternalDate.IsZero() {
		msg.ReceivedAt = m.InternalDate.UTC()
	}
	return msg
}
