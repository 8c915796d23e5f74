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

package imapmail

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/config"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

func startServer(t *testing.T) (string, *memory.Backend) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	be := memory.New()
	s := server.New(be)
	s.AllowInsecureAuth = true
	go func() { _ = s.Serve(l) }()
	t.Cleanup(func() { _ = s.Close() })

	return l.Addr().String(), be
}

func appendMessage(t *testing.T, be *memory.Backend, date time.Time, raw string) {
	t.Helper()

	u, err := be.Login(nil, "username", "password")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	mbox, err := u.GetMailbox("INBOX")
	if err != nil {
		t.Fatalf("get mailbox: %v", err)
	}
	if err := mbox.CreateMessage(nil, date, bytes.NewBufferString(raw)); err != nil {
		t.Fatalf("create message: %v", err)
	}
}

func textMessage(subject string) string {
	return "From: cubmaster@example.org\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"See you there.\r\n"
}

func newTransport(addr, password string) *Transport {
	return New(config.IMAPConfig{
		Addr:     addr,
		Username: "username",
		Password: password,
	}, client.Dial)
}

func TestFetchSinceReadsFolder(t *testing.T) {
	addr, _ := startServer(t)

	msgs, err := newTransport(addr, "password").FetchSince(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchSince: %v", err)
	}
	if len(msgs) == 0 {
		t.Fatal("FetchSince returned no messages")
	}

	m := msgs[0]
	if m.ID == "" {
		t.Error("message id is empty")
	}
	if m.Subject == "" {
		t.Error("subject is empty")
	}
	if m.ReceivedAt.IsZero() {
		t.Error("received-at is zero")
	}
}

func TestFetchSinceFutureWindowIsEmpty(t *testing.T) {
	addr, _ := startServer(t)

	since := time.Now().Add(72 * time.Hour)
	msgs, err := newTransport(addr, "password").FetchSince(context.Background(), &since)
	if err != nil {
		t.Fatalf("FetchSince: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("len = %d, want 0", len(msgs))
	}
}

func TestFetchSinceBadCredentials(t *testing.T) {
	addr, _ := startServer(t)

	if _, err := newTransport(addr, "wrong").FetchSince(context.Background(), nil); err == nil {
		t.Fatal("FetchSince() error = nil, want login error")
	}
}

func TestFetchSinceIncludesEarlierLocalDate(t *testing.T) {
	addr, be := startServer(t)

	// 03:00 UTC on the 16th, stored as the evening of the 15th.
	central := time.FixedZone("CDT", -5*60*60)
	appendMessage(t, be, time.Date(2024, 3, 15, 22, 0, 0, 0, central), textMessage("Late meeting"))
	appendMessage(t, be, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), textMessage("Old news"))

	since := time.Date(2024, 3, 16, 2, 0, 0, 0, time.UTC)
	msgs, err := newTransport(addr, "password").FetchSince(context.Background(), &since)
	if err != nil {
		t.Fatalf("FetchSince: %v", err)
	}

	bySubject := make(map[string]models.RawMessage, len(msgs))
	for _, m := range msgs {
		bySubject[m.Subject] = m
	}
	late, ok := bySubject["Late meeting"]
	if !ok {
		t.Fatalf("subjects = %v, want Late meeting", bySubject)
	}
	if want := time.Date(2024, 3, 16, 3, 0, 0, 0, time.UTC); !late.ReceivedAt.Equal(want) {
		t.Errorf("ReceivedAt = %v, want %v", late.ReceivedAt, want)
	}
	if _, ok := bySubject["Old news"]; ok {
		t.Error("message from before the search window was returned")
	}
}

func TestFetchSinceReturnsUnparseableMessage(t *testing.T) {
	addr, be := startServer(t)

	received := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	raw := "From: cubmaster@example.org\r\n" +
		"Subject: Broken\r\n" +
		"Content-Type: multipart/mixed; boundary=XX\r\n" +
		"\r\n" +
		"--XX\r\n" +
		"this line is not a header\r\n" +
		"\r\n" +
		"body\r\n" +
		"--XX--\r\n"
	appendMessage(t, be, received, raw)

	msgs, err := newTransport(addr, "password").FetchSince(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchSince: %v", err)
	}

	var broken []models.RawMessage
	for _, m := range msgs {
		if m.ParseError != "" {
			broken = append(broken, m)
		}
	}
	if len(broken) != 1 {
		t.Fatalf("unparseable messages = %d, want 1", len(broken))
	}
	if !strings.HasPrefix(broken[0].ID, "INBOX:") {
		t.Errorf("ID = %q, want folder:uid", broken[0].ID)
	}
	if !broken[0].ReceivedAt.Equal(received) {
		t.Errorf("ReceivedAt = %v, want %v", broken[0].ReceivedAt, received)
	}
}
