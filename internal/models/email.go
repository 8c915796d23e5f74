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

// Package models defines the data structures shared across the ingestion pipeline.
package models

import (
	"strings"
	"time"
)

// EmailAddress represents a sender or recipient with an address and optional name.
type EmailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// Attachment is a file attached to a message. Text holds the decoded text
// content; binary or unsupported types leave it empty.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Text        string `json:"text,omitempty"`
}

// RawMessage is a message as retrieved from the mailbox. It is treated as
// immutable once fetched. ID is the transport-assigned message id used for
// audit correlation and idempotence.
type RawMessage struct {
	ID          string         `json:"id"`
	From        EmailAddress   `json:"from"`
	To          []EmailAddress `json:"to"`
	Subject     string         `json:"subject"`
	Body        string         `json:"body"`
	ReceivedAt  time.Time      `json:"received_at"`
	Attachments []Attachment   `json:"attachments"`
	// ParseError is set when the transport retrieved the message but could
	// not parse it. Only ID and ReceivedAt are filled in.
	ParseError string `json:"parse_error,omitempty"`
}

// AttachmentTexts returns the non-empty decoded attachment texts in order.
func (m RawMessage) AttachmentTexts() []string {
	var out []string
	for _, a := range m.Attachments {
		if strings.TrimSpace(a.Text) != "" {
			out = append(out, a.Text)
		}
	}
	return out
}

// CombinedText joins subject, body and attachment texts so that patterns can
// find information that only appears in an attachment.
func (m RawMessage) CombinedText() string {
	parts := []string{m.Subject, m.Body}
	parts = append(parts, m.AttachmentTexts()...)
	return strings.Join(parts, "\n")
}

// Source returns the traceability back-reference for records derived from m.
func (m RawMessage) Source() SourceRef {
	return SourceRef{
		MessageID:  m.ID,
		Sender:     m.From.Address,
		Subject:    m.Subject,
		ReceivedAt: m.ReceivedAt,
	}
}
