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

package mailbox

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

// ParseMIME parses an RFC 5322 message into a RawMessage. The body is the
// first text/plain part, falling back to the text of the first text/html
// part. ReceivedAt is taken from the Date header and may be zero; transports
// override it with the server receipt time when they have one.
func ParseMIME(r io.Reader) (models.RawMessage, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return models.RawMessage{}, fmt.Errorf("read message: %w", err)
	}
	defer mr.Close()

	h := mr.Header
	var msg models.RawMessage
	msg.ID, _ = h.MessageID()
	if subject, err := h.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = h.Get("Subject")
	}
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = models.EmailAddress{Address: from[0].Address, Name: from[0].Name}
	}
	if to, err := h.AddressList("To"); err == nil {
		for _, a := range to {
			msg.To = append(msg.To, models.EmailAddress{Address: a.Address, Name: a.Name})
		}
	}
	if date, err := h.Date(); err == nil {
		msg.ReceivedAt = date.UTC()
	}

	var plain, html string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return models.RawMessage{}, fmt.Errorf("read part: %w", err)
		}
		if p == nil {
			continue
		}

		switch ph := p.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := ph.ContentType()
			data, err := io.ReadAll(p.Body)
			if err != nil {
				return models.RawMessage{}, fmt.Errorf("read inline part: %w", err)
			}
			switch {
			case ct == "text/plain" && plain == "":
				plain = ensureUTF8(data)
			case ct == "text/html" && html == "":
				html = ensureUTF8(data)
			}
		case *mail.AttachmentHeader:
			name, _ := ph.Filename()
			ct, _, _ := ph.ContentType()
			data, err := io.ReadAll(p.Body)
			if err != nil {
				return models.RawMessage{}, fmt.Errorf("read attachment %q: %w", name, err)
			}
			msg.Attachments = append(msg.Attachments, models.Attachment{
				Name:        name,
				ContentType: ct,
				Size:        len(data),
				Text:        DecodeText(name, ct, data),
			})
		}
	}

	msg.Body = strings.TrimSpace(strings.ReplaceAll(plain, "\r\n", "\n"))
	if msg.Body == "" && html != "" {
		msg.Body = StripHTML(html)
	}
	return msg, nil
}
