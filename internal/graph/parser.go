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

package graph

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/mailbox"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

type graphAddress struct {
	EmailAddress struct {
		Address string `json:"address"`
		Name    string `json:"name"`
	} `json:"emailAddress"`
}

func (a graphAddress) toModel() models.EmailAddress {
	return models.EmailAddress{
		Address: a.EmailAddress.Address,
		Name:    a.EmailAddress.Name,
	}
}

// graphMessage represents the relevant fields from a Graph API message response.
type graphMessage struct {
	ID           string         `json:"id"`
	Subject      string         `json:"subject"`
	From         graphAddress   `json:"from"`
	ToRecipients []graphAddress `json:"toRecipients"`
	Body         struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	ReceivedDateTime string `json:"receivedDateTime"`
	HasAttachments   bool   `json:"hasAttachments"`
}

func (m graphMessage) toRawMessage() models.RawMessage {
	to := make([]models.EmailAddress, 0, len(m.ToRecipients))
	for _, r := range m.ToRecipients {
		to = append(to, r.toModel())
	}

	body := m.Body.Content
	if strings.EqualFold(m.Body.ContentType, "html") {
		body = mailbox.StripHTML(body)
	}

	// Zero when Graph omits or garbles the timestamp.
	received, _ := time.Parse(time.RFC3339, m.ReceivedDateTime)

	return models.RawMessage{
		ID:         m.ID,
		From:       m.From.toModel(),
		To:         to,
		Subject:    m.Subject,
		Body:       strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n")),
		ReceivedAt: received.UTC(),
	}
}

const fileAttachmentType = "#microsoft.graph.fileAttachment"

// graphAttachment is a file attachment. Item and reference attachments carry
// no contentBytes and are skipped.
type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	Size         int    `json:"size"`
	ContentBytes string `json:"contentBytes"`

	data []byte
}

func (a *graphAttachment) toAttachment() (models.Attachment, bool) {
	if a.ODataType != "" && a.ODataType != fileAttachmentType {
		return models.Attachment{}, false
	}
	data, err := base64.StdEncoding.DecodeString(a.ContentBytes)
	if err != nil {
		return models.Attachment{}, false
	}
	a.data = data
	return models.Attachment{
		Name:        a.Name,
		ContentType: a.ContentType,
		Size:        a.Size,
	}, true
}
