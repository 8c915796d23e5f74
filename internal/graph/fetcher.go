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

// Package graph reads a Microsoft 365 mailbox through the Graph API.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/config"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/mailbox"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

// DefaultBaseURL is the Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

const messageFields = "id,subject,from,toRecipients,body,receivedDateTime,hasAttachments"

// NewClient returns an HTTP client that authenticates with the OAuth2
// client-credentials flow against the tenant's token endpoint.
func NewClient(ctx context.Context, cfg config.GraphConfig) *http.Client {
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	return creds.Client(ctx)
}

// Transport lists the inbox of one mailbox user.
type Transport struct {
	httpClient   *http.Client
	graphBaseURL string
	userID       string
}

// NewTransport creates a Graph mailbox transport.
func NewTransport(httpClient *http.Client, graphBaseURL, userID string) *Transport {
	return &Transport{
		httpClient:   httpClient,
		graphBaseURL: graphBaseURL,
		userID:       userID,
	}
}

// listResponse is a page of the messages collection.
type listResponse struct {
	Value    []graphMessage `json:"value"`
	NextLink string         `json:"@odata.nextLink"`
}

type attachmentResponse struct {
	Value []graphAttachment `json:"value"`
}

// FetchSince pages through inbox messages received after since, oldest
// first, and fetches file attachments for messages that have them. A failed
// attachment request fails the whole fetch so the message is retried.
func (t *Transport) FetchSince(ctx context.Context, since *time.Time) ([]models.RawMessage, error) {
	params := url.Values{}
	params.Set("$select", messageFields)
	params.Set("$orderby", "receivedDateTime asc")
	params.Set("$top", "50")
	if since != nil {
		params.Set("$filter", "receivedDateTime gt "+since.UTC().Format(time.RFC3339))
	}
	next := fmt.Sprintf("%s/users/%s/mailFolders/inbox/messages?%s", t.graphBaseURL, url.PathEscape(t.userID), params.Encode())

	var msgs []models.RawMessage
	for page := 0; next != ""; page++ {
		var resp listResponse
		if err := t.getJSON(ctx, next, &resp); err != nil {
			return nil, fmt.Errorf("list messages page %d: %w", page, err)
		}

		for _, gm := range resp.Value {
			msg := gm.toRawMessage()
			if gm.HasAttachments {
				atts, err := t.fetchAttachments(ctx, gm.ID)
				if err != nil {
					return nil, fmt.Errorf("attachments of %s: %w", gm.ID, err)
				}
				msg.Attachments = atts
			}
			msgs = append(msgs, msg)
		}
		next = resp.NextLink
	}

	return msgs, nil
}

func (t *Transport) fetchAttachments(ctx context.Context, messageID string) ([]models.Attachment, error) {
	u := fmt.Sprintf("%s/users/%s/messages/%s/attachments", t.graphBaseURL, url.PathEscape(t.userID), url.PathEscape(messageID))

	var resp attachmentResponse
	if err := t.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Attachment, 0, len(resp.Value))
	for _, ga := range resp.Value {
		a, ok := ga.toAttachment()
		if !ok {
			continue
		}
		a.Text = mailbox.DecodeText(a.Name, a.ContentType, ga.data)
		out = append(out, a)
	}
	return out, nil
}

func (t *Transport) getJSON(ctx context.Context, u string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", `outlook.body-content-type="text"`)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("graph API returned HTTP %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
