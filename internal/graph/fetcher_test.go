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
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type graphServer struct {
	mu              sync.Mutex
	filters         []string
	failAttachments bool
	srv             *httptest.Server
}

func newGraphServer(t *testing.T) *graphServer {
	t.Helper()
	gs := &graphServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/users/pack@example.org/mailFolders/inbox/messages", func(w http.ResponseWriter, r *http.Request) {
		gs.mu.Lock()
		gs.filters = append(gs.filters, r.URL.Query().Get("$filter"))
		gs.mu.Unlock()

		if r.URL.Query().Get("page") == "2" {
			json.NewEncoder(w).Encode(map[string]any{
				"value": []map[string]any{{
					"id":               "m2",
					"subject":          "Popcorn sale",
					"from":             map[string]any{"emailAddress": map[string]string{"address": "treasurer@example.org"}},
					"body":             map[string]string{"contentType": "html", "content": "<p>Goal: $2,000</p>"},
					"receivedDateTime": "2025-10-06T13:00:00Z",
				}},
			})
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]any{{
				"id":               "m1",
				"subject":          "Fall Campout",
				"from":             map[string]any{"emailAddress": map[string]string{"address": "cubmaster@example.org", "name": "Cubmaster"}},
				"toRecipients":     []map[string]any{{"emailAddress": map[string]string{"address": "pack@example.org"}}},
				"body":             map[string]string{"contentType": "text", "content": "See attached."},
				"receivedDateTime": "2025-10-06T12:00:00Z",
				"hasAttachments":   true,
			}},
			"@odata.nextLink": gs.srv.URL + "/users/pack@example.org/mailFolders/inbox/messages?page=2",
		})
	})
	mux.HandleFunc("/users/pack@example.org/messages/m1/attachments", func(w http.ResponseWriter, r *http.Request) {
		gs.mu.Lock()
		fail := gs.failAttachments
		gs.mu.Unlock()
		if fail {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]any{
				{
					"@odata.type":  "#microsoft.graph.fileAttachment",
					"name":         "campout.txt",
					"contentType":  "text/plain",
					"size":         25,
					"contentBytes": base64.StdEncoding.EncodeToString([]byte("Date: October 15-17, 2025")),
				},
				{
					"@odata.type": "#microsoft.graph.itemAttachment",
					"name":        "forwarded",
				},
			},
		})
	})

	gs.srv = httptest.NewServer(mux)
	t.Cleanup(gs.srv.Close)
	return gs
}

func TestFetchSincePagesAndAttachments(t *testing.T) {
	gs := newGraphServer(t)
	tr := NewTransport(gs.srv.Client(), gs.srv.URL, "pack@example.org")

	since := time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC)
	msgs, err := tr.FetchSince(context.Background(), &since)
	if err != nil {
		t.Fatalf("FetchSince: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}

	first := msgs[0]
	if first.ID != "m1" || first.From.Name != "Cubmaster" {
		t.Errorf("first = %+v, want m1 from Cubmaster", first)
	}
	if want := time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC); !first.ReceivedAt.Equal(want) {
		t.Errorf("ReceivedAt = %v, want %v", first.ReceivedAt, want)
	}
	if len(first.Attachments) != 1 {
		t.Fatalf("len(Attachments) = %d, want 1", len(first.Attachments))
	}
	if got := first.Attachments[0].Text; got != "Date: October 15-17, 2025" {
		t.Errorf("attachment text = %q, want %q", got, "Date: October 15-17, 2025")
	}

	if got := msgs[1].Body; got != "Goal: $2,000" {
		t.Errorf("html body = %q, want %q", got, "Goal: $2,000")
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()
	if !strings.HasPrefix(gs.filters[0], "receivedDateTime gt 2025-10-06T00:00:00Z") {
		t.Errorf("$filter = %q, want receivedDateTime filter", gs.filters[0])
	}
}

func TestFetchSinceHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	tr := NewTransport(srv.Client(), srv.URL, "pack@example.org")
	if _, err := tr.FetchSince(context.Background(), nil); err == nil {
		t.Fatal("FetchSince() error = nil, want HTTP error")
	}
}

func TestFetchSinceAttachmentErrorFailsFetch(t *testing.T) {
	gs := newGraphServer(t)
	gs.failAttachments = true
	tr := NewTransport(gs.srv.Client(), gs.srv.URL, "pack@example.org")

	msgs, err := tr.FetchSince(context.Background(), nil)
	if err == nil {
		t.Fatal("FetchSince() error = nil, want attachment error")
	}
	if !strings.Contains(err.Error(), "attachments of m1") {
		t.Errorf("error = %v, want it to name message m1", err)
	}
	if msgs != nil {
		t.Errorf("msgs = %+v, want nil", msgs)
	}
}
