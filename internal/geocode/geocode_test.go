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

package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestVerifyFound(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`[{"display_name":"123 Main Street, Houston, Texas, USA","lat":"29.7604","lon":"-95.3698"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "pack-ingest/1.0", time.Second)
	res, err := c.Verify(context.Background(), "123 Main St, Houston, TX")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if gotQuery != "123 Main St, Houston, TX" {
		t.Errorf("q = %q", gotQuery)
	}
	if gotUA != "pack-ingest/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if !res.Verified {
		t.Fatal("Verified = false, want true")
	}
	if res.NormalizedAddress != "123 Main Street, Houston, Texas, USA" {
		t.Errorf("NormalizedAddress = %q", res.NormalizedAddress)
	}
	if res.Latitude != 29.7604 || res.Longitude != -95.3698 {
		t.Errorf("coordinates = %v,%v", res.Latitude, res.Longitude)
	}
}

func TestVerifyNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.Client(), srv.URL, "", time.Second).Verify(context.Background(), "Nowhere")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Verified {
		t.Error("Verified = true, want false")
	}
}

func TestVerifyTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewClient(srv.Client(), srv.URL, "", 20*time.Millisecond).Verify(context.Background(), "Community Center")
	if err == nil {
		t.Fatal("Verify() error = nil, want timeout")
	}
}
