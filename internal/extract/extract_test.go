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

package extract

import (
	"slices"
	"testing"
	"time"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

func eventMessage() models.RawMessage {
	return models.RawMessage{
		ID:      "msg-1",
		From:    models.EmailAddress{Address: "cubmaster@example.org", Name: "Cubmaster"},
		Subject: "Pack Meeting - March 15th",
		Body: "Join us for our monthly pack meeting!\n\n" +
			"Date: March 15, 2024\n" +
			"Time: 6:30 PM\n" +
			"Location: Community Center\n" +
			"Address: 123 Main St, Houston, TX\n",
		ReceivedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestExtractEvent(t *testing.T) {
	rec, err := DefaultSet().Extract(models.CategoryEvent, eventMessage())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := map[string]string{
		models.FieldTitle:           "Pack Meeting - March 15th",
		models.FieldDate:            "March 15, 2024",
		models.FieldStartDate:       "2024-03-15",
		models.FieldStartTime:       "6:30 PM",
		models.FieldLocationName:    "Community Center",
		models.FieldLocationAddress: "123 Main St, Houston, TX",
		models.FieldContactEmail:    "cubmaster@example.org",
		models.FieldDescription:     "Join us for our monthly pack meeting!",
	}
	for field, v := range want {
		if got := rec.Field(field); got != v {
			t.Errorf("%s = %q, want %q", field, got, v)
		}
	}
	if rec.Has(models.FieldEndDate) {
		t.Errorf("end_date = %q, want absent", rec.Field(models.FieldEndDate))
	}
	if rec.Source.MessageID != "msg-1" {
		t.Errorf("source message id = %q, want %q", rec.Source.MessageID, "msg-1")
	}
}

func TestExtractEventFromAttachmentOnly(t *testing.T) {
	msg := models.RawMessage{
		ID:      "msg-2",
		Subject: "Campout details",
		Body:    "See attached.",
		Attachments: []models.Attachment{{
			Name:        "campout.txt",
			ContentType: "text/plain",
			Text:        "Fall Campout\nDate: October 15-17, 2025\nLocation: Double Lake Recreation Area\n",
		}},
	}

	rec, err := DefaultSet().Extract(models.CategoryEvent, msg)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := rec.Field(models.FieldStartDate); got != "2025-10-15" {
		t.Errorf("start_date = %q, want %q", got, "2025-10-15")
	}
	if got := rec.Field(models.FieldEndDate); got != "2025-10-17" {
		t.Errorf("end_date = %q, want %q", got, "2025-10-17")
	}
	if got := rec.Field(models.FieldLocationName); got != "Double Lake Recreation Area" {
		t.Errorf("location_name = %q, want %q", got, "Double Lake Recreation Area")
	}
}

func TestExtractLeavesMissingFieldsAbsent(t *testing.T) {
	msg := models.RawMessage{ID: "msg-3", Body: "Nothing much to say"}

	rec, err := DefaultSet().Extract(models.CategoryEvent, msg)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, field := range []string{
		models.FieldTitle, models.FieldDate, models.FieldStartDate,
		models.FieldLocationName, models.FieldContactEmail,
	} {
		if rec.Has(field) {
			t.Errorf("%s = %q, want absent", field, rec.Field(field))
		}
	}
}

func TestExtractTimeRangeAndRequirements(t *testing.T) {
	in := TextInput("Den Hike", "Time: 9am - 3pm\nCost: $15 per scout\n\nWhat to bring:\n- Sleeping bag\n- Flashlight\n- Water bottle\n\nQuestions? den4@example.org", nil)

	rec, err := DefaultSet().ExtractInput(models.CategoryEvent, in, models.SourceRef{})
	if err != nil {
		t.Fatalf("ExtractInput: %v", err)
	}
	if got := rec.Field(models.FieldStartTime); got != "9am" {
		t.Errorf("start_time = %q, want %q", got, "9am")
	}
	if got := rec.Field(models.FieldEndTime); got != "3pm" {
		t.Errorf("end_time = %q, want %q", got, "3pm")
	}
	if got := rec.Field(models.FieldCost); got != "$15 per scout" {
		t.Errorf("cost = %q, want %q", got, "$15 per scout")
	}
	if got := rec.Field(models.FieldContactEmail); got != "den4@example.org" {
		t.Errorf("contact_email = %q, want %q", got, "den4@example.org")
	}
	want := []string{"Sleeping bag", "Flashlight", "Water bottle"}
	if got := rec.List(models.ListRequirements); !slices.Equal(got, want) {
		t.Errorf("requirements = %v, want %v", got, want)
	}
}

func TestExtractVolunteerAndFundraising(t *testing.T) {
	set := DefaultSet()

	vol, err := set.ExtractInput(models.CategoryVolunteer,
		TextInput("Help needed", "We need 5 volunteers for the popcorn booth.", nil), models.SourceRef{})
	if err != nil {
		t.Fatalf("ExtractInput volunteer: %v", err)
	}
	if got := vol.Field(models.FieldRole); got != "the popcorn booth" {
		t.Errorf("role = %q, want %q", got, "the popcorn booth")
	}
	if got := vol.Field(models.FieldSlots); got != "5" {
		t.Errorf("slots = %q, want %q", got, "5")
	}

	fund, err := set.ExtractInput(models.CategoryFundraising,
		TextInput("Popcorn sale", "Our goal is $2,000. Proceeds go to summer camp scholarships.", nil), models.SourceRef{})
	if err != nil {
		t.Fatalf("ExtractInput fundraising: %v", err)
	}
	if got := fund.Field(models.FieldGoal); got != "$2,000" {
		t.Errorf("goal = %q, want %q", got, "$2,000")
	}
	if got := fund.Field(models.FieldCause); got != "summer camp scholarships" {
		t.Errorf("cause = %q, want %q", got, "summer camp scholarships")
	}
	if got := fund.Field(models.FieldTitle); got != "Popcorn sale" {
		t.Errorf("title = %q, want %q", got, "Popcorn sale")
	}
}

func TestSubjectStripsReplyPrefixes(t *testing.T) {
	v, ok := Subject()(Input{Subject: "RE: Fwd: Blue and Gold Banquet"})
	if !ok || v != "Blue and Gold Banquet" {
		t.Errorf("Subject() = %q, %v, want %q, true", v, ok, "Blue and Gold Banquet")
	}
}

func TestNewSetFieldPatternOverride(t *testing.T) {
	set, err := NewSet(DefaultSpecs(), map[string][]string{
		"event.location_name": {`(?i)meet at ([A-Za-z ]+)`},
	})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}

	rec, err := set.ExtractInput(models.CategoryEvent,
		TextInput("Hike", "Location: ignored\nMeet at Camp Strake\n", nil), models.SourceRef{})
	if err != nil {
		t.Fatalf("ExtractInput: %v", err)
	}
	if got := rec.Field(models.FieldLocationName); got != "Camp Strake" {
		t.Errorf("location_name = %q, want %q", got, "Camp Strake")
	}
}

func TestNewSetRejectsBadOverrides(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string][]string
	}{
		{"bad regex", map[string][]string{"event.title": {"("}}},
		{"unknown category", map[string][]string{"picnic.title": {"x"}}},
		{"missing field", map[string][]string{"event": {"x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSet(DefaultSpecs(), tt.overrides); err == nil {
				t.Error("NewSet() error = nil, want error")
			}
		})
	}
}

func TestExtractUnknownCategory(t *testing.T) {
	if _, err := DefaultSet().Extract("picnic", models.RawMessage{}); err == nil {
		t.Error("Extract() error = nil, want error")
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw       string
		wantStart string
		wantEnd   string
		wantOK    bool
	}{
		{"March 15, 2024", "2024-03-15", "", true},
		{"Sat, Mar 2nd 2024", "2024-03-02", "", true},
		{"October 15-17, 2025", "2025-10-15", "2025-10-17", true},
		{"10/04/2025", "2025-10-04", "", true},
		{"2025-11-01", "2025-11-01", "", true},
		{"February 30, 2024", "", "", false},
		{"next Tuesday", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			start, end, ok := ParseDate(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got := start.Format(DateLayout); got != tt.wantStart {
				t.Errorf("start = %q, want %q", got, tt.wantStart)
			}
			gotEnd := ""
			if !end.IsZero() {
				gotEnd = end.Format(DateLayout)
			}
			if gotEnd != tt.wantEnd {
				t.Errorf("end = %q, want %q", gotEnd, tt.wantEnd)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList("tent, sleeping bag; and flashlight,,")
	want := []string{"tent", "sleeping bag", "flashlight"}
	if !slices.Equal(got, want) {
		t.Errorf("SplitList() = %v, want %v", got, want)
	}
}
