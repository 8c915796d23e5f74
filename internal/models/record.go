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

package models

import (
	"maps"
	"slices"
	"time"
)

// Category is a content category a message can be classified into.
type Category string

const (
	CategoryEvent        Category = "event"
	CategoryAnnouncement Category = "announcement"
	CategoryResource     Category = "resource"
	CategoryVolunteer    Category = "volunteer_request"
	CategoryFundraising  Category = "fundraising_appeal"
)

// Categories lists every category in tie-break priority order.
var Categories = []Category{
	CategoryEvent,
	CategoryAnnouncement,
	CategoryResource,
	CategoryVolunteer,
	CategoryFundraising,
}

// Priority returns the tie-break rank of c (lower wins). Unknown categories
// sort last.
func (c Category) Priority() int {
	if i := slices.Index(Categories, c); i >= 0 {
		return i
	}
	return len(Categories)
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// CategoryScore is the keyword-match confidence of a message for one category.
type CategoryScore struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Matched    []string `json:"matched,omitempty"`
}

// SourceRef links an extracted record back to the message it came from.
type SourceRef struct {
	MessageID  string    `json:"message_id"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	ReceivedAt time.Time `json:"received_at"`
}

// Field names used by the extractors. Not every category fills every field.
const (
	FieldTitle                = "title"
	FieldDate                 = "date"
	FieldStartDate            = "start_date"
	FieldEndDate              = "end_date"
	FieldStartTime            = "start_time"
	FieldEndTime              = "end_time"
	FieldLocationName         = "location_name"
	FieldLocationAddress      = "location_address"
	FieldCost                 = "cost"
	FieldContactEmail         = "contact_email"
	FieldContactPhone         = "contact_phone"
	FieldRegistrationDeadline = "registration_deadline"
	FieldDescription          = "description"
	FieldSummary              = "summary"
	FieldAudience             = "audience"
	FieldURL                  = "url"
	FieldResourceType         = "resource_type"
	FieldRole                 = "role"
	FieldSlots                = "slots"
	FieldGoal                 = "goal"
	FieldDeadline             = "deadline"
	FieldCause                = "cause"
	FieldNormalizedAddress    = "normalized_address"
	FieldLatitude             = "latitude"
	FieldLongitude            = "longitude"

	ListRequirements = "requirements"
)

// ExtractedRecord is the category-specific structured result of extraction.
// Missing fields are absent from Fields rather than guessed. Records are
// never mutated after creation; use With to derive an updated copy.
type ExtractedRecord struct {
	Category Category            `json:"category"`
	Source   SourceRef           `json:"source"`
	Fields   map[string]string   `json:"fields"`
	Lists    map[string][]string `json:"lists,omitempty"`
}

// Field returns the named field, or "" when it was not extracted.
func (r ExtractedRecord) Field(name string) string {
	return r.Fields[name]
}

// Has reports whether the named field was extracted.
func (r ExtractedRecord) Has(name string) bool {
	return r.Fields[name] != ""
}

// List returns the named list field.
func (r ExtractedRecord) List(name string) []string {
	return r.Lists[name]
}

// Empty reports whether no field at all was extracted.
func (r ExtractedRecord) Empty() bool {
	return len(r.Fields) == 0 && len(r.Lists) == 0
}

// With returns a copy of r with the given fields set. Empty values are skipped.
func (r ExtractedRecord) With(fields map[string]string) ExtractedRecord {
	out := r
	out.Fields = maps.Clone(r.Fields)
	if out.Fields == nil {
		out.Fields = make(map[string]string, len(fields))
	}
	for k, v := range fields {
		if v != "" {
			out.Fields[k] = v
		}
	}
	if r.Lists != nil {
		out.Lists = make(map[string][]string, len(r.Lists))
		for k, v := range r.Lists {
			out.Lists[k] = slices.Clone(v)
		}
	}
	return out
}

// ValidationResult is the verdict of the validator for one record.
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	Confidence float64  `json:"confidence"`
	Issues     []string `json:"issues"`
	Verified   bool     `json:"verified"`
}
