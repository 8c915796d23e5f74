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

import "time"

// Outcome is the terminal state reached by a message in a cycle.
type Outcome string

const (
	OutcomeUnclassified Outcome = "unclassified"
	OutcomeActed        Outcome = "acted"
	OutcomeNotActed     Outcome = "not_acted"
	OutcomeFailed       Outcome = "action_failed"
)

// Decision describes what the pipeline did with one message and why.
type Decision struct {
	MessageID  string            `json:"message_id"`
	Category   Category          `json:"category,omitempty"`
	Outcome    Outcome           `json:"outcome"`
	EntityID   string            `json:"entity_id,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Scores     []CategoryScore   `json:"scores,omitempty"`
	Record     *ExtractedRecord  `json:"record,omitempty"`
	Validation *ValidationResult `json:"validation,omitempty"`
	DecidedAt  time.Time         `json:"decided_at"`
}

// AuditKind names the pipeline event an audit record describes.
type AuditKind string

const (
	AuditFetch           AuditKind = "fetch"
	AuditFetchError      AuditKind = "fetch_error"
	AuditClassification  AuditKind = "classification"
	AuditUnclassified    AuditKind = "unclassified"
	AuditActed           AuditKind = "acted"
	AuditNotActed        AuditKind = "not_acted"
	AuditActionFailed    AuditKind = "action_failed"
	AuditNotifyError     AuditKind = "notify_error"
	AuditProcessingError AuditKind = "processing_error"
	AuditCheckpointError AuditKind = "checkpoint_error"
)

// AuditKindFor maps a terminal outcome to the audit kind recorded for it.
func AuditKindFor(o Outcome) AuditKind {
	switch o {
	case OutcomeUnclassified:
		return AuditUnclassified
	case OutcomeActed:
		return AuditActed
	case OutcomeFailed:
		return AuditActionFailed
	default:
		return AuditNotActed
	}
}

// AuditRecord is an append-only entry in the pipeline's audit trail.
type AuditRecord struct {
	ID         string         `json:"id"`
	Kind       AuditKind      `json:"kind"`
	MessageID  string         `json:"message_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	RecordedAt time.Time      `json:"recorded_at"`
}
