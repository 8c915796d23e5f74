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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/config"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

const eventEML = "From: Cubmaster <cubmaster@example.org>\r\n" +
	"To: parents@example.org\r\n" +
	"Subject: Pack Meeting - March 15th\r\n" +
	"Message-Id: <meeting-1@example.org>\r\n" +
	"Date: Fri, 01 Mar 2024 12:00:00 +0000\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Join us for our monthly pack meeting!\r\n" +
	"\r\n" +
	"Date: March 15, 2024\r\n" +
	"Time: 6:30 PM\r\n" +
	"Location: Community Center\r\n"

const spamEML = "From: deals@example.com\r\n" +
	"Subject: Deal\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"Buy now! Limited offer!\r\n"

func auditKinds(recs []models.AuditRecord) []models.AuditKind {
	out := make([]models.AuditKind, len(recs))
	for i, r := range recs {
		out[i] = r.Kind
	}
	return out
}

func TestDryRunEvent(t *testing.T) {
	res, err := dryRun(context.Background(), config.DefaultPipeline(), nil, strings.NewReader(eventEML))
	if err != nil {
		t.Fatalf("dryRun: %v", err)
	}

	if res.MessageID != "meeting-1@example.org" {
		t.Errorf("MessageID = %q, want meeting-1@example.org", res.MessageID)
	}
	if res.Decision.Outcome != models.OutcomeActed {
		t.Fatalf("Outcome = %q, want acted (reason %q)", res.Decision.Outcome, res.Decision.Reason)
	}
	if got := res.Decision.Record.Field(models.FieldStartDate); got != "2024-03-15" {
		t.Errorf("start_date = %q, want 2024-03-15", got)
	}
	want := []models.AuditKind{models.AuditClassification, models.AuditActed}
	if got := auditKinds(res.Audit); !slices.Equal(got, want) {
		t.Errorf("audit kinds = %v, want %v", got, want)
	}
}

func TestDryRunUnclassified(t *testing.T) {
	res, err := dryRun(context.Background(), config.DefaultPipeline(), nil, strings.NewReader(spamEML))
	if err != nil {
		t.Fatalf("dryRun: %v", err)
	}
	if res.MessageID != "dry-run" {
		t.Errorf("MessageID = %q, want dry-run placeholder", res.MessageID)
	}
	if res.Decision.Outcome != models.OutcomeUnclassified {
		t.Errorf("Outcome = %q, want unclassified", res.Decision.Outcome)
	}
}

func TestDryRunCommandReadsStdin(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	var out bytes.Buffer
	root := newRootCommand()
	root.SetIn(strings.NewReader(eventEML))
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"dry-run", "-"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var res DryRunResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if res.Decision.Outcome != models.OutcomeActed {
		t.Errorf("Outcome = %q, want acted", res.Decision.Outcome)
	}
}

func TestCheckpointResetRequiresConfirmation(t *testing.T) {
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"checkpoint", "reset"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Errorf("Execute() error = %v, want confirmation error", err)
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"dry-run", "backfill", "checkpoint", "audit"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("Find(%q) = %v, %v", name, cmd, err)
		}
	}
}
