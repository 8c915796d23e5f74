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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/audit"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/config"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/entity"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/geocode"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/mailbox"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/pipeline"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/service"
)

var dryRunVerify bool

// DryRunResult is printed by dry-run.
type DryRunResult struct {
	MessageID   string               `json:"message_id"`
	Subject     string               `json:"subject"`
	Attachments int                  `json:"attachments"`
	Decision    models.Decision      `json:"decision"`
	Audit       []models.AuditRecord `json:"audit"`
}

func newDryRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dry-run <file.eml>",
		Short: "Run one message through the pipeline without side effects",
		Long: `Parse an RFC 5322 message and run it through classification, extraction,
validation and the action policy against in-memory stores. Nothing is
written to the database, the acted ledger or the notification channel.

The pipeline options come from the configuration file when one can be
loaded and from built-in defaults otherwise. Pass "-" to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: runDryRun,
	}

	cmd.Flags().BoolVar(&dryRunVerify, "verify-location", false, "Query the configured location oracle")

	return cmd
}

func runDryRun(cmd *cobra.Command, args []string) error {
	pcfg := config.DefaultPipeline()
	var oracle geocode.Oracle
	if cfg, err := loadConfig(); err == nil {
		pcfg = cfg.Pipeline
		if o := service.NewOracle(cfg.Location); dryRunVerify && o != nil {
			oracle = o
		}
	} else {
		slog.Debug("using default pipeline options", "error", err)
	}

	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open message: %w", err)
		}
		defer f.Close()
		in = f
	}

	res, err := dryRun(cmd.Context(), pcfg, oracle, in)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

// dryRun processes one message against in-memory stores.
func dryRun(ctx context.Context, cfg config.PipelineConfig, oracle geocode.Oracle, r io.Reader) (*DryRunResult, error) {
	msg, err := mailbox.ParseMIME(r)
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	if msg.ID == "" {
		msg.ID = "dry-run"
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}

	sink := audit.NewMemorySink()
	p, err := pipeline.Build(cfg, pipeline.Deps{
		Source:    emptySource{},
		Entities:  entity.NewMemoryStore(),
		Oracle:    oracle,
		AuditSink: sink,
	})
	if err != nil {
		return nil, err
	}

	d := p.Process(ctx, msg)
	return &DryRunResult{
		MessageID:   msg.ID,
		Subject:     msg.Subject,
		Attachments: len(msg.Attachments),
		Decision:    d,
		Audit:       sink.Records(),
	}, nil
}

// emptySource satisfies pipeline.Source for single-message runs.
type emptySource struct{}

func (emptySource) FetchSince(context.Context, *time.Time) ([]models.RawMessage, error) {
	return nil, nil
}
