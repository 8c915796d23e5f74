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
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/backfill"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/notify"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/service"
)

var (
	backfillSince     time.Duration
	backfillPassDelay time.Duration
	backfillMaxPasses int
	backfillNotify    bool
)

func newBackfillCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Replay a historical window through the full pipeline",
		Long: `Fetch every message received within --since and run it through the full
pipeline. Entities are created and notifications sent as in normal
operation, except that notifications are logged unless --notify is set.
The persisted checkpoint is neither read nor moved. Messages that were
already acted upon are skipped.`,
		Args: cobra.NoArgs,
		RunE: runBackfill,
	}

	cmd.Flags().DurationVar(&backfillSince, "since", 168*time.Hour, "Lookback window")
	cmd.Flags().DurationVar(&backfillPassDelay, "pass-delay", 500*time.Millisecond, "Delay between passes")
	cmd.Flags().IntVar(&backfillMaxPasses, "max-passes", 10, "Maximum fetch passes")
	cmd.Flags().BoolVar(&backfillNotify, "notify", false, "Send chat notifications for created entities instead of logging them")

	return cmd
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := service.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	var opts service.PipelineOptions
	if !backfillNotify {
		opts.Channel = notify.NewLogChannel(slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), nil)))
	}
	p, err := svc.Pipeline(ctx, opts)
	if err != nil {
		return err
	}

	runner := backfill.NewRunner(backfill.RunnerConfig{
		Cycler:    p,
		MaxPasses: backfillMaxPasses,
		PassDelay: backfillPassDelay,
	})
	res, err := runner.Run(ctx, backfill.Request{Since: backfillSince})
	if res != nil {
		if perr := printJSON(cmd.OutOrStdout(), res); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}
