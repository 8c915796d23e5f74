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
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/service"
)

var checkpointResetYes bool

func newCheckpointCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or reset the mailbox checkpoint",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the persisted checkpoint",
		Args:  cobra.NoArgs,
		RunE:  runCheckpointShow,
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Clear the persisted checkpoint",
		Long: `Clear the persisted checkpoint so the next cycle fetches the whole mailbox.
Messages that were already acted upon are still skipped by the acted ledger.`,
		Args: cobra.NoArgs,
		RunE: runCheckpointReset,
	}
	reset.Flags().BoolVar(&checkpointResetYes, "yes", false, "Confirm the reset")

	cmd.AddCommand(show, reset)
	return cmd
}

func runCheckpointShow(cmd *cobra.Command, args []string) error {
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

	ts, err := svc.Checkpoints.Load(ctx)
	if err != nil {
		return err
	}
	if ts == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: no checkpoint\n", cfg.Pipeline.CheckpointName)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", cfg.Pipeline.CheckpointName, ts.UTC().Format(time.RFC3339))
	return nil
}

func runCheckpointReset(cmd *cobra.Command, args []string) error {
	if !checkpointResetYes {
		return errors.New("refusing to reset the checkpoint without --yes")
	}
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

	if err := svc.Checkpoints.Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: checkpoint cleared\n", cfg.Pipeline.CheckpointName)
	return nil
}
