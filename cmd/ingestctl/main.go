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

// Command ingestctl is the operator CLI for the mail ingestion service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/config"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/logging"
)

// Global flags.
var (
	cfgFile  string
	logLevel string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ingestctl",
		Short:         "Operate the mail ingestion pipeline",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(cmd.ErrOrStderr(), logging.ParseLevel(logLevel))
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config.yaml (default $CONFIG_PATH)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(
		newDryRunCommand(),
		newBackfillCommand(),
		newCheckpointCommand(),
		newAuditCommand(),
	)
	return root
}

// loadConfig reads --config when given and falls back to config.Load.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Load()
	}
	data, err := os.ReadFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", cfgFile, err)
	}
	return config.Parse(data)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("failed to encode output", "error", err)
		return err
	}
	return nil
}
