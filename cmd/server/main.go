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

// Pack portal mail ingestion service
//
// Entry point for the ingestion service. It:
//  1. Loads configuration from config.yaml
//  2. Connects to PostgreSQL and Redis
//  3. Builds the ingestion pipeline over the configured mailbox
//  4. Runs a polling cycle immediately and then on every check interval
//  5. Serves /health, /metrics and POST /run
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/config"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/logging"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/pipeline"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/scheduler"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/service"
)

func main() {
	// Structured JSON logging at info until the configured level is known
	logging.Init(os.Stdout, slog.LevelInfo)

	slog.Info("starting mail ingestion service")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Init(os.Stdout, logging.ParseLevel(cfg.LogLevel))

	slog.Info("configuration loaded",
		"provider", cfg.Mailbox.Provider,
		"interval", cfg.Pipeline.CheckInterval,
		"auto_create", cfg.Pipeline.AutoCreateEnabled,
		"threshold", cfg.Pipeline.ConfidenceThreshold,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect to PostgreSQL + Redis ---
	svc, err := service.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open backing services", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	// --- Pipeline + Scheduler ---
	p, err := svc.Pipeline(ctx, service.PipelineOptions{UseCheckpoint: true})
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	ctrl := scheduler.New(p, &pipeline.State{}, cfg.Pipeline.CheckInterval)
	ctrl.OnRunning = svc.Metrics.SetRunning
	ctrl.Start(ctx)

	// --- HTTP Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Health(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "healthy",
			"running":     ctrl.Running(),
			"last_report": ctrl.LastReport(),
		})
	})
	mux.Handle("/metrics", promhttp.HandlerFor(svc.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("POST /run", func(w http.ResponseWriter, r *http.Request) {
		rep, err := ctrl.RunNow(context.WithoutCancel(r.Context()))
		switch {
		case errors.Is(err, scheduler.ErrCycleInProgress):
			http.Error(w, err.Error(), http.StatusConflict)
		case err != nil:
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error":  err.Error(),
				"report": rep,
			})
		default:
			writeJSON(w, http.StatusOK, rep)
		}
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Mailbox.FetchTimeout + time.Minute,
	}

	// --- Graceful Shutdown ---
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh

		slog.Info("received shutdown signal", "signal", sig)

		// Let an in-flight cycle finish before tearing down connections.
		ctrl.Stop()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("ingestion service listening", "addr", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("ingestion service stopped")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
