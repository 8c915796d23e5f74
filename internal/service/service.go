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

// Package service connects the backing stores named in the configuration
// and assembles pipelines over them. It is shared by the server and the
// operator CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/audit"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/checkpoint"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/config"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/dedup"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/entity"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/geocode"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/graph"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/mailbox"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/mailbox/imapmail"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/metrics"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/notify"
	"github.com/theChristopher16/pack1703-portal-sub005/internal/pipeline"
)

// Service holds the live connections and stores.
type Service struct {
	Config *config.Config

	Pool  *pgxpool.Pool
	Redis *redis.Client

	Checkpoints *checkpoint.PostgresStore
	Entities    *entity.PostgresStore
	Audit       *audit.PostgresSink
	Ledger      *dedup.RedisLedger
	Channel     *notify.RedisChannel

	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
}

// Open connects to PostgreSQL and Redis and initialises every store.
func Open(ctx context.Context, cfg *config.Config) (*Service, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	slog.Info("connected to PostgreSQL")

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)

	s := &Service{
		Config:  cfg,
		Pool:    pool,
		Redis:   rdb,
		Ledger:  dedup.NewRedisLedger(rdb).WithPrefix(dedup.DefaultPrefix + cfg.Pipeline.CheckpointName + ":"),
		Channel: notify.NewRedisChannel(rdb, cfg.NotificationsQueue),
	}
	if err := s.Channel.Ping(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	slog.Info("connected to Redis")

	if s.Checkpoints, err = checkpoint.NewPostgresStore(ctx, pool, cfg.Pipeline.CheckpointName); err != nil {
		s.Close()
		return nil, fmt.Errorf("init checkpoint store: %w", err)
	}
	if s.Entities, err = entity.NewPostgresStore(ctx, pool); err != nil {
		s.Close()
		return nil, fmt.Errorf("init entity store: %w", err)
	}
	if s.Audit, err = audit.NewPostgresSink(ctx, pool); err != nil {
		s.Close()
		return nil, fmt.Errorf("init audit sink: %w", err)
	}

	s.Registry = prometheus.NewRegistry()
	s.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.RegisterPool(s.Registry, pool); err != nil {
		s.Close()
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}
	s.Metrics = metrics.New(s.Registry)

	return s, nil
}

// PipelineOptions adjust the pipeline built by Service.Pipeline.
type PipelineOptions struct {
	// UseCheckpoint loads and saves the persisted checkpoint. Backfills
	// leave it unset.
	UseCheckpoint bool
	// Channel replaces the Redis notification channel when set.
	Channel notify.Channel
}

// Pipeline builds a pipeline reading from the configured mailbox.
func (s *Service) Pipeline(ctx context.Context, opts PipelineOptions) (*pipeline.Pipeline, error) {
	transport, err := NewTransport(ctx, s.Config.Mailbox)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Source:    mailbox.NewFetcher(transport, s.Config.Mailbox.FetchTimeout),
		Entities:  s.Entities,
		Ledger:    s.Ledger,
		Channel:   s.Channel,
		AuditSink: s.Audit,
		Metrics:   s.Metrics,
	}
	if opts.UseCheckpoint {
		deps.Checkpoints = s.Checkpoints
	}
	if opts.Channel != nil {
		deps.Channel = opts.Channel
	}
	if oracle := NewOracle(s.Config.Location); oracle != nil {
		deps.Oracle = oracle
	}
	return pipeline.Build(s.Config.Pipeline, deps)
}

// Health pings Redis and PostgreSQL.
func (s *Service) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.Channel.Ping(ctx); err != nil {
		return fmt.Errorf("redis unhealthy: %w", err)
	}
	if err := s.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres unhealthy: %w", err)
	}
	return nil
}

// Close releases the connections.
func (s *Service) Close() {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// NewTransport returns the mailbox transport selected by cfg.Provider.
func NewTransport(ctx context.Context, cfg config.MailboxConfig) (mailbox.Transport, error) {
	switch cfg.Provider {
	case config.ProviderIMAP:
		return imapmail.New(cfg.IMAP, nil), nil
	case config.ProviderGraph:
		client := graph.NewClient(ctx, cfg.Graph)
		return graph.NewTransport(client, graph.DefaultBaseURL, cfg.Graph.UserID), nil
	default:
		return nil, errors.New("unknown mailbox provider: " + cfg.Provider)
	}
}

// NewOracle returns the location oracle, or nil when none is configured.
func NewOracle(cfg config.LocationConfig) *geocode.Client {
	if cfg.BaseURL == "" {
		return nil
	}
	return geocode.NewClient(&http.Client{}, cfg.BaseURL, cfg.UserAgent, cfg.Timeout)
}
