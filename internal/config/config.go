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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Mailbox providers.
const (
	ProviderIMAP  = "imap"
	ProviderGraph = "graph"
)

// IMAPConfig holds connection settings for an IMAP mailbox.
type IMAPConfig struct {
	Addr       string
	Username   string
	Password   string
	Folder     string
	UnreadOnly bool
}

// GraphConfig holds credentials for a Microsoft 365 mailbox read through Graph.
type GraphConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	UserID       string
}

// MailboxConfig selects and configures the mailbox transport.
type MailboxConfig struct {
	Provider     string
	FetchTimeout time.Duration
	IMAP         IMAPConfig
	Graph        GraphConfig
}

// PipelineConfig holds the options consumed by the ingestion pipeline.
type PipelineConfig struct {
	CheckInterval       time.Duration
	AutoCreateEnabled   bool
	NotifyOnCreation    bool
	ConfidenceThreshold float64
	NotificationChannel string
	DedupEntities       bool
	CheckpointName      string

	// CategoryLexicons overrides the keyword set of individual categories.
	CategoryLexicons map[string][]string
	// FieldPatterns overrides the rule chain of individual fields, keyed
	// "category.field".
	FieldPatterns map[string][]string
}

// LocationConfig configures the optional location verification oracle.
type LocationConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Config holds all configuration for the ingestion service.
type Config struct {
	Mailbox  MailboxConfig
	Pipeline PipelineConfig
	Location LocationConfig

	DatabaseURL string

	// Redis
	RedisURL           string
	NotificationsQueue string

	// Server (health, metrics, manual trigger)
	Port     int
	LogLevel string
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Mailbox struct {
		Provider     string `yaml:"provider"`
		FetchTimeout string `yaml:"fetch_timeout"`
		IMAP         struct {
			Addr       string `yaml:"addr"`
			Username   string `yaml:"username"`
			Password   string `yaml:"password"`
			Folder     string `yaml:"folder"`
			UnreadOnly *bool  `yaml:"unread_only"`
		} `yaml:"imap"`
		Graph struct {
			TenantID     string `yaml:"tenant_id"`
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			UserID       string `yaml:"user_id"`
		} `yaml:"graph"`
	} `yaml:"mailbox"`
	Pipeline struct {
		CheckIntervalMinutes *int                `yaml:"check_interval_minutes"`
		AutoCreateEnabled    *bool               `yaml:"auto_create_enabled"`
		NotifyOnCreation     *bool               `yaml:"notify_on_creation"`
		ConfidenceThreshold  *float64            `yaml:"confidence_threshold"`
		NotificationChannel  string              `yaml:"notification_channel"`
		DedupEntities        bool                `yaml:"dedup_entities"`
		CheckpointName       string              `yaml:"checkpoint_name"`
		CategoryLexicons     map[string][]string `yaml:"category_lexicons"`
		FieldPatterns        map[string][]string `yaml:"field_patterns"`
	} `yaml:"pipeline"`
	Location struct {
		BaseURL   string `yaml:"base_url"`
		Timeout   string `yaml:"timeout"`
		UserAgent string `yaml:"user_agent"`
	} `yaml:"location"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Notifications string `yaml:"notifications"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse builds a Config from YAML bytes, expanding ${VAR} references and
// applying environment fallbacks and defaults.
func Parse(data []byte) (*Config, error) {
	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	intervalMinutes := envOrDefaultInt("CHECK_INTERVAL_MINUTES", 5)
	if raw.Pipeline.CheckIntervalMinutes != nil {
		intervalMinutes = *raw.Pipeline.CheckIntervalMinutes
	}

	cfg := &Config{
		Mailbox: MailboxConfig{
			Provider:     strings.ToLower(firstNonEmpty(raw.Mailbox.Provider, envOrDefault("MAILBOX_PROVIDER", ProviderIMAP))),
			FetchTimeout: parseDurationOr(raw.Mailbox.FetchTimeout, envOrDefaultDuration("FETCH_TIMEOUT", 60*time.Second)),
			IMAP: IMAPConfig{
				Addr:       firstNonEmpty(raw.Mailbox.IMAP.Addr, os.Getenv("IMAP_ADDR")),
				Username:   firstNonEmpty(raw.Mailbox.IMAP.Username, os.Getenv("IMAP_USERNAME")),
				Password:   firstNonEmpty(raw.Mailbox.IMAP.Password, os.Getenv("IMAP_PASSWORD")),
				Folder:     firstNonEmpty(raw.Mailbox.IMAP.Folder, "INBOX"),
				UnreadOnly: boolOr(raw.Mailbox.IMAP.UnreadOnly, true),
			},
			Graph: GraphConfig{
				TenantID:     raw.Mailbox.Graph.TenantID,
				ClientID:     raw.Mailbox.Graph.ClientID,
				ClientSecret: raw.Mailbox.Graph.ClientSecret,
				UserID:       raw.Mailbox.Graph.UserID,
			},
		},
		Pipeline: PipelineConfig{
			CheckInterval:       time.Duration(intervalMinutes) * time.Minute,
			AutoCreateEnabled:   boolOr(raw.Pipeline.AutoCreateEnabled, envOrDefaultBool("AUTO_CREATE_ENABLED", true)),
			NotifyOnCreation:    boolOr(raw.Pipeline.NotifyOnCreation, envOrDefaultBool("NOTIFY_ON_CREATION", true)),
			ConfidenceThreshold: envOrDefaultFloat("CONFIDENCE_THRESHOLD", 0.6),
			NotificationChannel: firstNonEmpty(raw.Pipeline.NotificationChannel, "general"),
			DedupEntities:       raw.Pipeline.DedupEntities,
			CheckpointName:      firstNonEmpty(raw.Pipeline.CheckpointName, "mailbox"),
			CategoryLexicons:    raw.Pipeline.CategoryLexicons,
			FieldPatterns:       raw.Pipeline.FieldPatterns,
		},
		Location: LocationConfig{
			BaseURL:   firstNonEmpty(raw.Location.BaseURL, os.Getenv("LOCATION_BASE_URL")),
			Timeout:   parseDurationOr(raw.Location.Timeout, 5*time.Second),
			UserAgent: firstNonEmpty(raw.Location.UserAgent, "pack-portal-ingestion/1.0"),
		},
		DatabaseURL:        firstNonEmpty(raw.Database.URL, envOrDefault("DATABASE_URL", "postgres://localhost:5432/portal")),
		RedisURL:           firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "redis://localhost:6379/0")),
		NotificationsQueue: firstNonEmpty(raw.Redis.Queues.Notifications, envOrDefault("NOTIFICATIONS_QUEUE", "chat")),
		Port:               envOrDefaultInt("PORT", 8080),
		LogLevel:           firstNonEmpty(raw.LogLevel, envOrDefault("LOG_LEVEL", "info")),
	}
	if raw.Pipeline.ConfidenceThreshold != nil {
		cfg.Pipeline.ConfidenceThreshold = *raw.Pipeline.ConfidenceThreshold
	}
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Pipeline.CheckInterval <= 0 {
		return fmt.Errorf("check_interval_minutes must be positive, got %v", c.Pipeline.CheckInterval)
	}
	if c.Pipeline.ConfidenceThreshold < 0 || c.Pipeline.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be within [0,1], got %v", c.Pipeline.ConfidenceThreshold)
	}

	switch c.Mailbox.Provider {
	case ProviderIMAP:
		if c.Mailbox.IMAP.Addr == "" || c.Mailbox.IMAP.Username == "" {
			return fmt.Errorf("imap mailbox requires addr and username; check config.yaml and environment variables")
		}
	case ProviderGraph:
		g := c.Mailbox.Graph
		if g.TenantID == "" || g.ClientID == "" || g.ClientSecret == "" || g.UserID == "" {
			return fmt.Errorf("graph mailbox requires tenant_id, client_id, client_secret and user_id")
		}
	default:
		return fmt.Errorf("unknown mailbox provider %q", c.Mailbox.Provider)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return fallback
}

func boolOr(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// DefaultPipeline returns the pipeline options used when no configuration
// file is available, as for offline dry runs.
func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		CheckInterval:       5 * time.Minute,
		AutoCreateEnabled:   true,
		NotifyOnCreation:    true,
		ConfidenceThreshold: 0.6,
		NotificationChannel: "general",
		CheckpointName:      "mailbox",
	}
}
