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

// Package metrics exposes Prometheus metrics for the ingestion pipeline.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

const namespace = "ingest"

// Metrics holds the pipeline metrics.
type Metrics struct {
	CyclesTotal       *prometheus.CounterVec
	CycleSeconds      prometheus.Histogram
	FetchSeconds      prometheus.Histogram
	MessagesFetched   prometheus.Counter
	DecisionsTotal    *prometheus.CounterVec
	Confidence        *prometheus.HistogramVec
	NotifyErrorsTotal prometheus.Counter
	CheckpointSeconds prometheus.Gauge
	CycleRunning      prometheus.Gauge
}

// New registers the pipeline metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Pipeline cycles by result",
			},
			[]string{"result"},
		),
		CycleSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_seconds",
				Help:      "Duration of a full pipeline cycle",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
		),
		FetchSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_seconds",
				Help:      "Mailbox fetch latency",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		MessagesFetched: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_fetched_total",
				Help:      "Messages returned by the mailbox",
			},
		),
		DecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Per-message decisions by category and outcome",
			},
			[]string{"category", "outcome"},
		),
		Confidence: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_confidence",
				Help:      "Validation confidence of extracted records",
				Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
			},
			[]string{"category"},
		),
		NotifyErrorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notify_errors_total",
				Help:      "Notifications that could not be delivered",
			},
		),
		CheckpointSeconds: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "checkpoint_timestamp_seconds",
				Help:      "Unix time of the last processed message",
			},
		),
		CycleRunning: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cycle_running",
				Help:      "1 while a pipeline cycle is in progress",
			},
		),
	}
}

// ObserveFetch records one successful fetch.
func (m *Metrics) ObserveFetch(d time.Duration, count int) {
	m.FetchSeconds.Observe(d.Seconds())
	m.MessagesFetched.Add(float64(count))
}

// ObserveCycle records a finished cycle. result is "ok", "fetch_error" or
// "cancelled".
func (m *Metrics) ObserveCycle(result string, d time.Duration) {
	m.CyclesTotal.WithLabelValues(result).Inc()
	m.CycleSeconds.Observe(d.Seconds())
}

// SetCheckpoint publishes the checkpoint timestamp.
func (m *Metrics) SetCheckpoint(t time.Time) {
	m.CheckpointSeconds.Set(float64(t.Unix()))
}

// SetRunning flips the cycle-running gauge.
func (m *Metrics) SetRunning(running bool) {
	if running {
		m.CycleRunning.Set(1)
		return
	}
	m.CycleRunning.Set(0)
}

// HandleDecision counts a decision. It matches events.Handler.
func (m *Metrics) HandleDecision(_ context.Context, d models.Decision) error {
	category := string(d.Category)
	if category == "" {
		category = "none"
	}
	m.DecisionsTotal.WithLabelValues(category, string(d.Outcome)).Inc()
	if d.Validation != nil {
		m.Confidence.WithLabelValues(category).Observe(d.Validation.Confidence)
	}
	return nil
}
