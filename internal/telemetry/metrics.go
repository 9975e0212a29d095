/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes Prometheus metrics for the generation pipeline.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	generationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cancion_generation_runs_total",
		Help: "Playlist generation pipeline runs by outcome.",
	}, []string{"outcome"})

	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cancion_generation_duration_seconds",
		Help:    "Wall time of one generation pipeline run.",
		Buckets: prometheus.DefBuckets,
	})

	generationResultSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cancion_generation_result_songs",
		Help:    "Songs in a successful generation result.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	liveRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cancion_live_refreshes_total",
		Help: "Live-updating playlist refreshes by outcome.",
	}, []string{"outcome"})

	// DatabaseQueryDuration tracks per-table query latency, labelled by
	// operation (query, create, update, delete).
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cancion_db_query_duration_seconds",
		Help:    "Database operation latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts failed database operations.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cancion_db_errors_total",
		Help: "Database operation errors.",
	}, []string{"operation", "kind"})

	// DatabaseConnectionsActive gauges open pool connections.
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cancion_db_connections_active",
		Help: "Open database connections.",
	})

	// DatabaseConnectionsIdle gauges idle pool connections.
	DatabaseConnectionsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cancion_db_connections_idle",
		Help: "Idle database connections.",
	})
)

// ObserveGeneration records a pipeline run.
func ObserveGeneration(outcome string, elapsed time.Duration, resultSize int) {
	generationRuns.WithLabelValues(outcome).Inc()
	generationDuration.Observe(elapsed.Seconds())
	if outcome == "ok" {
		generationResultSize.Observe(float64(resultSize))
	}
}

// ObserveLiveRefresh records one live-update pass over a playlist.
func ObserveLiveRefresh(outcome string) {
	liveRefreshes.WithLabelValues(outcome).Inc()
}

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
