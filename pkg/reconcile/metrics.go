// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"github.com/LeeDigitalWorks/assetvault/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assetvault",
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Reconcile runs by outcome",
		},
		[]string{"outcome"},
	)

	runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "assetvault",
		Subsystem: "reconcile",
		Name:      "run_duration_seconds",
		Help:      "Time spent in one reconcile run",
		Buckets:   prometheus.DefBuckets,
	})

	lastAssets = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "assetvault",
		Subsystem: "reconcile",
		Name:      "last_assets",
		Help:      "Assets in the cache after the last successful reconcile",
	})

	lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "assetvault",
		Subsystem: "reconcile",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful reconcile",
	})
)

func init() {
	debug.MustRegister(runsTotal, runDuration, lastAssets, lastSuccess)
}
