// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package assetcache

import (
	"github.com/LeeDigitalWorks/assetvault/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	assetsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "assetvault",
		Subsystem: "cache",
		Name:      "assets",
		Help:      "Number of asset records held in the local cache",
	})

	persistErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "assetvault",
		Subsystem: "cache",
		Name:      "persist_errors_total",
		Help:      "Total number of failed cache writes",
	})

	eventsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "assetvault",
		Subsystem: "cache",
		Name:      "events_dropped_total",
		Help:      "Cache events dropped because a subscriber channel was full",
	})
)

func init() {
	debug.MustRegister(assetsGauge, persistErrorsTotal, eventsDroppedTotal)
}
