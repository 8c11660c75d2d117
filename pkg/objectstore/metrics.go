// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import (
	"time"

	"github.com/LeeDigitalWorks/assetvault/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	opPut          = "put"
	opGet          = "get"
	opDelete       = "delete"
	opHead         = "head"
	opList         = "list"
	opCreateBucket = "create_bucket"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assetvault",
			Subsystem: "objectstore",
			Name:      "requests_total",
			Help:      "Object store requests by operation and HTTP status (\"error\" for transport failures)",
		},
		[]string{"op", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "assetvault",
			Subsystem: "objectstore",
			Name:      "request_duration_seconds",
			Help:      "Object store request latency",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"op"},
	)

	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assetvault",
			Subsystem: "objectstore",
			Name:      "batch_uploads_total",
			Help:      "Items processed by the batch uploader by result",
		},
		[]string{"result"},
	)
)

func init() {
	debug.MustRegister(requestsTotal, requestDuration, uploadsTotal)
}

func observeRequest(op, status string, start time.Time) {
	requestsTotal.WithLabelValues(op, status).Inc()
	requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
