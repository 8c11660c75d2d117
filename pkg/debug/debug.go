// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package debug

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LeeDigitalWorks/assetvault/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readyStateNotReady = 0
	readyStateReady    = 1
)

var (
	readyState atomic.Int64

	customReadyCheckMu sync.RWMutex
	customReadyCheck   func() bool

	// Registry for assetvault metrics, exported next to the Go runtime defaults.
	globalRegistry = prometheus.NewRegistry()
)

func SetReady() {
	readyState.Store(readyStateReady)
}

func SetNotReady() {
	readyState.Store(readyStateNotReady)
}

// SetReadyCheck registers an extra readiness condition evaluated after SetReady.
func SetReadyCheck(check func() bool) {
	customReadyCheckMu.Lock()
	defer customReadyCheckMu.Unlock()
	customReadyCheck = check
}

func IsReady() bool {
	if readyState.Load() != readyStateReady {
		return false
	}

	customReadyCheckMu.RLock()
	check := customReadyCheck
	customReadyCheckMu.RUnlock()

	if check != nil {
		return check()
	}
	return true
}

// Registry returns the Prometheus registry for registering custom metrics.
func Registry() prometheus.Registerer {
	return globalRegistry
}

// MustRegister registers collectors, ignoring ones that are already present
// so packages can be initialised more than once in tests.
func MustRegister(cs ...prometheus.Collector) {
	for _, c := range cs {
		if err := globalRegistry.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}

func GetMux() *http.ServeMux {
	mux := http.NewServeMux()

	gatherers := prometheus.Gatherers{
		prometheus.DefaultGatherer,
		globalRegistry,
	}
	mux.Handle("/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))
	mux.Handle("/debug/", http.HandlerFunc(pprof.Index))
	mux.Handle("/debug/profile", http.HandlerFunc(pprof.Profile))
	mux.Handle("/debug/goroutine/", pprof.Handler("goroutine"))
	mux.Handle("/debug/heap/", pprof.Handler("heap"))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})

	return mux
}

// Serve runs the debug server on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           GetMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("debug server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
