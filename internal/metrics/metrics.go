// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package metrics maintains prometheus counters for the scan pipeline and
// optionally serves them over HTTP.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scanner/scanner/internal/log"
)

var (
	registry = prometheus.NewRegistry()

	// EventsTotal counts events received from the stream, decoded or not.
	EventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scanner",
		Name:      "events_total",
		Help:      "Frames received from the event stream",
	})

	// MatchesTotal counts matched events per filter.
	MatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scanner",
		Name:      "matches_total",
		Help:      "Events matched, by filter",
	}, []string{"filter"})

	// DecodeFailures counts frames that failed JSON decoding and were skipped.
	DecodeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scanner",
		Name:      "decode_failures_total",
		Help:      "Frames skipped because they could not be decoded",
	})

	// Reconnects counts stream reconnection attempts.
	Reconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scanner",
		Name:      "reconnects_total",
		Help:      "Stream reconnection attempts",
	})

	// IterationFailures counts dispatch iterations that errored or panicked.
	IterationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scanner",
		Name:      "iteration_failures_total",
		Help:      "Dispatch iterations recovered after an error",
	})

	// LogWrites counts entries appended to the match log.
	LogWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scanner",
		Name:      "log_writes_total",
		Help:      "Entries appended to the match log",
	})
)

func init() {
	registry.MustRegister(EventsTotal, MatchesTotal, DecodeFailures,
		Reconnects, IterationFailures, LogWrites)
}

// Serve exposes /metrics on addr in a background goroutine. An empty addr
// disables the listener. Listener failures are logged, never fatal: metrics
// are an observer of the scan, not part of it.
func Serve(addr string) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("metrics listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Warn("metrics listener stopped")
		}
	}()
}
