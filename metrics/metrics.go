// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package metrics instruments experiment runs with Prometheus metrics.
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ThePhilAz/unique-benchmarking/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "uniquebench"

// ErrServe is returned when the metrics endpoint cannot be started.
var ErrServe = errors.New("failed to serve metrics")

// Metrics holds the collectors of one process.
type Metrics struct {
	registry *prometheus.Registry

	CallsTotal     *prometheus.CounterVec
	CallDuration   *prometheus.HistogramVec
	CallsInFlight  prometheus.Gauge
	GoldenTotal    *prometheus.CounterVec
	GoldenDuration prometheus.Histogram
}

// New creates metrics registered with a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assistant_calls_total",
			Help:      "Total number of settled assistant calls by outcome.",
		}, []string{"assistant", "status"}),
		CallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assistant_call_duration_seconds",
			Help:      "Wall-clock duration of assistant calls.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"assistant"}),
		CallsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "assistant_calls_in_flight",
			Help:      "Number of assistant calls currently outstanding.",
		}),
		GoldenTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "golden_answers_total",
			Help:      "Total number of resolved golden answers by outcome.",
		}, []string{"outcome"}),
		GoldenDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "golden_answer_duration_seconds",
			Help:      "Time spent producing golden answers.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}
	m.registry.MustRegister(
		m.CallsTotal,
		m.CallDuration,
		m.CallsInFlight,
		m.GoldenTotal,
		m.GoldenDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// CallStarted marks an assistant call as outstanding.
func (m *Metrics) CallStarted() {
	if m == nil {
		return
	}
	m.CallsInFlight.Inc()
}

// CallFinished records the outcome of an assistant call started with CallStarted.
func (m *Metrics) CallFinished(assistantID string, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CallsInFlight.Dec()
	m.CallsTotal.WithLabelValues(assistantID, status).Inc()
	m.CallDuration.WithLabelValues(assistantID).Observe(duration.Seconds())
}

// GoldenResolved records a resolved golden answer.
func (m *Metrics) GoldenResolved(success bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.GoldenTotal.WithLabelValues(outcome).Inc()
	m.GoldenDuration.Observe(duration.Seconds())
}

// Handler returns an HTTP handler exposing the collected metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes the metrics on /metrics at the given address until ctx is done.
// It returns once the listener is bound; serving continues in the background.
func (m *Metrics) Serve(ctx context.Context, address string, logger logging.Logger) (net.Addr, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServe, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, logging.LevelError, err, "metrics server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, logging.LevelWarn, err, "failed to shut down metrics server")
		}
	}()

	logger.Message(ctx, logging.LevelInfo, "serving metrics on http://%s/metrics", listener.Addr())
	return listener.Addr(), nil
}
