// Package observability provides Prometheus metrics for the follower loop.
package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Loop metrics
	TicksTotal       prometheus.Counter
	TickErrors       *prometheus.CounterVec
	TickDuration     prometheus.Histogram
	TransactionsSeen prometheus.Counter

	// Event metrics
	EventsClassified *prometheus.CounterVec
	Handoffs         prometheus.Counter

	// Trading metrics
	OrdersTotal    *prometheus.CounterVec
	Resubmissions  *prometheus.CounterVec
	PositionState  prometheus.Gauge
	LastPriceRatio prometheus.Gauge
	ActivityGapMax prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on its own registry
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "smart_money_bot"
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		TicksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "ticks_total",
			Help:      "Total number of polling ticks run",
		}),
		TickErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "tick_errors_total",
			Help:      "Errors caught at tick or transaction boundaries",
		}, []string{"stage"}),
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "tick_duration_seconds",
			Help:      "Duration of a full polling tick",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		TransactionsSeen: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "transactions_total",
			Help:      "Transactions delivered to the classifier",
		}),

		EventsClassified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "classified_total",
			Help:      "Classified events by kind",
		}, []string{"kind"}),
		Handoffs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "handoffs_total",
			Help:      "Times tracking moved to a new wallet",
		}),

		OrdersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "orders_total",
			Help:      "Finished orders by side and outcome",
		}, []string{"side", "outcome"}),
		Resubmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "resubmissions_total",
			Help:      "Order resubmissions by side and reason",
		}, []string{"side", "reason"}),
		PositionState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "position_state",
			Help:      "Position state: 0 none, 1 bought, 2 sold",
		}),
		LastPriceRatio: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "price_ratio",
			Help:      "Last observed price divided by the initial pool price",
		}),
		ActivityGapMax: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "activity_gap_max_seconds",
			Help:      "Largest gap between tracked account activity while holding",
		}),
	}
}

// RecordTick records a finished tick
func (m *Metrics) RecordTick(d time.Duration) {
	if m == nil {
		return
	}
	m.TicksTotal.Inc()
	m.TickDuration.Observe(d.Seconds())
}

// RecordTickError records an error caught at a loop boundary
func (m *Metrics) RecordTickError(stage string) {
	if m == nil {
		return
	}
	m.TickErrors.WithLabelValues(stage).Inc()
}

// RecordTransactions records transactions handed to the classifier
func (m *Metrics) RecordTransactions(n int) {
	if m == nil {
		return
	}
	m.TransactionsSeen.Add(float64(n))
}

// RecordEvent records a classified event
func (m *Metrics) RecordEvent(kind string) {
	if m == nil {
		return
	}
	m.EventsClassified.WithLabelValues(kind).Inc()
}

// RecordHandoff records a wallet hand-off
func (m *Metrics) RecordHandoff() {
	if m == nil {
		return
	}
	m.Handoffs.Inc()
}

// RecordOrder records a finished order
func (m *Metrics) RecordOrder(side, outcome string) {
	if m == nil {
		return
	}
	m.OrdersTotal.WithLabelValues(side, outcome).Inc()
}

// RecordResubmission records a retried order attempt
func (m *Metrics) RecordResubmission(side, reason string) {
	if m == nil {
		return
	}
	m.Resubmissions.WithLabelValues(side, reason).Inc()
}

// SetPositionState updates the position gauge
func (m *Metrics) SetPositionState(state int) {
	if m == nil {
		return
	}
	m.PositionState.Set(float64(state))
}

// SetPriceRatio updates the price progress gauge
func (m *Metrics) SetPriceRatio(ratio float64) {
	if m == nil {
		return
	}
	m.LastPriceRatio.Set(ratio)
}

// SetActivityGapMax updates the largest observed activity gap
func (m *Metrics) SetActivityGapMax(seconds int64) {
	if m == nil {
		return
	}
	m.ActivityGapMax.Set(float64(seconds))
}

// Handler returns the HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on port until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
