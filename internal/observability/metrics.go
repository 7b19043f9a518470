package observability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/yungbote/mockgrader/internal/platform/envutil"
	"github.com/yungbote/mockgrader/internal/platform/logger"
)

// Metrics holds the per-run counters. Batch jobs exit before any scrape, so
// everything is pushed to a Pushgateway when the run ends.
type Metrics struct {
	registry *prometheus.Registry

	rows             *prometheus.CounterVec
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	runDuration      *prometheus.GaugeVec
	lastSuccess      *prometheus.GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Enabled reports METRICS_ENABLED, or true when PUSHGATEWAY_URL is set.
func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", envutil.String("PUSHGATEWAY_URL", "") != "")
}

func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics initialized", "pushgateway", envutil.String("PUSHGATEWAY_URL", ""))
		}
	})
	return instance
}

// NewMetrics builds an unshared registry. Init is the usual entry point.
// The Pushgateway owns the "job" label, so series carry "job_type" instead.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mockgrader_rows_total",
			Help: "Rows processed by a grading job, by outcome.",
		}, []string{"job_type", "outcome"}),
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mockgrader_provider_requests_total",
			Help: "Calls to external providers, by status.",
		}, []string{"provider", "op", "status"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mockgrader_provider_request_seconds",
			Help:    "Latency of external provider calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 180},
		}, []string{"provider", "op"}),
		runDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mockgrader_run_duration_seconds",
			Help: "Wall time of the last run.",
		}, []string{"job_type"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mockgrader_last_success_timestamp_seconds",
			Help: "Unix time of the last run that finished without a fatal error.",
		}, []string{"job_type"}),
	}
	m.registry.MustRegister(m.rows, m.providerRequests, m.providerLatency, m.runDuration, m.lastSuccess)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) AddRows(job, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rows.WithLabelValues(label(job), label(outcome)).Add(float64(n))
}

func (m *Metrics) ObserveProviderCall(provider, op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(label(provider), label(op), label(status)).Inc()
	m.providerLatency.WithLabelValues(label(provider), label(op)).Observe(dur.Seconds())
}

func (m *Metrics) ObserveRun(job string, dur time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(label(job)).Set(dur.Seconds())
	if ok {
		m.lastSuccess.WithLabelValues(label(job)).SetToCurrentTime()
	}
}

// Push sends the registry to the Pushgateway under job, grouped by run id.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job, runID string) error {
	if m == nil || strings.TrimSpace(gatewayURL) == "" {
		return nil
	}
	p := push.New(gatewayURL, "mockgrader_"+label(job)).Gatherer(m.registry)
	if runID != "" {
		p = p.Grouping("run_id", runID)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// ProviderStatus buckets an error for the status label.
func ProviderStatus(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}

func label(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
