package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradegate/internal/host"
	"tradegate/internal/safecall"
)

const namespace = "tradegate"

// Metrics 汇总调用与跨组件调用指标。
type Metrics struct {
	registry    *prometheus.Registry
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	outcomes    *prometheus.CounterVec
}

var (
	_ host.Observer     = (*Metrics)(nil)
	_ safecall.Recorder = (*Metrics)(nil)
)

// New 在独立注册表上创建指标。
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Top-level invocations by operation and result.",
		}, []string{"operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "Top-level invocation latency including commit or rollback.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"operation"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safe_call_outcomes_total",
			Help:      "Isolated cross-component calls by entry point and outcome code.",
		}, []string{"entry", "code"}),
	}

	for _, c := range []prometheus.Collector{
		m.invocations,
		m.duration,
		m.outcomes,
		collectors.NewGoCollector(),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveInvocation 实现 host.Observer。
func (m *Metrics) ObserveInvocation(_ context.Context, receipt host.Receipt) {
	result := "committed"
	if !receipt.Committed {
		result = "aborted"
	}
	m.invocations.WithLabelValues(receipt.Operation, result).Inc()
	m.duration.WithLabelValues(receipt.Operation).Observe(receipt.Duration.Seconds())
}

// ObserveOutcome 实现 safecall.Recorder。
func (m *Metrics) ObserveOutcome(_ host.ComponentRef, entryPoint string, code safecall.Code) {
	m.outcomes.WithLabelValues(entryPoint, strconv.FormatUint(uint64(code), 10)).Inc()
}

// Gatherer 返回指标注册表。
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler 返回 /metrics 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
