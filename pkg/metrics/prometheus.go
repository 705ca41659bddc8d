package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the solver collectors.
type Metrics struct {
	SolvesTotal     *prometheus.CounterVec
	SolveDuration   *prometheus.HistogramVec
	SolvesInFlight  prometheus.Gauge
	FlowValue       *prometheus.GaugeVec
	FlowCost        *prometheus.GaugeVec
	Iterations      *prometheus.HistogramVec
	GraphNodes      *prometheus.HistogramVec
	GraphEdges      *prometheus.HistogramVec
	InfeasibleTotal *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	VerifyFailures  *prometheus.CounterVec

	BuildInfo *prometheus.GaugeVec
}

var (
	defaultMetrics *Metrics
	defaultMu      sync.Mutex
)

// InitMetrics registers the collectors with the default registerer and makes
// them the package default.
func InitMetrics(namespace, subsystem string) *Metrics {
	m := NewMetrics(prometheus.DefaultRegisterer, namespace, subsystem)

	defaultMu.Lock()
	defaultMetrics = m
	defaultMu.Unlock()
	return m
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer, namespace, subsystem string) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		SolvesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solves_total",
				Help:      "Total number of solve runs",
			},
			[]string{"operation", "algorithm", "status"},
		),

		SolveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_duration_seconds",
				Help:      "Duration of solve runs",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation", "algorithm"},
		),

		SolvesInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solves_in_flight",
				Help:      "Solve runs currently executing",
			},
		),

		FlowValue: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "flow_value",
				Help:      "Flow value of the last completed solve",
			},
			[]string{"algorithm"},
		),

		FlowCost: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "flow_cost",
				Help:      "Total cost of the last completed solve",
			},
			[]string{"algorithm"},
		),

		Iterations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "iterations",
				Help:      "Augmentations, phases or relabels performed per solve",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
			[]string{"algorithm"},
		),

		GraphNodes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "graph_nodes",
				Help:      "Number of nodes in solved graphs",
				Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000, 100000},
			},
			[]string{"operation"},
		),

		GraphEdges: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "graph_edges",
				Help:      "Number of edges in solved graphs",
				Buckets:   []float64{20, 100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
			},
			[]string{"operation"},
		),

		InfeasibleTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "infeasible_total",
				Help:      "Solves whose exact target or circulation could not be met",
			},
			[]string{"operation"},
		),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_lookups_total",
				Help:      "Result cache lookups by outcome",
			},
			[]string{"result"},
		),

		VerifyFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "verify_failures_total",
				Help:      "Solutions rejected by post-solve verification",
			},
			[]string{"algorithm"},
		),

		BuildInfo: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "build_info",
				Help:      "Build information",
			},
			[]string{"version", "environment"},
		),
	}

	reg.MustRegister(NewRuntimeCollector(namespace, subsystem))
	return m
}

// Get returns the package default, initialising it on first use.
func Get() *Metrics {
	defaultMu.Lock()
	m := defaultMetrics
	defaultMu.Unlock()
	if m == nil {
		return InitMetrics("flowengine", "")
	}
	return m
}

// RecordSolve records one finished solve run.
func (m *Metrics) RecordSolve(operation, algorithm, status string, duration time.Duration, flow uint64, cost int64, iterations int) {
	m.SolvesTotal.WithLabelValues(operation, algorithm, status).Inc()
	m.SolveDuration.WithLabelValues(operation, algorithm).Observe(duration.Seconds())
	m.FlowValue.WithLabelValues(algorithm).Set(float64(flow))
	m.FlowCost.WithLabelValues(algorithm).Set(float64(cost))
	m.Iterations.WithLabelValues(algorithm).Observe(float64(iterations))
	if status == "infeasible" {
		m.InfeasibleTotal.WithLabelValues(operation).Inc()
	}
}

// RecordError records a solve run that ended in an error.
func (m *Metrics) RecordError(operation, algorithm, code string) {
	m.SolvesTotal.WithLabelValues(operation, algorithm, "error_"+code).Inc()
}

// RecordGraphSize records the size of a solved graph.
func (m *Metrics) RecordGraphSize(operation string, nodes, edges int) {
	m.GraphNodes.WithLabelValues(operation).Observe(float64(nodes))
	m.GraphEdges.WithLabelValues(operation).Observe(float64(edges))
}

// RecordCacheLookup counts a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordVerifyFailure counts a solution that failed verification.
func (m *Metrics) RecordVerifyFailure(algorithm string) {
	m.VerifyFailures.WithLabelValues(algorithm).Inc()
}

// SetBuildInfo publishes the running version.
func (m *Metrics) SetBuildInfo(version, environment string) {
	m.BuildInfo.WithLabelValues(version, environment).Set(1)
}

// Handler returns the /metrics handler for the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer serves the default gatherer on port until ctx is done.
func StartMetricsServer(ctx context.Context, port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK")) //nolint:errcheck // health probe
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx) //nolint:errcheck // best effort on exit
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
