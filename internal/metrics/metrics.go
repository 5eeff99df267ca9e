package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "motioncapture"

// Collector holds the Prometheus metrics of the capture loop.
type Collector struct {
	registry *prometheus.Registry

	iterations        prometheus.Counter
	inserted          prometheus.Counter
	pruned            prometheus.Counter
	motion            prometheus.Counter
	failures          *prometheus.CounterVec
	iterationDuration prometheus.Histogram
	imageBytes        prometheus.Gauge
}

// NewCollector registers the capture metrics on registry. A nil registry
// gets a fresh one.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iterations_total",
			Help:      "Completed capture loop iterations.",
		}),
		inserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_inserted_total",
			Help:      "Capture records inserted into the store.",
		}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_pruned_total",
			Help:      "Capture records deleted by the retention window.",
		}),
		motion: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "motion_detected_total",
			Help:      "Iterations that sampled an active motion signal.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Fatal loop failures by step.",
		}, []string{"step"}),
		iterationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "iteration_duration_seconds",
			Help:      "Time spent capturing and storing one frame, sleep excluded.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		imageBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_image_bytes",
			Help:      "Size of the most recently stored image.",
		}),
	}

	registry.MustRegister(
		c.iterations,
		c.inserted,
		c.pruned,
		c.motion,
		c.failures,
		c.iterationDuration,
		c.imageBytes,
	)
	return c
}

// RecordIteration records one successful iteration.
func (c *Collector) RecordIteration(pruned int64, imageSize int, motion bool, duration time.Duration) {
	c.iterations.Inc()
	c.inserted.Inc()
	c.pruned.Add(float64(pruned))
	c.imageBytes.Set(float64(imageSize))
	c.iterationDuration.Observe(duration.Seconds())
	if motion {
		c.motion.Inc()
	}
}

// RecordFailure counts a fatal failure of step.
func (c *Collector) RecordFailure(step string) {
	c.failures.WithLabelValues(step).Inc()
}

// Handler returns the HTTP handler exposing the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// Server serves the metrics endpoint on its own listener.
type Server struct {
	srv  *http.Server
	addr string
}

// NewServer creates a metrics server for addr with the handler mounted at /metrics.
func NewServer(addr string, c *Collector) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start binds the listener and serves in the background. Serve errors other
// than a regular shutdown are passed to onError.
func (s *Server) Start(onError func(error)) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}
	s.addr = ln.Addr().String()

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			onError(err)
		}
	}()
	return nil
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() string {
	return s.addr
}

// Close shuts the server down.
func (s *Server) Close(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
