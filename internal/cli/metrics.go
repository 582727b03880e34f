package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records render outcomes of a watch session.
type Metrics struct {
	registry *prometheus.Registry

	renders        *prometheus.CounterVec
	renderDuration prometheus.Histogram
	outputBytes    prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry, so several
// sessions (and tests) do not collide on the global one.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		renders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tmpl_renders_total",
				Help: "Total number of renders, by result",
			},
			[]string{"result"},
		),

		renderDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tmpl_render_duration_seconds",
				Help:    "Time spent loading, parsing and executing templates",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
		),

		outputBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tmpl_output_bytes",
				Help: "Size of the last successful render",
			},
		),
	}
}

// observe is a no-op on nil metrics.
func (m *Metrics) observe(d time.Duration, size int, err error) {
	if m == nil {
		return
	}
	m.renderDuration.Observe(d.Seconds())
	if err != nil {
		m.renders.WithLabelValues("error").Inc()
		return
	}
	m.renders.WithLabelValues("success").Inc()
	m.outputBytes.Set(float64(size))
}

// Handler returns an HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// Serve starts an HTTP server for /metrics on addr. The listener is bound
// before returning so address errors surface immediately.
func (m *Metrics) Serve(addr string, logger *slog.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("Listening on metrics address '%s': %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()
	logger.Info("Serving metrics", "addr", ln.Addr().String())
	return srv, nil
}
