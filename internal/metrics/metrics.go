package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing, so
// components accept it as optional.
type Metrics struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	extracted     *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	enqueued      *prometheus.CounterVec
	published     *prometheus.CounterVec
	consumed      *prometheus.CounterVec
	triples       prometheus.Counter
	nextRun       *prometheus.GaugeVec
	outboxPending prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mec",
		Name:      "adapter_runs_total",
		Help:      "Adapter runs by outcome",
	}, []string{"adapter", "outcome"})
	m.runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mec",
		Name:      "adapter_run_duration_seconds",
		Help:      "Wall time of one adapter run",
		Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
	}, []string{"adapter"})
	m.extracted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mec",
		Name:      "events_extracted_total",
		Help:      "Events produced by adapters",
	}, []string{"adapter"})
	m.skipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mec",
		Name:      "extraction_errors_total",
		Help:      "Records skipped because extraction failed",
	}, []string{"adapter"})
	m.enqueued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mec",
		Name:      "outbox_enqueued_total",
		Help:      "Envelopes written to the outbox",
	}, []string{"adapter"})
	m.published = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mec",
		Name:      "outbox_published_total",
		Help:      "Relay publish attempts by result",
	}, []string{"adapter", "result"})
	m.consumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mec",
		Name:      "handler_messages_total",
		Help:      "Messages handled by the consumer by disposition",
	}, []string{"adapter", "disposition"})
	m.triples = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mec",
		Name:      "handler_triples_total",
		Help:      "Triples written to graph sinks",
	})
	m.nextRun = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mec",
		Name:      "adapter_next_run_timestamp_seconds",
		Help:      "Unix time an adapter becomes eligible again",
	}, []string{"adapter"})
	m.outboxPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mec",
		Name:      "outbox_pending",
		Help:      "Envelopes waiting for the relay",
	})

	m.registry.MustRegister(
		m.runs, m.runDuration, m.extracted, m.skipped,
		m.enqueued, m.published, m.consumed, m.triples,
		m.nextRun, m.outboxPending,
	)
	return m
}

// Gatherer exposes the registry for tests and the HTTP handler.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// RunFinished records one completed adapter run.
func (m *Metrics) RunFinished(adapter, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(adapter, outcome).Inc()
	m.runDuration.WithLabelValues(adapter).Observe(elapsed.Seconds())
}

// Extracted counts one produced event.
func (m *Metrics) Extracted(adapter string) {
	if m == nil {
		return
	}
	m.extracted.WithLabelValues(adapter).Inc()
}

// Skipped counts one extraction error.
func (m *Metrics) Skipped(adapter string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(adapter).Inc()
}

// Enqueued counts one envelope written to the outbox.
func (m *Metrics) Enqueued(adapter string) {
	if m == nil {
		return
	}
	m.enqueued.WithLabelValues(adapter).Inc()
}

// Published counts one relay publish attempt.
func (m *Metrics) Published(adapter, result string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(adapter, result).Inc()
}

// Consumed counts one handled message.
func (m *Metrics) Consumed(adapter, disposition string) {
	if m == nil {
		return
	}
	m.consumed.WithLabelValues(adapter, disposition).Inc()
}

// Triples adds serialized triples.
func (m *Metrics) Triples(n int) {
	if m == nil {
		return
	}
	m.triples.Add(float64(n))
}

// NextRun publishes an adapter's next eligible time.
func (m *Metrics) NextRun(adapter string, at time.Time) {
	if m == nil {
		return
	}
	m.nextRun.WithLabelValues(adapter).Set(float64(at.Unix()))
}

// OutboxPending sets the pending outbox depth.
func (m *Metrics) OutboxPending(n int) {
	if m == nil {
		return
	}
	m.outboxPending.Set(float64(n))
}

// Server serves /metrics and /healthz.
type Server struct {
	server *http.Server
}

// NewServer builds the endpoint for m on addr.
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Server{server: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}}
}

// Handler returns the mux, for tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Serve listens until Shutdown. A closed server is not an error.
func (s *Server) Serve(ln net.Listener) error {
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start binds the configured address and serves in the background.
func (s *Server) Start() (net.Addr, <-chan error, error) {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return nil, nil, err
	}
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ln) }()
	return ln.Addr(), errCh, nil
}

func (s *Server) Shutdown(ctx context.Context) error { return s.server.Shutdown(ctx) }
