// Package metrics exposes Prometheus counters for the monitoring units and
// a small HTTP server for /metrics and /healthz.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"SetupSentinel/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Cycle results.
const (
	ResultOK     = "ok"
	ResultNoData = "no_data"
	ResultError  = "error"
)

// Metrics holds the Prometheus collectors of one run.
type Metrics struct {
	Registry *prometheus.Registry

	Cycles         *prometheus.CounterVec // labels: symbol, result
	GatePasses     *prometheus.CounterVec // labels: symbol, gate
	Confirmations  *prometheus.CounterVec // labels: symbol
	NotifyFailures *prometheus.CounterVec // labels: symbol
	FetchDuration  *prometheus.HistogramVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_cycles_total",
			Help: "Evaluation cycles by outcome",
		}, []string{"symbol", "result"}),
		GatePasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_gate_passes_total",
			Help: "Cycles in which a checklist gate held",
		}, []string{"symbol", "gate"}),
		Confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_confirmations_total",
			Help: "Cycles in which the full checklist was confirmed",
		}, []string{"symbol"}),
		NotifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_notify_failures_total",
			Help: "Notifications that could not be delivered",
		}, []string{"symbol"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sentinel_fetch_duration_seconds",
			Help:    "Bar fetch latency by timeframe",
			Buckets: prometheus.DefBuckets,
		}, []string{"timeframe"}),
	}
	m.Registry.MustRegister(m.Cycles, m.GatePasses, m.Confirmations, m.NotifyFailures, m.FetchDuration)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Health tracks when each instrument last completed a cycle.
type Health struct {
	mu        sync.RWMutex
	startedAt time.Time
	stale     time.Duration
	lastCycle map[string]time.Time
}

// NewHealth creates a tracker that reports a symbol stale after the given age.
func NewHealth(stale time.Duration) *Health {
	return &Health{startedAt: time.Now(), stale: stale, lastCycle: make(map[string]time.Time)}
}

// Observe records a completed cycle for symbol.
func (h *Health) Observe(symbol string, at time.Time) {
	h.mu.Lock()
	h.lastCycle[symbol] = at
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := time.Now()
	status := "healthy"
	code := http.StatusOK
	symbols := make([]string, 0, len(h.lastCycle))
	for s := range h.lastCycle {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	type unit struct {
		Symbol    string `json:"symbol"`
		LastCycle string `json:"last_cycle"`
		Stale     bool   `json:"stale"`
	}
	units := make([]unit, 0, len(symbols))
	for _, s := range symbols {
		at := h.lastCycle[s]
		stale := h.stale > 0 && now.Sub(at) > h.stale
		if stale {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		units = append(units, unit{Symbol: s, LastCycle: at.UTC().Format(time.RFC3339), Stale: stale})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
		Units  []unit `json:"units"`
	}{status, now.Sub(h.startedAt).Round(time.Second).String(), units})
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, m *Metrics, health *Health) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/healthz", health)
	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		logger.Info("metrics server listening", zap.String("addr", s.addr))
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
