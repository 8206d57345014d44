package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Health tracks liveness facts reported by /healthz.
type Health struct {
	mu        sync.RWMutex
	started   time.Time
	connected bool
	lastRun   map[string]time.Time
}

func NewHealth() *Health {
	return &Health{started: time.Now().UTC(), lastRun: map[string]time.Time{}}
}

func (h *Health) SetConnected(connected bool) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected = connected
}

func (h *Health) MarkRun(pipeline string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastRun[pipeline] = time.Now().UTC()
}

type HealthReport struct {
	Status    string               `json:"status"`
	Connected bool                 `json:"connected"`
	Uptime    string               `json:"uptime"`
	LastRun   map[string]time.Time `json:"last_run,omitempty"`
}

func (h *Health) Report() HealthReport {
	if h == nil {
		return HealthReport{Status: "ok"}
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	lastRun := make(map[string]time.Time, len(h.lastRun))
	for k, v := range h.lastRun {
		lastRun[k] = v
	}
	return HealthReport{
		Status:    "ok",
		Connected: h.connected,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		LastRun:   lastRun,
	}
}

type ServerOptions struct {
	Addr     string
	Health   *Health
	Gatherer prometheus.Gatherer
}

// Handler serves /metrics, /healthz and a plain keep-alive response on /.
func Handler(opts ServerOptions) http.Handler {
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", healthHandler(opts.Health))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("manifest-watch is running\n"))
	})
	return mux
}

// Serve runs the observability server until ctx is cancelled.
func Serve(ctx context.Context, opts ServerOptions, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Addr == "" {
		return nil
	}
	server := &http.Server{
		Addr:              opts.Addr,
		Handler:           Handler(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("observability server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("observability server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("observability server shutdown error", "error", err)
			return err
		}
		logger.Info("observability server stopped")
		return nil
	}
}

func healthHandler(health *Health) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(health.Report())
	})
}
