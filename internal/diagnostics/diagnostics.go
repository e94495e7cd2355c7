// Package diagnostics runs the side HTTP listener of the server: Prometheus
// metrics, a health check and optionally the pprof endpoints, plus file based
// CPU profiling for a whole run.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	netpprof "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/pprof"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codefionn/toolrelay/internal/consts"
	"github.com/codefionn/toolrelay/internal/logger"
)

// Config holds the diagnostics configuration
type Config struct {
	// Addr is the HTTP listen address (e.g. ":9090"). Empty disables the listener.
	Addr string
	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
	// Pprof mounts /debug/pprof on the listener.
	Pprof bool
	// CPUProfile is a file the CPU profile of the whole run is written to.
	CPUProfile string
}

// Handler manages the diagnostics listener and profiling
type Handler struct {
	config   Config
	log      *logger.Logger
	server   *http.Server
	listener net.Listener
	cpuFile  *os.File
	done     chan struct{}

	mu       sync.Mutex
	stopping bool
}

// NewHandler creates a new diagnostics handler with the given configuration
func NewHandler(config Config, log *logger.Logger) *Handler {
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	if log == nil {
		log = logger.Global()
	}
	return &Handler{config: config, log: log}
}

// Mux builds the routes served by the listener.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(h.config.Gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if h.config.Pprof {
		mux.HandleFunc("/debug/pprof/", netpprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", netpprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", netpprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", netpprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", netpprof.Trace)
	}
	return mux
}

// Start opens the CPU profile and the listener, whichever are configured.
func (h *Handler) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.config.CPUProfile != "" {
		if err := os.MkdirAll(filepath.Dir(h.config.CPUProfile), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for CPU profile: %w", err)
		}
		f, err := os.Create(h.config.CPUProfile)
		if err != nil {
			return fmt.Errorf("failed to create CPU profile file: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to start CPU profiling: %w", err)
		}
		h.cpuFile = f
	}

	if h.config.Addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", h.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind diagnostics listener: %w", err)
	}
	h.listener = ln
	h.server = &http.Server{
		Handler:           h.Mux(),
		ReadHeaderTimeout: consts.Timeout30Seconds,
	}
	h.done = make(chan struct{})

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.Error("Diagnostics server error: %v", err)
		}
	}(h.server, h.done)

	h.log.Info("Diagnostics listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound listener address, or "" when not listening.
func (h *Handler) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// Stop shuts the listener down and finishes the CPU profile.
func (h *Handler) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopping {
		return nil
	}
	h.stopping = true

	var errs []error

	if h.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := h.cpuFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close CPU profile: %w", err))
		}
		h.cpuFile = nil
	}

	if h.server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, consts.ShutdownGracePeriod)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown diagnostics server: %w", err))
		}
		<-h.done
		h.server = nil
		h.listener = nil
	}

	return errors.Join(errs...)
}
