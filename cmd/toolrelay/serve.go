package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/codefionn/toolrelay/internal/diagnostics"
	"github.com/codefionn/toolrelay/internal/logger"
	"github.com/codefionn/toolrelay/internal/mcp"
	"github.com/codefionn/toolrelay/internal/observability"
	"github.com/codefionn/toolrelay/internal/redact"
	"github.com/codefionn/toolrelay/internal/tools"
)

type serveOptions struct {
	configPath  string
	metricsAddr string
	pprof       bool
	cpuProfile  string
}

func buildServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tool catalogue over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to a JSON or YAML config file (default: $TOOLRELAY_CONFIG or the user config dir)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address (overrides metrics_addr)")
	cmd.Flags().BoolVar(&opts.pprof, "pprof", false, "Mount /debug/pprof on the metrics listener")
	cmd.Flags().StringVar(&opts.cpuProfile, "cpuprofile", "", "Write a CPU profile of the run to this file")
	return cmd
}

func runServe(ctx context.Context, opts serveOptions) (err error) {
	cfg, err := loadConfig(configPath(opts.configPath), os.LookupEnv)
	if err != nil {
		return err
	}
	if opts.metricsAddr != "" {
		cfg.MetricsAddr = opts.metricsAddr
	}
	if err := cfg.CheckCredentials(); err != nil {
		return err
	}

	// stdout carries the MCP stream, so logs go to stderr or a file.
	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		if err != nil {
			logger.Error("Fatal error: %v", err)
		}
		if closeErr := logger.Global().Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", closeErr)
		}
	}()
	log := logger.Global().WithPrefix("serve")

	registry, err := tools.NewDefaultRegistry()
	if err != nil {
		return fmt.Errorf("failed to build tool registry: %w", err)
	}
	provider, err := newProvider(cfg)
	if err != nil {
		return fmt.Errorf("failed to create provider client: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	sink := observability.MultiSink{
		observability.NewLogSink(logger.Global().WithPrefix("dispatch")),
		observability.NewMetricsSink(reg),
	}

	tracer, shutdownTracing, err := observability.SetupTracing(ctx, traceConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := shutdownTracing(shutdownCtx); shutdownErr != nil {
			log.Warn("Failed to flush traces: %v", shutdownErr)
		}
	}()
	if cfg.Tracing.Endpoint != "" {
		log.Info("Exporting traces to %s", cfg.Tracing.Endpoint)
	}

	d, err := newDispatcher(cfg, registry, provider, sink, tracer, logger.Global().WithPrefix("dispatch"))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	diag := diagnostics.NewHandler(diagnostics.Config{
		Addr:       cfg.MetricsAddr,
		Gatherer:   reg,
		Pprof:      opts.pprof,
		CPUProfile: opts.cpuProfile,
	}, log)
	if err := diag.Start(); err != nil {
		return err
	}
	defer func() {
		if stopErr := diag.Stop(context.Background()); stopErr != nil {
			log.Warn("Failed to stop diagnostics: %v", stopErr)
		}
	}()

	redactor := redact.New()
	redactor.AddLiteral(cfg.APIKey)
	server, err := mcp.NewServer(d, registry, logger.Global().WithPrefix("mcp"), version, mcp.WithRedactor(redactor))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Serving %d tools over stdio (model %s, reasoning %s)", registry.Len(), cfg.DefaultModel, cfg.ReasoningMode)
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	log.Info("Shutting down")
	return nil
}
