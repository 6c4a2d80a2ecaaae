package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/capstone-search/internal/config"
	"github.com/dshills/capstone-search/internal/mcp"
	"github.com/dshills/capstone-search/internal/storage"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: `Runs the MCP server on stdin/stdout. Logs go to stderr. When
--metrics-addr is set, Prometheus metrics are served on /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("metrics-addr", "", "listen address for /metrics (disabled when empty)")
	if err := v.BindPFlag(config.KeyMetricsAddr, serveCmd.Flags().Lookup("metrics-addr")); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	logger := a.logger
	logger.Info("capstone MCP server starting", "version", version, "build_mode", storage.BuildMode)

	sum, err := a.summarizer()
	if err != nil {
		logger.Warn("summaries disabled", "error", err)
	}

	deps := mcp.Dependencies{
		Storage:       a.store,
		Retriever:     a.engine,
		Cards:         a.cards,
		Ingester:      a.indexer,
		Recorder:      a.metrics,
		Logger:        logger,
		DefaultK:      a.cfg.DefaultK,
		FetchLimit:    a.cfg.FetchLimit,
		IngestWorkers: a.cfg.IngestWorkers,
	}
	if sum != nil {
		deps.Summarizer = sum
	}

	server, err := mcp.NewServer(deps)
	if err != nil {
		return err
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var metricsServer *http.Server
	if a.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics.Handler())
		metricsServer = &http.Server{
			Addr:              a.cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("metrics listening", "addr", a.cfg.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	// Wait for shutdown signal or error
	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())
		cancel()
	case serveErr = <-errChan:
	}

	if metricsServer != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", "error", err)
		}
	}

	logger.Info("server stopped")
	return serveErr
}
