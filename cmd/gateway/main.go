// Command gateway runs the API gateway in front of the ERP's backend
// services, reconciling the frontend's camelCase contract with the backends'
// snake_case one.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/atendeflow/gateway/internal/audit"
	"github.com/atendeflow/gateway/internal/config"
	"github.com/atendeflow/gateway/internal/gateway"
	"github.com/atendeflow/gateway/internal/logging"
	"github.com/atendeflow/gateway/internal/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Auth.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	logger := logging.New("gateway", cfg.Logging.Level, cfg.Logging.Format)
	defer logger.Sync()

	var sinks []audit.Sink
	fileSink, err := audit.NewFileSink(cfg.Audit.File)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	if fileSink != nil {
		defer fileSink.Close()
		sinks = append(sinks, fileSink)
	}
	pgSink, err := audit.OpenPostgresSink(cfg.Audit.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open audit database: %w", err)
	}
	if pgSink != nil {
		defer pgSink.Close()
		sinks = append(sinks, pgSink)
	}

	auditLog := audit.NewLog(cfg.Audit.MaxEntries, sinks...)

	srv, err := gateway.New(cfg, logger, metrics.New("gateway"), auditLog)
	if err != nil {
		return fmt.Errorf("build gateway: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return srv.Run(ctx)
}
