// Command treeregistry serves the tree registry HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"treeregistry/internal/adapters/httpapi"
	"treeregistry/internal/config"
	"treeregistry/internal/core"
	"treeregistry/internal/observability"
)

const shutdownTimeout = 10 * time.Second

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli(ctx, os.Args[1:], os.Stderr)
	stop()
	exitFunc(code)
}

func cli(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("treeregistry", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var configPath string
	fs.StringVar(&configPath, "config", os.Getenv(config.EnvConfigPath), "path to YAML configuration")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := config.LoadFrom(configPath, os.Getenv)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "treeregistry: %v\n", err)
		return 1
	}
	if err := run(ctx, cfg); err != nil {
		_, _ = fmt.Fprintf(stderr, "treeregistry: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg config.Config) (err error) {
	logger, err := observability.NewLogger(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	metrics := observability.NewPrometheusRecorder()

	store, err := core.OpenPersistentStore(ctx, cfg.Storage, core.NewDefaultRulesEngine())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() {
			if cerr := closer.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close store: %w", cerr)
			}
		}()
	}

	opts := []core.Option{core.WithLogger(logger), core.WithMetricsRecorder(metrics)}
	if cfg.Auth.PasswordCost > 0 {
		opts = append(opts, core.WithPasswordCost(cfg.Auth.PasswordCost))
	}
	svc := core.NewService(store, opts...)
	seeded, err := svc.EnsureDefaultStatuses(ctx)
	if err != nil {
		return fmt.Errorf("seed statuses: %w", err)
	}
	if len(seeded) > 0 {
		logger.Info("seeded tree statuses", "count", len(seeded))
	}

	router := httpapi.NewRouter(svc, httpapi.WithLogger(logger), httpapi.WithMetricsHandler(metrics.Handler()))
	return serve(ctx, cfg.HTTP.Addr, router, logger)
}

// serve runs handler on addr until ctx is done, then drains in-flight requests.
func serve(ctx context.Context, addr string, handler http.Handler, logger core.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
