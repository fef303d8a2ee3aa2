package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/riskibarqy/arisan/internal/app"
	"github.com/riskibarqy/arisan/internal/config"
	"github.com/riskibarqy/arisan/internal/observability"
	"github.com/riskibarqy/arisan/internal/platform/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	envFileErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.AppEnv, cfg.LogLevel).With("service", cfg.ServiceName, "version", cfg.ServiceVersion)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	if envFileErr != nil && !errors.Is(envFileErr, os.ErrNotExist) {
		logger.Warn("load .env failed", "error", envFileErr)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("api stopped with error", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *logging.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cleanup shutdownStack
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = errors.Join(err, cleanup.run(shutdownCtx))
		logger.Info("http server stopped")
	}()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		return err
	}
	cleanup.push(shutdownTracing)

	stopProfiler, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		return err
	}
	cleanup.push(func(context.Context) error { return stopProfiler() })

	pprofSrv := observability.StartPprofServer(cfg, logger)
	cleanup.push(func(ctx context.Context) error {
		return observability.StopPprofServer(ctx, pprofSrv, logger)
	})

	srv, closeApp, err := app.NewHTTPServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	cleanup.push(func(context.Context) error { return closeApp() })

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	cleanup.push(srv.Shutdown)

	select {
	case <-ctx.Done():
		return nil
	case err := <-serveErr:
		return err
	}
}

// shutdownStack runs registered steps in reverse start order and keeps going
// past failures.
type shutdownStack struct {
	steps []func(context.Context) error
}

func (s *shutdownStack) push(step func(context.Context) error) {
	s.steps = append(s.steps, step)
}

func (s *shutdownStack) run(ctx context.Context) error {
	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		errs = append(errs, s.steps[i](ctx))
	}
	s.steps = nil
	return errors.Join(errs...)
}
