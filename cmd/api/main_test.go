package main

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/riskibarqy/arisan/internal/config"
	"github.com/riskibarqy/arisan/internal/platform/logging"
)

func TestShutdownStack_RunsInReverseAndJoinsErrors(t *testing.T) {
	var (
		stack shutdownStack
		order []string
	)
	errProfiler := errors.New("profiler stop failed")
	errApp := errors.New("db close failed")

	stack.push(func(context.Context) error { order = append(order, "tracing"); return nil })
	stack.push(func(context.Context) error { order = append(order, "profiler"); return errProfiler })
	stack.push(func(context.Context) error { order = append(order, "app"); return errApp })

	err := stack.run(t.Context())
	if !slices.Equal(order, []string{"app", "profiler", "tracing"}) {
		t.Fatalf("unexpected shutdown order: %v", order)
	}
	if !errors.Is(err, errProfiler) || !errors.Is(err, errApp) {
		t.Fatalf("expected both errors joined, got %v", err)
	}

	if err := stack.run(t.Context()); err != nil {
		t.Fatalf("expected second run to be a no-op, got %v", err)
	}
	if len(order) != 3 {
		t.Fatalf("steps ran twice: %v", order)
	}
}

func TestShutdownStack_PartialStartOnlyStopsStartedParts(t *testing.T) {
	var (
		stack   shutdownStack
		stopped []string
	)
	stack.push(func(context.Context) error { stopped = append(stopped, "tracing"); return nil })

	if err := stack.run(t.Context()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !slices.Equal(stopped, []string{"tracing"}) {
		t.Fatalf("unexpected stopped parts: %v", stopped)
	}
}

func TestRun_ReturnsWiringErrorAfterStoppingStartedParts(t *testing.T) {
	cfg := config.Config{
		AppEnv:      config.EnvDev,
		StoreDriver: config.StoreMemory,
		AuthMode:    config.AuthJWT,
		JWTSecret:   "test-secret",
	}

	err := run(cfg, logging.NewNop())
	if err == nil || !strings.Contains(err.Error(), "http server addr cannot be empty") {
		t.Fatalf("expected wiring error, got %v", err)
	}
}
