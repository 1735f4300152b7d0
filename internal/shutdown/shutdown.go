// Copyright 2026 The Darasa Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package shutdown coordinates graceful process teardown.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/darasa/darasa/internal/observability/logger"
)

// ReadinessGate is flipped off before teardown so probes drain traffic.
type ReadinessGate interface {
	MarkShuttingDown()
}

// Handler is one named teardown step.
type Handler struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Coordinator waits for a termination signal and then runs every registered
// handler. Handlers run concurrently and every one of them runs to
// completion regardless of the others' failures; errors are logged, never
// fatal. One crashed teardown step must not abandon the rest.
type Coordinator struct {
	gate    ReadinessGate
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	handlers []Handler
}

// NewCoordinator creates a coordinator. gate may be nil. timeout bounds the
// whole teardown once a signal arrives.
func NewCoordinator(gate ReadinessGate, timeout time.Duration, log *slog.Logger) *Coordinator {
	return &Coordinator{
		gate:    gate,
		timeout: timeout,
		logger:  log,
	}
}

// Register adds a teardown handler. Handlers registered after Wait has
// fired are never run.
func (c *Coordinator) Register(name string, fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, Handler{Name: name, Fn: fn})
}

// Wait blocks until SIGINT, SIGTERM, or SIGUSR2 arrives (or ctx is
// cancelled), then runs the teardown and returns.
func (c *Coordinator) Wait(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR2)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		c.logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case <-ctx.Done():
		c.logger.Info("shutdown requested", logger.Error(ctx.Err()))
	}

	c.Run()
}

// Run executes the teardown immediately. Exposed separately so tests and
// fatal-error paths can trigger it without a signal.
func (c *Coordinator) Run() {
	if c.gate != nil {
		c.gate.MarkShuttingDown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	c.mu.Lock()
	handlers := make([]Handler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	var wg sync.WaitGroup
	for _, h := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("shutdown handler panicked",
						slog.String("handler", h.Name),
						slog.Any("panic", r),
					)
				}
			}()

			if err := h.Fn(ctx); err != nil {
				c.logger.Error("shutdown handler failed",
					slog.String("handler", h.Name),
					logger.Error(err),
				)
				return
			}
			c.logger.Info("shutdown handler completed", slog.String("handler", h.Name))
		}(h)
	}
	wg.Wait()

	c.logger.Info("shutdown complete")
}
