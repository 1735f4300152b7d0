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

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/darasa/darasa/internal/audit"
	"github.com/darasa/darasa/internal/config"
	"github.com/darasa/darasa/internal/eventbus"
	"github.com/darasa/darasa/internal/health"
	"github.com/darasa/darasa/internal/observability/logger"
	"github.com/darasa/darasa/internal/observability/metrics"
	"github.com/darasa/darasa/internal/observability/tracing"
	"github.com/darasa/darasa/internal/provisioning"
	"github.com/darasa/darasa/internal/shutdown"
	"github.com/darasa/darasa/internal/store/postgres"
	"github.com/darasa/darasa/internal/tenant"
	transportHTTP "github.com/darasa/darasa/internal/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.App.Name,
	})
	slog.Info("starting darasa platform server")

	ctx := context.Background()

	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		SamplingRate:   cfg.Observability.SamplingRate,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}

	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.App.Name)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	}

	dbConfig := postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}

	db, err := postgres.New(ctx, dbConfig)
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to master database")

	// Per-tenant pools use a smaller cap than the master pool.
	tenantDBConfig := dbConfig
	if cfg.Database.TenantPoolSize > 0 {
		tenantDBConfig.MaxOpenConns = cfg.Database.TenantPoolSize
	}
	conns := postgres.NewConnManager(tenantDBConfig, slog.Default())

	// Event bus and the provisioning chain.
	bus := eventbus.New()

	var provMetrics *provisioning.Metrics
	if meter != nil {
		provMetrics, err = provisioning.NewMetrics(meter)
		if err != nil {
			slog.Error("failed to create provisioning metrics", logger.Error(err))
		}
	}

	admin := postgres.NewAdmin(db)
	chain := provisioning.NewChain(
		bus,
		admin,
		admin,
		postgres.NewTenantMigrator(tenantDBConfig, slog.Default()),
		postgres.NewTenantSeeder(conns, slog.Default()),
		conns,
		provMetrics,
	)
	if err := chain.Register(bus); err != nil {
		slog.Error("failed to register provisioning listeners", logger.Error(err))
		os.Exit(1)
	}

	// Tenant service listens for the chain's terminal events.
	auditLogger := audit.Fanout{audit.NewSlogLogger(), postgres.NewAuditLogger(db)}
	tenantRepo := postgres.NewTenantRepository(db)
	tenantService := tenant.NewService(tenantRepo, bus, auditLogger)
	if err := tenantService.RegisterListeners(bus); err != nil {
		slog.Error("failed to register tenant listeners", logger.Error(err))
		os.Exit(1)
	}

	healthService := health.NewService(db.Pool(), conns, chain.Tracker)

	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	handler := transportHTTP.NewHandler(
		tenantService,
		chain.Tracker,
		healthService,
		transportHTTP.AuthConfig{
			TokenSecret:   cfg.Auth.AdminTokenSecret,
			TokenLifetime: cfg.Auth.TokenLifetime,
		},
	)
	router := transportHTTP.NewRouter(handler, rateLimiter)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	coordinator := shutdown.NewCoordinator(healthService, 30*time.Second, slog.Default())
	coordinator.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown(ctx)
	})
	coordinator.Register("tenant_pools", func(context.Context) error {
		conns.CloseAll()
		return nil
	})
	coordinator.Register("rate_limiter", func(context.Context) error {
		rateLimiter.Stop()
		return nil
	})
	if tracer != nil {
		coordinator.Register("tracer", func(ctx context.Context) error {
			return tracer.Shutdown(ctx)
		})
	}

	go func() {
		slog.Info("http server listening",
			logger.Component("server"),
			logger.String("addr", cfg.Server.Addr()),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	coordinator.Wait(ctx)
}
