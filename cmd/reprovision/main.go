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

// Command reprovision re-runs the provisioning workflow for one tenant.
// It is the operator's remedy for a tenant stuck in pending or
// setup_failed: the server process never retries on its own. Unlike the
// server, the run here is synchronous, so the exit code reflects the
// outcome.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/darasa/darasa/internal/audit"
	"github.com/darasa/darasa/internal/config"
	"github.com/darasa/darasa/internal/eventbus"
	"github.com/darasa/darasa/internal/observability/logger"
	"github.com/darasa/darasa/internal/provisioning"
	"github.com/darasa/darasa/internal/store/postgres"
	"github.com/darasa/darasa/internal/tenant"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	tenantID := flag.String("tenant", "", "tenant ID to reprovision")
	flag.Parse()

	if *tenantID == "" {
		fmt.Println("Usage: reprovision -tenant <tenant-id> [-config <path>]")
		os.Exit(2)
	}

	if err := run(*configPath, *tenantID); err != nil {
		fmt.Printf("Reprovisioning failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Reprovisioning successful.")
}

func run(configPath, tenantID string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.Init(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.App.Name,
	})

	ctx := context.Background()

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
		return err
	}
	defer db.Close()

	repo := postgres.NewTenantRepository(db)
	t, err := repo.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if t.DeletedAt != nil {
		return fmt.Errorf("tenant %s is deleted", tenantID)
	}
	if t.Status == tenant.StatusActive {
		return fmt.Errorf("tenant %s is already active", tenantID)
	}

	conns := postgres.NewConnManager(dbConfig, slog.Default())
	defer conns.CloseAll()

	bus := eventbus.New()
	admin := postgres.NewAdmin(db)
	chain := provisioning.NewChain(
		bus,
		admin,
		admin,
		postgres.NewTenantMigrator(dbConfig, slog.Default()),
		postgres.NewTenantSeeder(conns, slog.Default()),
		conns,
		nil,
	)
	if err := chain.Register(bus); err != nil {
		return err
	}

	tenantService := tenant.NewService(repo, bus, audit.NewSlogLogger())
	if err := tenantService.RegisterListeners(bus); err != nil {
		return err
	}

	ref := provisioning.TenantRef{ID: t.ID, Name: t.Name, DatabaseName: t.DatabaseName}

	// A previous run may have created the database before failing. Resume
	// from the migration stage in that case: migrations and seeds are
	// idempotent, database creation is not.
	exists, err := databaseExists(ctx, db, t.DatabaseName)
	if err != nil {
		return err
	}

	if exists {
		fmt.Printf("Database %s exists, resuming from migrations...\n", t.DatabaseName)
		if err := bus.Publish(ctx, provisioning.NewDatabaseCreated(ref)); err != nil {
			return err
		}
	} else {
		if err := bus.Publish(ctx, provisioning.NewTenantCreated(ref)); err != nil {
			return err
		}
	}

	final, err := repo.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if final.Status != tenant.StatusActive {
		return fmt.Errorf("tenant %s finished in status %s", tenantID, final.Status)
	}
	return nil
}

func databaseExists(ctx context.Context, db *postgres.DB, name string) (bool, error) {
	var exists bool
	err := db.Pool().QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check database existence: %w", err)
	}
	return exists, nil
}
