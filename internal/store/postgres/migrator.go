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

package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/darasa/darasa/internal/observability/logger"
)

//go:embed tenantmigrations/*.sql
var tenantMigrations embed.FS

// TenantMigrator applies the embedded tenant schema to individual tenant
// databases using goose. Each call opens a short-lived database/sql
// connection; migrations run once per tenant lifetime, so there is nothing
// to pool.
type TenantMigrator struct {
	cfg    Config
	logger *slog.Logger
}

// NewTenantMigrator creates a migrator for tenant databases.
func NewTenantMigrator(cfg Config, log *slog.Logger) *TenantMigrator {
	return &TenantMigrator{cfg: cfg, logger: log}
}

// HasPending reports whether the named tenant database is missing any of
// the embedded migrations.
func (m *TenantMigrator) HasPending(ctx context.Context, databaseName string) (bool, error) {
	db, provider, err := m.open(databaseName)
	if err != nil {
		return false, err
	}
	defer db.Close()

	pending, err := provider.HasPending(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check pending migrations for %s: %w", databaseName, err)
	}
	return pending, nil
}

// Run applies all pending migrations to the named tenant database and
// returns how many were applied. goose records each version in the
// database, so a partial failure resumes from the failed migration.
func (m *TenantMigrator) Run(ctx context.Context, databaseName string) (int, error) {
	db, provider, err := m.open(databaseName)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	results, err := provider.Up(ctx)
	if err != nil {
		return len(results), fmt.Errorf("failed to migrate %s: %w", databaseName, err)
	}

	for _, res := range results {
		m.logger.Debug("migration applied",
			logger.DatabaseName(databaseName),
			slog.Int64("version", res.Source.Version),
			slog.String("source", res.Source.Path),
		)
	}
	return len(results), nil
}

func (m *TenantMigrator) open(databaseName string) (*sql.DB, *goose.Provider, error) {
	db, err := sql.Open("pgx", m.cfg.stdlibDSN(databaseName))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", databaseName, err)
	}

	fsys, err := fs.Sub(tenantMigrations, "tenantmigrations")
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return db, provider, nil
}

// stdlibDSN is the keyword/value form accepted by database/sql via the pgx
// stdlib driver. Pool parameters are pgxpool-specific and must not appear
// here.
func (cfg Config) stdlibDSN(database string) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		database,
		cfg.SSLMode,
	)
}
