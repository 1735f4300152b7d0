package provisioning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/darasa/darasa/internal/eventbus"
	"github.com/darasa/darasa/internal/observability/logger"
)

// Migrator applies the tenant schema to one tenant database.
type Migrator interface {
	// HasPending reports whether the database is behind the embedded
	// migration set.
	HasPending(ctx context.Context, databaseName string) (bool, error)
	// Run applies outstanding migrations in order and returns how many
	// were applied.
	Run(ctx context.Context, databaseName string) (int, error)
}

// MigrationRunner is the listener for TenantDatabaseCreatedEvent. It works
// from the TenantRef carried by the event alone.
type MigrationRunner struct {
	bus      eventbus.Publisher
	migrator Migrator
}

// NewMigrationRunner creates the migration stage listener.
func NewMigrationRunner(bus eventbus.Publisher, migrator Migrator) *MigrationRunner {
	return &MigrationRunner{bus: bus, migrator: migrator}
}

// Handle processes a DatabaseCreated event.
func (r *MigrationRunner) Handle(ctx context.Context, e eventbus.Event) error {
	ev, ok := e.(DatabaseCreated)
	if !ok {
		return fmt.Errorf("migration runner: unexpected event %s", e.Kind())
	}

	pending, err := r.migrator.HasPending(ctx, ev.DatabaseName)
	if err != nil {
		reportFailure(ctx, r.bus, ev.Tenant, StageMigrations, err)
		return err
	}

	applied := 0
	if pending {
		applied, err = r.migrator.Run(ctx, ev.DatabaseName)
		if err != nil {
			reportFailure(ctx, r.bus, ev.Tenant, StageMigrations, err)
			return err
		}
	}

	slog.InfoContext(ctx, "tenant migrations applied",
		logger.Component("migration_runner"),
		logger.TenantID(ev.Tenant.ID),
		logger.DatabaseName(ev.DatabaseName),
		logger.Count(applied),
	)

	return r.bus.Publish(ctx, NewMigrationsCompleted(ev.Tenant, applied))
}
