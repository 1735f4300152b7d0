package provisioning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/darasa/darasa/internal/eventbus"
	"github.com/darasa/darasa/internal/observability/logger"
)

// Seeder inserts baseline reference data into a migrated tenant database.
type Seeder interface {
	// Run seeds default roles, modules and permission sets and returns
	// the number of rows inserted.
	Run(ctx context.Context, databaseName string) (int, error)
}

// SeedRunner is the listener for TenantMigrationsCompletedEvent.
type SeedRunner struct {
	bus    eventbus.Publisher
	seeder Seeder
}

// NewSeedRunner creates the seeding stage listener.
func NewSeedRunner(bus eventbus.Publisher, seeder Seeder) *SeedRunner {
	return &SeedRunner{bus: bus, seeder: seeder}
}

// Handle processes a MigrationsCompleted event.
func (r *SeedRunner) Handle(ctx context.Context, e eventbus.Event) error {
	ev, ok := e.(MigrationsCompleted)
	if !ok {
		return fmt.Errorf("seed runner: unexpected event %s", e.Kind())
	}

	rows, err := r.seeder.Run(ctx, ev.Tenant.DatabaseName)
	if err != nil {
		reportFailure(ctx, r.bus, ev.Tenant, StageSeeding, err)
		return err
	}

	slog.InfoContext(ctx, "tenant baseline data seeded",
		logger.Component("seed_runner"),
		logger.TenantID(ev.Tenant.ID),
		logger.DatabaseName(ev.Tenant.DatabaseName),
		logger.Count(rows),
	)

	return r.bus.Publish(ctx, NewSeedersCompleted(ev.Tenant, rows))
}
