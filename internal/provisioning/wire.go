package provisioning

import (
	"github.com/darasa/darasa/internal/eventbus"
)

// Chain bundles the stage listeners for one process.
type Chain struct {
	Provisioner   *Provisioner
	Migrations    *MigrationRunner
	Seeds         *SeedRunner
	Tracker       *Tracker
	Deprovisioner *Deprovisioner
}

// NewChain builds the full set of stage listeners against one bus.
func NewChain(bus eventbus.Publisher, creator DatabaseCreator, dropper DatabaseDropper, migrator Migrator, seeder Seeder, conns ConnCloser, m *Metrics) *Chain {
	return &Chain{
		Provisioner:   NewProvisioner(bus, creator),
		Migrations:    NewMigrationRunner(bus, migrator),
		Seeds:         NewSeedRunner(bus, seeder),
		Tracker:       NewTracker(bus, m),
		Deprovisioner: NewDeprovisioner(dropper, conns),
	}
}

// Register subscribes every stage listener to its triggering event. The
// tracker's HandleCreated is registered before the provisioner so the start
// timestamp exists by the time the first stage runs.
func (c *Chain) Register(bus *eventbus.Bus) error {
	subs := []struct {
		kind eventbus.Kind
		h    eventbus.Handler
	}{
		{KindTenantCreated, c.Tracker.HandleCreated},
		{KindTenantCreated, c.Provisioner.Handle},
		{KindDatabaseCreated, c.Migrations.Handle},
		{KindMigrationsCompleted, c.Seeds.Handle},
		{KindSeedersCompleted, c.Tracker.HandleSeedersCompleted},
		{KindSetupFailed, c.Tracker.HandleFailed},
		{KindTenantDeleted, c.Deprovisioner.HandleDeleted},
		{KindTenantPermanentlyDeleted, c.Deprovisioner.HandlePermanentlyDeleted},
	}
	for _, s := range subs {
		if _, err := bus.Subscribe(s.kind, s.h); err != nil {
			return err
		}
	}
	return nil
}
