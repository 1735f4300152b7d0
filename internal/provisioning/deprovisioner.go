package provisioning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/darasa/darasa/internal/eventbus"
	"github.com/darasa/darasa/internal/observability/logger"
)

// ConnCloser closes pooled connections for one tenant database.
type ConnCloser interface {
	Close(databaseName string)
}

// Deprovisioner reacts to tenant deletion events. A soft delete only closes
// the tenant's pooled connections; a permanent delete also drops the
// physical database, which is irreversible.
type Deprovisioner struct {
	dropper DatabaseDropper
	conns   ConnCloser
}

// NewDeprovisioner creates the deletion listener.
func NewDeprovisioner(dropper DatabaseDropper, conns ConnCloser) *Deprovisioner {
	return &Deprovisioner{dropper: dropper, conns: conns}
}

// HandleDeleted processes a TenantDeleted event.
func (d *Deprovisioner) HandleDeleted(ctx context.Context, e eventbus.Event) error {
	ev, ok := e.(TenantDeleted)
	if !ok {
		return fmt.Errorf("deprovisioner: unexpected event %s", e.Kind())
	}

	d.conns.Close(ev.Tenant.DatabaseName)
	slog.InfoContext(ctx, "tenant connections closed",
		logger.Component("deprovisioner"),
		logger.TenantID(ev.Tenant.ID),
		logger.DatabaseName(ev.Tenant.DatabaseName),
	)
	return nil
}

// HandlePermanentlyDeleted processes a TenantPermanentlyDeleted event.
func (d *Deprovisioner) HandlePermanentlyDeleted(ctx context.Context, e eventbus.Event) error {
	ev, ok := e.(TenantPermanentlyDeleted)
	if !ok {
		return fmt.Errorf("deprovisioner: unexpected event %s", e.Kind())
	}

	d.conns.Close(ev.Tenant.DatabaseName)
	if err := d.dropper.DropDatabase(ctx, ev.Tenant.DatabaseName); err != nil {
		slog.ErrorContext(ctx, "failed to drop tenant database",
			logger.Component("deprovisioner"),
			logger.TenantID(ev.Tenant.ID),
			logger.DatabaseName(ev.Tenant.DatabaseName),
			logger.Error(err),
		)
		return err
	}

	slog.InfoContext(ctx, "tenant database dropped",
		logger.Component("deprovisioner"),
		logger.TenantID(ev.Tenant.ID),
		logger.DatabaseName(ev.Tenant.DatabaseName),
	)
	return nil
}
