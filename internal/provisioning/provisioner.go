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

package provisioning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/darasa/darasa/internal/eventbus"
	"github.com/darasa/darasa/internal/observability/logger"
)

// DatabaseCreator creates a physical per-tenant database.
type DatabaseCreator interface {
	CreateDatabase(ctx context.Context, name string) error
}

// DatabaseDropper removes a physical per-tenant database.
type DatabaseDropper interface {
	DropDatabase(ctx context.Context, name string) error
}

// Provisioner is the listener for TenantCreatedEvent. It creates the
// tenant's database and hands the chain to the migration runner. There is
// no pre-existence check: the database engine alone decides whether the
// name is taken, and a duplicate create surfaces as a stage failure.
type Provisioner struct {
	bus     eventbus.Publisher
	creator DatabaseCreator
}

// NewProvisioner creates the database-creation stage listener.
func NewProvisioner(bus eventbus.Publisher, creator DatabaseCreator) *Provisioner {
	return &Provisioner{bus: bus, creator: creator}
}

// Handle processes a TenantCreated event.
func (p *Provisioner) Handle(ctx context.Context, e eventbus.Event) error {
	ev, ok := e.(TenantCreated)
	if !ok {
		return fmt.Errorf("provisioner: unexpected event %s", e.Kind())
	}

	slog.InfoContext(ctx, "creating tenant database",
		logger.Component("provisioner"),
		logger.TenantID(ev.Tenant.ID),
		logger.DatabaseName(ev.Tenant.DatabaseName),
	)

	if err := p.creator.CreateDatabase(ctx, ev.Tenant.DatabaseName); err != nil {
		reportFailure(ctx, p.bus, ev.Tenant, StageDatabaseCreation, err)
		return err
	}

	return p.bus.Publish(ctx, NewDatabaseCreated(ev.Tenant))
}

// reportFailure publishes the terminal SetupFailed event for a stage. The
// caller still returns the original error to the bus, so the failure is
// both recorded as a domain event and surfaced to whoever published the
// triggering event.
func reportFailure(ctx context.Context, bus eventbus.Publisher, ref TenantRef, stage Stage, cause error) {
	slog.ErrorContext(ctx, "tenant setup stage failed",
		logger.TenantID(ref.ID),
		logger.Stage(string(stage)),
		logger.Error(cause),
	)
	if err := bus.Publish(ctx, NewSetupFailed(ref, stage, cause)); err != nil {
		slog.ErrorContext(ctx, "failed to publish setup failure",
			logger.TenantID(ref.ID),
			logger.Stage(string(stage)),
			logger.Error(err),
		)
	}
}
