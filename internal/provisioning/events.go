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

// Package provisioning implements the tenant lifecycle chain: a new tenant
// record triggers database creation, schema migrations, baseline seeding and
// finally a setup-completed event, each stage driven by the event emitted by
// the one before it. Any stage may instead report a setup failure, which
// terminates the chain for that tenant.
package provisioning

import (
	"time"

	"github.com/google/uuid"

	"github.com/darasa/darasa/internal/eventbus"
)

// Event kinds form the wire contract between publishers and subscribers.
// The set is closed; the bus routes on these values and nothing else.
const (
	KindTenantCreated            eventbus.Kind = "TenantCreatedEvent"
	KindDatabaseCreated          eventbus.Kind = "TenantDatabaseCreatedEvent"
	KindMigrationsCompleted      eventbus.Kind = "TenantMigrationsCompletedEvent"
	KindSeedersCompleted         eventbus.Kind = "TenantSeedersCompletedEvent"
	KindSetupCompleted           eventbus.Kind = "TenantSetupCompletedEvent"
	KindSetupFailed              eventbus.Kind = "TenantSetupFailedEvent"
	KindTenantDeleted            eventbus.Kind = "TenantDeletedEvent"
	KindTenantPermanentlyDeleted eventbus.Kind = "TenantPermanentlyDeletedEvent"
)

// Stage names the provisioning step a failure is attributed to.
type Stage string

const (
	StageDatabaseCreation Stage = "database_creation"
	StageMigrations       Stage = "migrations"
	StageSeeding          Stage = "seeding"
	StageCompletion       Stage = "completion"
)

// TenantRef is the minimal tenant reference carried between stages. Later
// stages work from these three fields alone; they never re-fetch the tenant
// record, so nothing beyond them is available downstream.
type TenantRef struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DatabaseName string `json:"database_name"`
}

// BaseEvent is the envelope every provisioning event carries. Events are
// immutable values: constructed once, never mutated.
type BaseEvent struct {
	EventID    string    `json:"event_id"`
	Timestamp  time.Time `json:"timestamp"`
	TenantID   string    `json:"tenant_id"`
	TenantName string    `json:"tenant_name"`
}

func newBaseEvent(ref TenantRef) BaseEvent {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return BaseEvent{
		EventID:    id.String(),
		Timestamp:  time.Now(),
		TenantID:   ref.ID,
		TenantName: ref.Name,
	}
}

// TenantCreated starts the provisioning chain for a tenant.
type TenantCreated struct {
	BaseEvent
	Tenant TenantRef `json:"tenant"`
}

func (TenantCreated) Kind() eventbus.Kind { return KindTenantCreated }

// NewTenantCreated builds a TenantCreated event.
func NewTenantCreated(ref TenantRef) TenantCreated {
	return TenantCreated{BaseEvent: newBaseEvent(ref), Tenant: ref}
}

// DatabaseCreated reports that the tenant's physical database exists.
type DatabaseCreated struct {
	BaseEvent
	Tenant       TenantRef `json:"tenant"`
	DatabaseName string    `json:"database_name"`
}

func (DatabaseCreated) Kind() eventbus.Kind { return KindDatabaseCreated }

// NewDatabaseCreated builds a DatabaseCreated event.
func NewDatabaseCreated(ref TenantRef) DatabaseCreated {
	return DatabaseCreated{BaseEvent: newBaseEvent(ref), Tenant: ref, DatabaseName: ref.DatabaseName}
}

// MigrationsCompleted reports the tenant schema is up to date.
// MigrationsApplied is the count actually applied by this run.
type MigrationsCompleted struct {
	BaseEvent
	Tenant            TenantRef `json:"tenant"`
	MigrationsApplied int       `json:"migrations_applied"`
}

func (MigrationsCompleted) Kind() eventbus.Kind { return KindMigrationsCompleted }

// NewMigrationsCompleted builds a MigrationsCompleted event.
func NewMigrationsCompleted(ref TenantRef, applied int) MigrationsCompleted {
	return MigrationsCompleted{BaseEvent: newBaseEvent(ref), Tenant: ref, MigrationsApplied: applied}
}

// SeedersCompleted reports baseline data has been inserted.
type SeedersCompleted struct {
	BaseEvent
	Tenant     TenantRef `json:"tenant"`
	RowsSeeded int       `json:"rows_seeded"`
}

func (SeedersCompleted) Kind() eventbus.Kind { return KindSeedersCompleted }

// NewSeedersCompleted builds a SeedersCompleted event.
func NewSeedersCompleted(ref TenantRef, rows int) SeedersCompleted {
	return SeedersCompleted{BaseEvent: newBaseEvent(ref), Tenant: ref, RowsSeeded: rows}
}

// SetupCompleted is the terminal success event for one tenant's chain.
type SetupCompleted struct {
	BaseEvent
	Tenant        TenantRef     `json:"tenant"`
	SetupDuration time.Duration `json:"setup_duration"`
}

func (SetupCompleted) Kind() eventbus.Kind { return KindSetupCompleted }

// NewSetupCompleted builds a SetupCompleted event.
func NewSetupCompleted(ref TenantRef, d time.Duration) SetupCompleted {
	return SetupCompleted{BaseEvent: newBaseEvent(ref), Tenant: ref, SetupDuration: d}
}

// SetupFailed is the terminal failure event for one tenant's chain. It
// carries the stage that failed and the error message; the chain does not
// retry or compensate.
type SetupFailed struct {
	BaseEvent
	Tenant TenantRef `json:"tenant"`
	Stage  Stage     `json:"stage"`
	Reason string    `json:"error"`
}

func (SetupFailed) Kind() eventbus.Kind { return KindSetupFailed }

// NewSetupFailed builds a SetupFailed event.
func NewSetupFailed(ref TenantRef, stage Stage, err error) SetupFailed {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return SetupFailed{BaseEvent: newBaseEvent(ref), Tenant: ref, Stage: stage, Reason: reason}
}

// TenantDeleted reports a soft delete. The physical database stays in place.
type TenantDeleted struct {
	BaseEvent
	Tenant TenantRef `json:"tenant"`
}

func (TenantDeleted) Kind() eventbus.Kind { return KindTenantDeleted }

// NewTenantDeleted builds a TenantDeleted event.
func NewTenantDeleted(ref TenantRef) TenantDeleted {
	return TenantDeleted{BaseEvent: newBaseEvent(ref), Tenant: ref}
}

// TenantPermanentlyDeleted reports an irreversible delete; the deprovisioner
// drops the physical database in response.
type TenantPermanentlyDeleted struct {
	BaseEvent
	Tenant TenantRef `json:"tenant"`
}

func (TenantPermanentlyDeleted) Kind() eventbus.Kind { return KindTenantPermanentlyDeleted }

// NewTenantPermanentlyDeleted builds a TenantPermanentlyDeleted event.
func NewTenantPermanentlyDeleted(ref TenantRef) TenantPermanentlyDeleted {
	return TenantPermanentlyDeleted{BaseEvent: newBaseEvent(ref), Tenant: ref}
}
