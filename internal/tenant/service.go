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

package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/darasa/darasa/internal/audit"
	"github.com/darasa/darasa/internal/eventbus"
	"github.com/darasa/darasa/internal/observability/logger"
	"github.com/darasa/darasa/internal/provisioning"
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Service provides tenant management business logic. Creation kicks off the
// asynchronous provisioning chain; the service also listens for the chain's
// terminal events to persist the tenant's final status.
type Service struct {
	repo        Repository
	bus         eventbus.Publisher
	auditLogger audit.Logger
}

// NewService creates a new tenant service
func NewService(repo Repository, bus eventbus.Publisher, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		bus:         bus,
		auditLogger: auditLogger,
	}
}

// Create registers a new tenant and starts its provisioning chain on a
// detached goroutine. The returned tenant is in pending status: the caller
// gets no signal about downstream provisioning success or failure, only the
// record it can poll.
func (s *Service) Create(ctx context.Context, name, subdomain, customDomain string) (*Tenant, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	if !subdomainPattern.MatchString(subdomain) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSubdomain, subdomain)
	}

	// Upstream dedup guard: a duplicate registration never reaches the
	// provisioning chain, so a duplicate CREATE DATABASE cannot happen
	// through this path.
	if existing, err := s.repo.GetBySubdomain(ctx, subdomain); err == nil && existing != nil {
		return nil, ErrSubdomainTaken
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate tenant id: %w", err)
	}

	now := time.Now()
	t := &Tenant{
		ID:           id.String(),
		Name:         name,
		Subdomain:    subdomain,
		CustomDomain: customDomain,
		DatabaseName: DeriveDatabaseName(subdomain, id.String()),
		Status:       StatusPending,
		Settings:     map[string]any{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantCreated,
		TenantID: t.ID,
		Resource: t.Subdomain,
		Metadata: map[string]any{"database_name": t.DatabaseName},
	})

	// The chain runs detached from the request that triggered it. Publish
	// errors are advisory only: each stage has already recorded its own
	// failure event by the time they surface here.
	chainCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.bus.Publish(chainCtx, provisioning.NewTenantCreated(s.ref(t))); err != nil {
			slog.ErrorContext(chainCtx, "tenant provisioning chain reported failure",
				logger.Component("tenant_service"),
				logger.TenantID(t.ID),
				logger.Error(err),
			)
		}
	}()

	return t, nil
}

// Get retrieves a tenant by ID.
func (s *Service) Get(ctx context.Context, id string) (*Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

// GetBySubdomain retrieves a tenant by subdomain.
func (s *Service) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	return s.repo.GetBySubdomain(ctx, subdomain)
}

// List lists tenants with pagination.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	return s.repo.List(ctx, limit, offset)
}

// Delete soft-deletes a tenant. The physical database is kept; only the
// pooled connections for it are closed, via the deletion event.
func (s *Service) Delete(ctx context.Context, id string) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantDeleted,
		TenantID: id,
		Resource: t.Subdomain,
	})
	return s.bus.Publish(ctx, provisioning.NewTenantDeleted(s.ref(t)))
}

// PermanentlyDelete removes a tenant and its physical database. This is
// irreversible: the deprovisioner drops the database before the row goes.
func (s *Service) PermanentlyDelete(ctx context.Context, id string) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.bus.Publish(ctx, provisioning.NewTenantPermanentlyDeleted(s.ref(t))); err != nil {
		return fmt.Errorf("failed to deprovision tenant %s: %w", id, err)
	}
	if err := s.repo.HardDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to remove tenant record: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantDestroyed,
		TenantID: id,
		Resource: t.Subdomain,
		Metadata: map[string]any{"database_name": t.DatabaseName},
	})
	return nil
}

// HandleSetupCompleted marks a tenant active once its chain finishes.
func (s *Service) HandleSetupCompleted(ctx context.Context, e eventbus.Event) error {
	ev, ok := e.(provisioning.SetupCompleted)
	if !ok {
		return fmt.Errorf("tenant service: unexpected event %s", e.Kind())
	}

	if err := s.repo.SetStatus(ctx, ev.Tenant.ID, StatusActive, true); err != nil {
		return fmt.Errorf("failed to activate tenant %s: %w", ev.Tenant.ID, err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantSetupCompleted,
		TenantID: ev.Tenant.ID,
		Resource: ev.Tenant.Name,
		Metadata: map[string]any{"setup_duration": ev.SetupDuration.String()},
	})
	return nil
}

// RotateAPIKey issues a fresh platform API key for an active tenant, stores
// only its hash, and returns the raw key exactly once.
func (s *Service) RotateAPIKey(ctx context.Context, id string) (string, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !t.IsActive {
		return "", fmt.Errorf("%w: %s", ErrTenantNotActive, id)
	}

	raw, hash, err := GenerateAPIKey()
	if err != nil {
		return "", err
	}

	t.APIKeyHash = hash
	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return "", fmt.Errorf("failed to store api key for tenant %s: %w", id, err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAPIKeyIssued,
		TenantID: t.ID,
		Resource: t.Subdomain,
	})
	return raw, nil
}

// HandleSetupFailed records the failed status on the tenant record.
func (s *Service) HandleSetupFailed(ctx context.Context, e eventbus.Event) error {
	ev, ok := e.(provisioning.SetupFailed)
	if !ok {
		return fmt.Errorf("tenant service: unexpected event %s", e.Kind())
	}

	if err := s.repo.SetStatus(ctx, ev.Tenant.ID, StatusSetupFailed, false); err != nil {
		return fmt.Errorf("failed to record setup failure for tenant %s: %w", ev.Tenant.ID, err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantSetupFailed,
		TenantID: ev.Tenant.ID,
		Resource: ev.Tenant.Name,
		Metadata: map[string]any{"stage": string(ev.Stage), "error": ev.Reason},
	})
	return nil
}

// RegisterListeners subscribes the service to the chain's terminal events.
func (s *Service) RegisterListeners(bus *eventbus.Bus) error {
	if _, err := bus.Subscribe(provisioning.KindSetupCompleted, s.HandleSetupCompleted); err != nil {
		return err
	}
	if _, err := bus.Subscribe(provisioning.KindSetupFailed, s.HandleSetupFailed); err != nil {
		return err
	}
	return nil
}

func (s *Service) ref(t *Tenant) provisioning.TenantRef {
	return provisioning.TenantRef{ID: t.ID, Name: t.Name, DatabaseName: t.DatabaseName}
}
