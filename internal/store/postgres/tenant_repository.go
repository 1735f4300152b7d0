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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/darasa/darasa/internal/tenant"
)

// TenantRepository implements tenant.Repository against the master database.
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a tenant repository backed by the master pool.
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

const tenantColumns = `id, name, subdomain, custom_domain, database_name,
	status, is_active, settings, api_key_hash, created_at, updated_at, deleted_at`

// Create inserts a new tenant. Subdomain collisions among live tenants are
// enforced by a partial unique index, so a race past the service-level check
// still fails here.
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	settings, err := json.Marshal(t.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	query := `
		INSERT INTO tenants (id, name, subdomain, custom_domain, database_name,
			status, is_active, settings, api_key_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.pool.Exec(ctx, query,
		t.ID, t.Name, t.Subdomain, nullIfEmpty(t.CustomDomain), t.DatabaseName,
		t.Status, t.IsActive, settings, nullIfEmpty(t.APIKeyHash),
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by ID, including soft-deleted ones so that
// deletion status is visible to operators.
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return r.scanOne(r.db.pool.QueryRow(ctx, query, id))
}

// GetBySubdomain retrieves a live tenant by its subdomain.
func (r *TenantRepository) GetBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants
		WHERE subdomain = $1 AND deleted_at IS NULL`
	return r.scanOne(r.db.pool.QueryRow(ctx, query, subdomain))
}

// Update persists mutable tenant fields. Identity fields (subdomain,
// database name) are deliberately not updatable.
func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	settings, err := json.Marshal(t.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	query := `
		UPDATE tenants
		SET name = $2, custom_domain = $3, status = $4, is_active = $5,
			settings = $6, api_key_hash = $7, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.pool.Exec(ctx, query,
		t.ID, t.Name, nullIfEmpty(t.CustomDomain), t.Status, t.IsActive,
		settings, nullIfEmpty(t.APIKeyHash),
	)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

// SetStatus transitions a tenant's lifecycle status.
func (r *TenantRepository) SetStatus(ctx context.Context, id string, status tenant.Status, isActive bool) error {
	query := `
		UPDATE tenants
		SET status = $2, is_active = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.pool.Exec(ctx, query, id, status, isActive)
	if err != nil {
		return fmt.Errorf("failed to set tenant status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

// SoftDelete marks a tenant deleted without touching its database. The
// record remains for audit and for a later permanent delete.
func (r *TenantRepository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE tenants
		SET status = $2, is_active = FALSE, deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.pool.Exec(ctx, query, id, tenant.StatusDeleted)
	if err != nil {
		return fmt.Errorf("failed to soft delete tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

// HardDelete removes the tenant row entirely.
func (r *TenantRepository) HardDelete(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

// List returns live tenants, newest first.
func (r *TenantRepository) List(ctx context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*tenant.Tenant
	for rows.Next() {
		t, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tenants: %w", err)
	}
	return tenants, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *TenantRepository) scanOne(row rowScanner) (*tenant.Tenant, error) {
	var (
		t            tenant.Tenant
		customDomain *string
		apiKeyHash   *string
		settings     []byte
	)

	err := row.Scan(
		&t.ID, &t.Name, &t.Subdomain, &customDomain, &t.DatabaseName,
		&t.Status, &t.IsActive, &settings, &apiKeyHash,
		&t.CreatedAt, &t.UpdatedAt, &t.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to scan tenant: %w", err)
	}

	if customDomain != nil {
		t.CustomDomain = *customDomain
	}
	if apiKeyHash != nil {
		t.APIKeyHash = *apiKeyHash
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &t.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
	}
	return &t, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
