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
	"fmt"
	"log/slog"

	"github.com/darasa/darasa/internal/observability/logger"
)

// TenantSeeder loads the baseline reference data every school starts with:
// default roles, permissions, role grants, and platform modules. Seeding is
// idempotent; every insert carries ON CONFLICT DO NOTHING so a replay after
// a partial failure only inserts what is missing.
type TenantSeeder struct {
	conns  *ConnManager
	logger *slog.Logger
}

// NewTenantSeeder creates a seeder that uses the connection manager for
// per-tenant database access.
func NewTenantSeeder(conns *ConnManager, log *slog.Logger) *TenantSeeder {
	return &TenantSeeder{conns: conns, logger: log}
}

type seedRole struct {
	name        string
	description string
}

type seedPermission struct {
	name        string
	description string
}

var defaultRoles = []seedRole{
	{"admin", "School administrator with full access"},
	{"teacher", "Teaching staff"},
	{"student", "Enrolled student"},
	{"guardian", "Parent or guardian of a student"},
}

var defaultPermissions = []seedPermission{
	{"manage_tenant_settings", "Change school-wide configuration"},
	{"manage_users", "Create and deactivate user accounts"},
	{"manage_students", "Enroll and manage student records"},
	{"manage_classes", "Create classes and assign teachers"},
	{"record_attendance", "Record daily attendance"},
	{"record_grades", "Enter and edit grades"},
	{"view_grades", "View grades"},
	{"manage_billing", "Manage invoices and payments"},
	{"send_messages", "Send messages to students and guardians"},
}

// defaultGrants assigns baseline permissions per role. Admin gets
// everything and is handled separately.
var defaultGrants = map[string][]string{
	"teacher":  {"manage_classes", "record_attendance", "record_grades", "view_grades", "send_messages"},
	"student":  {"view_grades"},
	"guardian": {"view_grades"},
}

var defaultModules = []string{
	"enrollment",
	"attendance",
	"grading",
	"billing",
	"messaging",
}

// Run seeds the named tenant database and returns the number of rows
// actually inserted. The whole seed runs in one transaction.
func (s *TenantSeeder) Run(ctx context.Context, databaseName string) (int, error) {
	pool, err := s.conns.Get(ctx, databaseName)
	if err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0

	for _, role := range defaultRoles {
		tag, err := tx.Exec(ctx,
			`INSERT INTO roles (name, description) VALUES ($1, $2)
			 ON CONFLICT (name) DO NOTHING`,
			role.name, role.description,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to seed role %s: %w", role.name, err)
		}
		inserted += int(tag.RowsAffected())
	}

	for _, perm := range defaultPermissions {
		tag, err := tx.Exec(ctx,
			`INSERT INTO permissions (name, description) VALUES ($1, $2)
			 ON CONFLICT (name) DO NOTHING`,
			perm.name, perm.description,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to seed permission %s: %w", perm.name, err)
		}
		inserted += int(tag.RowsAffected())
	}

	// Admin receives every permission.
	tag, err := tx.Exec(ctx,
		`INSERT INTO role_permissions (role_id, permission_id)
		 SELECT r.id, p.id FROM roles r CROSS JOIN permissions p
		 WHERE r.name = 'admin'
		 ON CONFLICT DO NOTHING`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to seed admin grants: %w", err)
	}
	inserted += int(tag.RowsAffected())

	for roleName, perms := range defaultGrants {
		for _, permName := range perms {
			tag, err := tx.Exec(ctx,
				`INSERT INTO role_permissions (role_id, permission_id)
				 SELECT r.id, p.id FROM roles r, permissions p
				 WHERE r.name = $1 AND p.name = $2
				 ON CONFLICT DO NOTHING`,
				roleName, permName,
			)
			if err != nil {
				return 0, fmt.Errorf("failed to seed grant %s/%s: %w", roleName, permName, err)
			}
			inserted += int(tag.RowsAffected())
		}
	}

	for _, module := range defaultModules {
		tag, err := tx.Exec(ctx,
			`INSERT INTO modules (name, enabled) VALUES ($1, TRUE)
			 ON CONFLICT (name) DO NOTHING`,
			module,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to seed module %s: %w", module, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit seed transaction: %w", err)
	}

	s.logger.Debug("tenant seeded",
		logger.DatabaseName(databaseName),
		logger.Count(inserted),
	)
	return inserted, nil
}
