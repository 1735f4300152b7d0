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
	"regexp"

	"github.com/jackc/pgx/v5"
)

// databaseNamePattern matches the names produced by tenant.DeriveDatabaseName.
// Anything else is rejected before it reaches a DDL statement.
var databaseNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// Admin issues CREATE DATABASE and DROP DATABASE statements against the
// master connection. DDL cannot be parameterized, so names are validated
// against a strict pattern and quoted as identifiers.
type Admin struct {
	db *DB
}

// NewAdmin creates a database administrator backed by the master pool.
func NewAdmin(db *DB) *Admin {
	return &Admin{db: db}
}

// CreateDatabase creates a dedicated database for a tenant. Creating a
// database that already exists is an error; the provisioning workflow
// treats it as a setup failure.
func (a *Admin) CreateDatabase(ctx context.Context, name string) error {
	if !databaseNamePattern.MatchString(name) {
		return fmt.Errorf("invalid database name %q", name)
	}

	stmt := "CREATE DATABASE " + pgx.Identifier{name}.Sanitize()
	if _, err := a.db.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create database %s: %w", name, err)
	}
	return nil
}

// DropDatabase permanently removes a tenant database. FORCE terminates any
// remaining backend connections, which covers pools that were not closed
// cleanly before deprovisioning.
func (a *Admin) DropDatabase(ctx context.Context, name string) error {
	if !databaseNamePattern.MatchString(name) {
		return fmt.Errorf("invalid database name %q", name)
	}

	stmt := "DROP DATABASE IF EXISTS " + pgx.Identifier{name}.Sanitize() + " WITH (FORCE)"
	if _, err := a.db.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to drop database %s: %w", name, err)
	}
	return nil
}
