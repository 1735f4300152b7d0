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
	"log/slog"
	"time"

	"github.com/darasa/darasa/internal/audit"
	"github.com/darasa/darasa/internal/observability/logger"
)

// AuditLogger persists audit events to the master database. It implements
// audit.Logger and is usually fanned out together with the slog sink.
// Writes are best-effort: an unreachable audit table must not fail the
// operation being audited.
type AuditLogger struct {
	db *DB
}

// NewAuditLogger creates an audit sink backed by the master pool.
func NewAuditLogger(db *DB) *AuditLogger {
	return &AuditLogger{db: db}
}

// Log records an audit event in the audit_log table.
func (l *AuditLogger) Log(ctx context.Context, event audit.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	metadata, err := json.Marshal(audit.Redact(event.Metadata))
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal audit metadata", logger.Error(err))
		metadata = []byte("{}")
	}

	_, err = l.db.pool.Exec(ctx,
		`INSERT INTO audit_log (event_type, tenant_id, actor_id, resource, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.Type, nullIfEmpty(event.TenantID), nullIfEmpty(event.ActorID),
		event.Resource, metadata, event.Timestamp,
	)
	if err != nil {
		slog.ErrorContext(ctx, "failed to persist audit event",
			logger.Error(err),
			logger.String("audit_type", event.Type),
			logger.TenantID(event.TenantID),
		)
	}
}
