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
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/darasa/darasa/internal/observability/logger"
)

// ConnManager hands out per-tenant connection pools, created lazily on
// first use and cached for the life of the process. All methods are safe
// for concurrent use.
type ConnManager struct {
	cfg    Config
	logger *slog.Logger

	mu    sync.RWMutex
	pools map[string]*pgxpool.Pool
}

// NewConnManager creates a connection manager. cfg supplies host and
// credentials; the database name is overridden per tenant.
func NewConnManager(cfg Config, log *slog.Logger) *ConnManager {
	return &ConnManager{
		cfg:    cfg,
		logger: log,
		pools:  make(map[string]*pgxpool.Pool),
	}
}

// Get returns the pool for the named tenant database, creating and pinging
// it on first request.
func (m *ConnManager) Get(ctx context.Context, databaseName string) (*pgxpool.Pool, error) {
	m.mu.RLock()
	pool, ok := m.pools[databaseName]
	m.mu.RUnlock()
	if ok {
		return pool, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another goroutine may have created the pool while we waited for the
	// write lock.
	if pool, ok := m.pools[databaseName]; ok {
		return pool, nil
	}

	poolConfig, err := pgxpool.ParseConfig(m.cfg.dsn(databaseName))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config for %s: %w", databaseName, err)
	}

	pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", databaseName, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", databaseName, err)
	}

	m.pools[databaseName] = pool
	m.logger.Debug("tenant pool opened", logger.DatabaseName(databaseName))
	return pool, nil
}

// Close shuts down the pool for one tenant database, if it exists. Called
// when a tenant is deleted so its connections do not linger.
func (m *ConnManager) Close(databaseName string) {
	m.mu.Lock()
	pool, ok := m.pools[databaseName]
	if ok {
		delete(m.pools, databaseName)
	}
	m.mu.Unlock()

	if ok {
		pool.Close()
		m.logger.Debug("tenant pool closed", logger.DatabaseName(databaseName))
	}
}

// CloseAll shuts down every cached pool. Used during graceful shutdown.
func (m *ConnManager) CloseAll() {
	m.mu.Lock()
	pools := m.pools
	m.pools = make(map[string]*pgxpool.Pool)
	m.mu.Unlock()

	for name, pool := range pools {
		pool.Close()
		m.logger.Debug("tenant pool closed", logger.DatabaseName(name))
	}
}

// Len reports how many tenant pools are currently open.
func (m *ConnManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pools)
}
