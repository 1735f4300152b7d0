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

// Package health reports process health for probes and operators.
package health

import (
	"context"
	"sync/atomic"
	"time"
)

// Pinger checks connectivity to the master database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PoolCounter reports how many tenant connection pools are open.
type PoolCounter interface {
	Len() int
}

// ProvisioningCounter reports how many tenant setups are in flight.
type ProvisioningCounter interface {
	InFlight() int
}

// Service answers health and readiness checks. Readiness additionally goes
// false once shutdown begins, so load balancers drain before the listener
// stops.
type Service struct {
	pinger       Pinger
	pools        PoolCounter
	provisioning ProvisioningCounter
	startedAt    time.Time
	shuttingDown atomic.Bool
}

// NewService creates a health service. pools and provisioning may be nil
// when the caller has nothing to report for them.
func NewService(pinger Pinger, pools PoolCounter, provisioning ProvisioningCounter) *Service {
	return &Service{
		pinger:       pinger,
		pools:        pools,
		provisioning: provisioning,
		startedAt:    time.Now(),
	}
}

// IsHealthy reports whether the master database answers.
func (s *Service) IsHealthy(ctx context.Context) bool {
	if s.pinger == nil {
		return false
	}
	return s.pinger.Ping(ctx) == nil
}

// IsReady reports whether the process should receive traffic.
func (s *Service) IsReady(ctx context.Context) bool {
	return !s.shuttingDown.Load() && s.IsHealthy(ctx)
}

// MarkShuttingDown flips readiness off permanently. Called by the shutdown
// coordinator before the HTTP server stops accepting connections.
func (s *Service) MarkShuttingDown() {
	s.shuttingDown.Store(true)
}

// Status is the detailed health report.
type Status struct {
	Status               string        `json:"status"`
	Database             string        `json:"database"`
	Uptime               string        `json:"uptime"`
	OpenTenantPools      int           `json:"open_tenant_pools"`
	ProvisioningInFlight int           `json:"provisioning_in_flight"`
	ShuttingDown         bool          `json:"shutting_down,omitempty"`
	UptimeDuration       time.Duration `json:"-"`
}

// Detailed returns the full health report for operators.
func (s *Service) Detailed(ctx context.Context) Status {
	st := Status{
		Status:         "healthy",
		Database:       "up",
		ShuttingDown:   s.shuttingDown.Load(),
		UptimeDuration: time.Since(s.startedAt),
	}
	st.Uptime = st.UptimeDuration.Round(time.Second).String()

	if !s.IsHealthy(ctx) {
		st.Status = "unhealthy"
		st.Database = "down"
	}
	if s.pools != nil {
		st.OpenTenantPools = s.pools.Len()
	}
	if s.provisioning != nil {
		st.ProvisioningInFlight = s.provisioning.InFlight()
	}
	return st
}
