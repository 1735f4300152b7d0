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
	"sync"
	"time"

	"github.com/darasa/darasa/internal/eventbus"
	"github.com/darasa/darasa/internal/observability/logger"
)

// State of one tenant's tracked lifecycle, as seen by the tracker.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
)

// Tracker observes the provisioning chain and measures wall-clock setup
// duration per tenant. The start-time map is process-local and not
// persisted: a restart mid-provisioning loses elapsed-time tracking, which
// is acceptable because the duration is telemetry, not correctness-critical.
// There is no watchdog; if a stage never reports, the entry stays until the
// process restarts.
type Tracker struct {
	bus     eventbus.Publisher
	metrics *Metrics

	mu      sync.Mutex
	started map[string]time.Time

	now func() time.Time
}

// NewTracker creates a setup completion tracker. metrics may be nil.
func NewTracker(bus eventbus.Publisher, metrics *Metrics) *Tracker {
	return &Tracker{
		bus:     bus,
		metrics: metrics,
		started: make(map[string]time.Time),
		now:     time.Now,
	}
}

// HandleCreated records the start timestamp for a tenant. A duplicate
// TenantCreated for a tenant already in flight keeps the earliest start
// time rather than resetting it.
func (t *Tracker) HandleCreated(ctx context.Context, e eventbus.Event) error {
	ev, ok := e.(TenantCreated)
	if !ok {
		return fmt.Errorf("tracker: unexpected event %s", e.Kind())
	}

	t.mu.Lock()
	if _, inFlight := t.started[ev.Tenant.ID]; !inFlight {
		t.started[ev.Tenant.ID] = t.now()
	}
	t.mu.Unlock()
	return nil
}

// HandleSeedersCompleted computes the setup duration and emits the terminal
// SetupCompleted event. A missing start entry (e.g. after a process restart)
// yields a duration of exactly zero. If publishing the completion event
// itself fails, the tracker reports a completion-stage failure instead.
func (t *Tracker) HandleSeedersCompleted(ctx context.Context, e eventbus.Event) error {
	ev, ok := e.(SeedersCompleted)
	if !ok {
		return fmt.Errorf("tracker: unexpected event %s", e.Kind())
	}

	var duration time.Duration
	t.mu.Lock()
	if start, found := t.started[ev.Tenant.ID]; found {
		duration = t.now().Sub(start)
		if duration < 0 {
			duration = 0
		}
		delete(t.started, ev.Tenant.ID)
	}
	t.mu.Unlock()

	if err := t.bus.Publish(ctx, NewSetupCompleted(ev.Tenant, duration)); err != nil {
		// HandleFailed records the failure metric when SetupFailed dispatches.
		reportFailure(ctx, t.bus, ev.Tenant, StageCompletion, err)
		return err
	}

	slog.InfoContext(ctx, "tenant setup completed",
		logger.Component("setup_tracker"),
		logger.TenantID(ev.Tenant.ID),
		logger.TenantName(ev.Tenant.Name),
		logger.SetupDuration(duration),
	)
	t.metrics.recordCompleted(ctx, duration)
	return nil
}

// HandleFailed removes the tracking entry for a failed tenant. Terminal:
// no further events are emitted for that tenant's lifecycle.
func (t *Tracker) HandleFailed(ctx context.Context, e eventbus.Event) error {
	ev, ok := e.(SetupFailed)
	if !ok {
		return fmt.Errorf("tracker: unexpected event %s", e.Kind())
	}

	t.mu.Lock()
	delete(t.started, ev.Tenant.ID)
	t.mu.Unlock()

	t.metrics.recordFailure(ctx, ev.Stage)
	return nil
}

// Status reports whether a tenant's chain is currently tracked.
func (t *Tracker) Status(tenantID string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.started[tenantID]; ok {
		return StateInProgress
	}
	return StateNotStarted
}

// StartedAt returns the recorded start time for a tenant, if tracked.
func (t *Tracker) StartedAt(tenantID string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	start, ok := t.started[tenantID]
	return start, ok
}

// InFlight returns the number of tenants currently being provisioned.
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.started)
}
