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

package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(context.Context) error { return p.err }

type fakeCounter struct{ n int }

func (c fakeCounter) Len() int      { return c.n }
func (c fakeCounter) InFlight() int { return c.n }

// TestPurpose: Validates that readiness tracks both database health and the
// shutdown flag, while liveness tracks only the database.
// Scope: Unit Test
// Expected: Healthy and ready while the database answers; not ready but
// still healthy after MarkShuttingDown; neither when the database is down.
// Test Case ID: HLT-01
// Metadata:
//   - Category: Health
//   - Priority: High
//   - Tags: readiness, shutdown
func TestService_ReadinessAndShutdown(t *testing.T) {
	ctx := context.Background()
	pinger := &fakePinger{}
	svc := NewService(pinger, nil, nil)

	assert.True(t, svc.IsHealthy(ctx))
	assert.True(t, svc.IsReady(ctx))

	svc.MarkShuttingDown()
	assert.True(t, svc.IsHealthy(ctx))
	assert.False(t, svc.IsReady(ctx))

	pinger.err = errors.New("connection refused")
	assert.False(t, svc.IsHealthy(ctx))
	assert.False(t, svc.IsReady(ctx))
}

// TestPurpose: Validates the detailed report in both healthy and unhealthy
// states, including tenant pool and in-flight provisioning counts.
// Scope: Unit Test
// Expected: "healthy"/"up" while the database answers, "unhealthy"/"down"
// once it stops; counters taken from the injected sources.
// Test Case ID: HLT-02
// Metadata:
//   - Category: Health
//   - Priority: Medium
//   - Tags: observability
func TestService_Detailed(t *testing.T) {
	ctx := context.Background()
	pinger := &fakePinger{}
	svc := NewService(pinger, fakeCounter{n: 3}, fakeCounter{n: 2})

	st := svc.Detailed(ctx)
	assert.Equal(t, "healthy", st.Status)
	assert.Equal(t, "up", st.Database)
	assert.Equal(t, 3, st.OpenTenantPools)
	assert.Equal(t, 2, st.ProvisioningInFlight)
	assert.False(t, st.ShuttingDown)

	pinger.err = errors.New("gone")
	st = svc.Detailed(ctx)
	assert.Equal(t, "unhealthy", st.Status)
	assert.Equal(t, "down", st.Database)
}

func TestService_NilPinger(t *testing.T) {
	svc := NewService(nil, nil, nil)
	assert.False(t, svc.IsHealthy(context.Background()))
}
