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

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasa/darasa/internal/audit"
	"github.com/darasa/darasa/internal/eventbus"
	"github.com/darasa/darasa/internal/health"
	"github.com/darasa/darasa/internal/provisioning"
	"github.com/darasa/darasa/internal/tenant"
)

const testSecret = "test-admin-secret"

type fakeRepo struct {
	mu      sync.Mutex
	tenants map[string]*tenant.Tenant
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{tenants: make(map[string]*tenant.Tenant)}
}

func (r *fakeRepo) Create(_ context.Context, t *tenant.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *t
	r.tenants[t.ID] = &clone
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *fakeRepo) GetBySubdomain(_ context.Context, subdomain string) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.Subdomain == subdomain && t.DeletedAt == nil {
			clone := *t
			return &clone, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (r *fakeRepo) Update(_ context.Context, t *tenant.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[t.ID]; !ok {
		return tenant.ErrTenantNotFound
	}
	clone := *t
	r.tenants[t.ID] = &clone
	return nil
}

func (r *fakeRepo) SetStatus(_ context.Context, id string, status tenant.Status, isActive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return tenant.ErrTenantNotFound
	}
	t.Status = status
	t.IsActive = isActive
	return nil
}

func (r *fakeRepo) SoftDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok || t.DeletedAt != nil {
		return tenant.ErrTenantNotFound
	}
	now := time.Now()
	t.DeletedAt = &now
	t.Status = tenant.StatusDeleted
	t.IsActive = false
	return nil
}

func (r *fakeRepo) HardDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[id]; !ok {
		return tenant.ErrTenantNotFound
	}
	delete(r.tenants, id)
	return nil
}

func (r *fakeRepo) List(_ context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*tenant.Tenant
	for _, t := range r.tenants {
		if t.DeletedAt == nil {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

type fakePinger struct {
	mu  sync.Mutex
	err error
}

func (p *fakePinger) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakePinger) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

type testEnv struct {
	router  http.Handler
	repo    *fakeRepo
	pinger  *fakePinger
	health  *health.Service
	service *tenant.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	bus := eventbus.New()
	repo := newFakeRepo()
	service := tenant.NewService(repo, bus, audit.NewSlogLogger())

	tracker := provisioning.NewTracker(bus, nil)
	pinger := &fakePinger{}
	healthService := health.NewService(pinger, nil, tracker)

	handler := NewHandler(service, tracker, healthService, AuthConfig{
		TokenSecret:   testSecret,
		TokenLifetime: time.Hour,
	})

	limiter := NewRateLimiter(1000, 1000)
	t.Cleanup(limiter.Stop)

	return &testEnv{
		router:  NewRouter(handler, limiter),
		repo:    repo,
		pinger:  pinger,
		health:  healthService,
		service: service,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if authed {
		token, err := IssueAdminToken(testSecret, "ops@darasa", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// TestPurpose: Validates the liveness contract: /health answers 200 whether
// or not the database is reachable, with the state carried in the body.
// Scope: HTTP Handler Test
// Expected: 200 "healthy" while the database answers, 200 "unhealthy" when
// it is down; never a non-200 status.
// Test Case ID: HTTP-01
// Metadata:
//   - Category: Health
//   - Priority: High
//   - Tags: liveness, probes
func TestHealthEndpoint_Always200(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])

	env.pinger.setErr(assert.AnError)
	rec = env.do(t, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unhealthy", decodeBody(t, rec)["status"])
}

// TestPurpose: Validates that readiness, unlike liveness, reports through
// the status code and flips to 503 once shutdown begins.
// Scope: HTTP Handler Test
// Expected: 200 while ready; 503 after MarkShuttingDown.
// Test Case ID: HTTP-02
// Metadata:
//   - Category: Health
//   - Priority: High
//   - Tags: readiness, shutdown, probes
func TestReadyEndpoint_503DuringShutdown(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health/ready", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)

	env.health.MarkShuttingDown()
	rec = env.do(t, http.MethodGet, "/health/ready", "", false)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// TestPurpose: Validates that the tenant API is fail-closed: every /api/v1
// route rejects missing, malformed, and wrongly-signed tokens.
// Scope: HTTP Handler Test
// Security: Broken Authentication (CWE-287)
// Expected: 401 without a valid bearer token; 200 with one.
// Test Case ID: HTTP-03
// Metadata:
//   - Category: Auth
//   - Priority: High
//   - Tags: security, jwt, control-plane
func TestAdminAuth_FailClosed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/tenants", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec2 := httptest.NewRecorder()
	env.router.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)

	// Token signed with a different secret must be rejected.
	forged, err := IssueAdminToken("wrong-secret", "intruder", time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/tenants", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec3 := httptest.NewRecorder()
	env.router.ServeHTTP(rec3, req)
	assert.Equal(t, http.StatusUnauthorized, rec3.Code)

	rec4 := env.do(t, http.MethodGet, "/api/v1/tenants", "", true)
	assert.Equal(t, http.StatusOK, rec4.Code)
}

// TestPurpose: Validates tenant registration over HTTP: 202 on success with
// a pending record, 409 on a duplicate subdomain, 400 on bad input.
// Scope: HTTP Handler Test
// Expected: The 202 body carries the pending tenant; the duplicate and
// invalid cases never create a record.
// Test Case ID: HTTP-04
// Metadata:
//   - Category: Tenant
//   - Priority: High
//   - Tags: provisioning, async, validation
func TestCreateTenant(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/tenants",
		`{"name":"Acme School","subdomain":"acme"}`, true)
	require.Equal(t, http.StatusAccepted, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Acme School", body["name"])
	assert.Equal(t, string(tenant.StatusPending), body["status"])
	assert.NotEmpty(t, body["id"])
	assert.NotEmpty(t, body["database_name"])

	// Same subdomain again.
	rec = env.do(t, http.MethodPost, "/api/v1/tenants",
		`{"name":"Copycat","subdomain":"acme"}`, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/tenants",
		`{"name":"Bad","subdomain":"Not A Subdomain!"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/tenants", `{not json`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestPurpose: Validates the provisioning status endpoint for a tenant with
// no in-flight setup, and 404 behavior for unknown tenants.
// Scope: HTTP Handler Test
// Expected: An existing pending tenant reports setup_state "not_started";
// an unknown ID returns 404.
// Test Case ID: HTTP-05
// Metadata:
//   - Category: Provisioning
//   - Priority: Medium
//   - Tags: status, observability
func TestProvisioningStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/tenants",
		`{"name":"Greenwood","subdomain":"greenwood"}`, true)
	require.Equal(t, http.StatusAccepted, rec.Code)
	id := decodeBody(t, rec)["id"].(string)

	rec = env.do(t, http.MethodGet, "/api/v1/tenants/"+id+"/provisioning", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, id, body["tenant_id"])
	assert.Equal(t, string(tenant.StatusPending), body["tenant_status"])
	assert.Equal(t, string(provisioning.StateNotStarted), body["setup_state"])

	rec = env.do(t, http.MethodGet, "/api/v1/tenants/no-such-tenant/provisioning", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestPurpose: Validates API key rotation over HTTP: active tenants get a
// fresh raw key, inactive ones are refused.
// Scope: HTTP Handler Test
// Expected: 409 while the tenant is pending; 200 with a non-empty api_key
// once active; the key verifies against the stored hash.
// Test Case ID: HTTP-06
// Metadata:
//   - Category: Tenant
//   - Priority: High
//   - Tags: security, api-key
func TestRotateAPIKeyEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/tenants",
		`{"name":"Hilltop","subdomain":"hilltop"}`, true)
	require.Equal(t, http.StatusAccepted, rec.Code)
	id := decodeBody(t, rec)["id"].(string)

	// Pending tenant: refused.
	rec = env.do(t, http.MethodPost, "/api/v1/tenants/"+id+"/apikey", "", true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.NoError(t, env.repo.SetStatus(context.Background(), id, tenant.StatusActive, true))

	rec = env.do(t, http.MethodPost, "/api/v1/tenants/"+id+"/apikey", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	raw := decodeBody(t, rec)["api_key"].(string)
	require.NotEmpty(t, raw)

	stored, err := env.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, tenant.VerifyAPIKey(raw, stored.APIKeyHash))
}

// TestPurpose: Validates the two deletion endpoints: soft delete keeps the
// record but hides it from lists, permanent delete removes it entirely.
// Scope: HTTP Handler Test
// Expected: DELETE returns 200 and the tenant stops appearing in GET by
// subdomain; DELETE /permanent makes GET by ID return 404.
// Test Case ID: HTTP-07
// Metadata:
//   - Category: Tenant
//   - Priority: Medium
//   - Tags: deletion, lifecycle
func TestDeleteEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/tenants",
		`{"name":"Closing School","subdomain":"closing"}`, true)
	require.Equal(t, http.StatusAccepted, rec.Code)
	id := decodeBody(t, rec)["id"].(string)

	rec = env.do(t, http.MethodDelete, "/api/v1/tenants/"+id, "", true)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Soft-deleted: still fetchable by ID, marked deleted.
	rec = env.do(t, http.MethodGet, "/api/v1/tenants/"+id, "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(tenant.StatusDeleted), decodeBody(t, rec)["status"])

	rec = env.do(t, http.MethodDelete, "/api/v1/tenants/"+id+"/permanent", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/tenants/"+id, "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestPurpose: Validates that the per-IP token bucket throttles a client
// that exhausts its burst.
// Scope: HTTP Middleware Test
// Expected: The first request passes, the second from the same IP inside
// the same window gets 429; a different IP is unaffected.
// Test Case ID: HTTP-08
// Metadata:
//   - Category: RateLimit
//   - Priority: Medium
//   - Tags: throttling
func TestRateLimiter_PerIP(t *testing.T) {
	rl := NewRateLimiter(0.1, 1)
	t.Cleanup(rl.Stop)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}
