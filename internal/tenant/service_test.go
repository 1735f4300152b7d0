package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/darasa/darasa/internal/audit"
	"github.com/darasa/darasa/internal/eventbus"
	"github.com/darasa/darasa/internal/provisioning"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, t *Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockRepo) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	args := m.Called(ctx, subdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, t *Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRepo) SetStatus(ctx context.Context, id string, status Status, isActive bool) error {
	args := m.Called(ctx, id, status, isActive)
	return args.Error(0)
}

func (m *mockRepo) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockRepo) HardDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockRepo) List(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Tenant), args.Error(1)
}

// TestPurpose: Validates that tenant creation persists a pending record with
// a UUIDv7 ID and a derived database name, then kicks off the provisioning
// chain with exactly those three fields.
// Scope: Unit Test
// Expected: Repository receives a pending tenant; a TenantCreated event for
// it appears on the bus.
// Test Case ID: TEN-01
func TestService_Create(t *testing.T) {
	repo := new(mockRepo)
	bus := eventbus.New()
	svc := NewService(repo, bus, audit.NewSlogLogger())
	ctx := context.Background()

	created := make(chan provisioning.TenantCreated, 1)
	_, err := bus.Subscribe(provisioning.KindTenantCreated, func(_ context.Context, e eventbus.Event) error {
		created <- e.(provisioning.TenantCreated)
		return nil
	})
	require.NoError(t, err)

	repo.On("GetBySubdomain", mock.Anything, "acme").Return(nil, ErrTenantNotFound)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(tn *Tenant) bool {
		uid, err := uuid.Parse(tn.ID)
		if err != nil || uid.Version() != 7 {
			return false
		}
		return tn.Status == StatusPending &&
			!tn.IsActive &&
			tn.DatabaseName == DeriveDatabaseName("acme", tn.ID)
	})).Return(nil)

	tn, err := svc.Create(ctx, "Acme School", "acme", "")
	require.NoError(t, err)
	require.NotNil(t, tn)
	assert.Equal(t, "Acme School", tn.Name)
	assert.Equal(t, StatusPending, tn.Status)

	select {
	case ev := <-created:
		assert.Equal(t, tn.ID, ev.Tenant.ID)
		assert.Equal(t, tn.Name, ev.Tenant.Name)
		assert.Equal(t, tn.DatabaseName, ev.Tenant.DatabaseName)
	case <-time.After(2 * time.Second):
		t.Fatal("TenantCreated never published")
	}

	repo.AssertExpectations(t)
}

func TestService_Create_Validation(t *testing.T) {
	svc := NewService(new(mockRepo), eventbus.New(), audit.NewSlogLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, "", "acme", "")
	assert.Error(t, err)

	for _, bad := range []string{"", "UPPER", "has space", "-leading", "trailing-", "a.b"} {
		_, err := svc.Create(ctx, "Acme", bad, "")
		assert.Error(t, err, "subdomain %q should be rejected", bad)
	}
}

// TestPurpose: Validates the upstream dedup guard: a taken subdomain never
// reaches the provisioning chain.
// Scope: Unit Test
// Expected: ErrSubdomainTaken; no repository create, no event.
// Test Case ID: TEN-02
func TestService_Create_SubdomainTaken(t *testing.T) {
	repo := new(mockRepo)
	bus := eventbus.New()
	svc := NewService(repo, bus, audit.NewSlogLogger())

	publishes := 0
	_, err := bus.Subscribe(provisioning.KindTenantCreated, func(context.Context, eventbus.Event) error {
		publishes++
		return nil
	})
	require.NoError(t, err)

	repo.On("GetBySubdomain", mock.Anything, "acme").Return(&Tenant{ID: "existing", Subdomain: "acme"}, nil)

	_, err = svc.Create(context.Background(), "Acme School", "acme", "")
	assert.ErrorIs(t, err, ErrSubdomainTaken)
	assert.Equal(t, 0, publishes)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_HandleSetupCompleted_ActivatesTenant(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo, eventbus.New(), audit.NewSlogLogger())

	repo.On("SetStatus", mock.Anything, "t1", StatusActive, true).Return(nil)

	ref := provisioning.TenantRef{ID: "t1", Name: "Acme School", DatabaseName: "darasa_acme_0198aa01"}
	err := svc.HandleSetupCompleted(context.Background(), provisioning.NewSetupCompleted(ref, 42*time.Second))
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_HandleSetupFailed_RecordsFailure(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo, eventbus.New(), audit.NewSlogLogger())

	repo.On("SetStatus", mock.Anything, "t1", StatusSetupFailed, false).Return(nil)

	ref := provisioning.TenantRef{ID: "t1", Name: "Acme School", DatabaseName: "darasa_acme_0198aa01"}
	err := svc.HandleSetupFailed(context.Background(), provisioning.NewSetupFailed(ref, provisioning.StageMigrations, assert.AnError))
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

// TestPurpose: Validates API key rotation: only active tenants get keys, the
// stored value is a verifying argon2id hash, and the raw key round-trips.
// Scope: Unit Test
// Security: Credential issuance
// Expected: Raw key returned once; repository holds only the hash.
// Test Case ID: TEN-03
func TestService_RotateAPIKey(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo, eventbus.New(), audit.NewSlogLogger())
	ctx := context.Background()

	active := &Tenant{ID: "t1", Subdomain: "acme", Status: StatusActive, IsActive: true}
	repo.On("GetByID", mock.Anything, "t1").Return(active, nil)

	var storedHash string
	repo.On("Update", mock.Anything, mock.MatchedBy(func(tn *Tenant) bool {
		storedHash = tn.APIKeyHash
		return tn.APIKeyHash != ""
	})).Return(nil)

	raw, err := svc.RotateAPIKey(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, VerifyAPIKey(raw, storedHash))

	pending := &Tenant{ID: "t2", Subdomain: "beta", Status: StatusPending}
	repo.On("GetByID", mock.Anything, "t2").Return(pending, nil)
	_, err = svc.RotateAPIKey(ctx, "t2")
	assert.Error(t, err)
}

func TestService_Delete_PublishesDeletionEvent(t *testing.T) {
	repo := new(mockRepo)
	bus := eventbus.New()
	svc := NewService(repo, bus, audit.NewSlogLogger())

	var deleted []eventbus.Kind
	for _, k := range []eventbus.Kind{provisioning.KindTenantDeleted, provisioning.KindTenantPermanentlyDeleted} {
		kind := k
		_, err := bus.Subscribe(kind, func(_ context.Context, e eventbus.Event) error {
			deleted = append(deleted, e.Kind())
			return nil
		})
		require.NoError(t, err)
	}

	tn := &Tenant{ID: "t1", Subdomain: "acme", DatabaseName: "darasa_acme_0198aa01"}
	repo.On("GetByID", mock.Anything, "t1").Return(tn, nil)
	repo.On("SoftDelete", mock.Anything, "t1").Return(nil)
	repo.On("HardDelete", mock.Anything, "t1").Return(nil)

	require.NoError(t, svc.Delete(context.Background(), "t1"))
	require.NoError(t, svc.PermanentlyDelete(context.Background(), "t1"))

	assert.Equal(t, []eventbus.Kind{
		provisioning.KindTenantDeleted,
		provisioning.KindTenantPermanentlyDeleted,
	}, deleted)
	repo.AssertExpectations(t)
}
