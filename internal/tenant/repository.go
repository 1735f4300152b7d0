package tenant

import (
	"context"
	"errors"
)

var (
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrSubdomainTaken   = errors.New("subdomain already in use")
	ErrInvalidName      = errors.New("tenant name is required")
	ErrInvalidSubdomain = errors.New("invalid subdomain")
	ErrTenantNotActive  = errors.New("tenant is not active")
)

// Repository defines the interface for tenant storage
type Repository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
	SetStatus(ctx context.Context, id string, status Status, isActive bool) error
	SoftDelete(ctx context.Context, id string) error
	HardDelete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*Tenant, error)
}
