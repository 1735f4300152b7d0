package tenant

import (
	"fmt"
	"strings"
	"time"
)

// Tenant represents one isolated school on the platform. DatabaseName is
// derived once at creation and never recomputed: every later physical
// operation keys off it, so tenants are never renamed after provisioning
// begins.
type Tenant struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Subdomain    string         `json:"subdomain"`
	CustomDomain string         `json:"custom_domain,omitempty"`
	DatabaseName string         `json:"database_name"`
	Status       Status         `json:"status"`
	IsActive     bool           `json:"is_active"`
	Settings     map[string]any `json:"settings,omitempty"`
	APIKeyHash   string         `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    *time.Time     `json:"deleted_at,omitempty"`
}

// Status of a tenant's lifecycle.
type Status string

const (
	StatusPending     Status = "pending"
	StatusActive      Status = "active"
	StatusSetupFailed Status = "setup_failed"
	StatusDeleted     Status = "deleted"
)

// DeriveDatabaseName builds the physical database name for a tenant from
// its subdomain and ID. Deterministic for a given pair; the short ID suffix
// keeps recycled subdomains from colliding with an undropped database.
func DeriveDatabaseName(subdomain, id string) string {
	slug := strings.ToLower(subdomain)
	var b strings.Builder
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	suffix := strings.ReplaceAll(id, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("darasa_%s_%s", b.String(), suffix)
}
