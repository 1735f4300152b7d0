package audit

import (
	"context"
	"testing"
)

// TestPurpose: Validates that sensitive keys are correctly identified as secrets to prevent them from being logged in plaintext.
// Scope: Unit Test
// Security: Data Masking and Leakage Prevention (CWE-532)
// Expected: Returns true for keys containing 'password', 'token', 'secret', etc., and false for non-sensitive keys.
// Test Case ID: AUD-01
func TestAudit_IsSecret(t *testing.T) {
	tests := []struct {
		key      string
		isSecret bool
	}{
		{"password", true},
		{"Password", true},
		{"PASSWORD", true},
		{"token", true},
		{"access_token", true},
		{"secret", true},
		{"api_key", true},
		{"api_key_hash", true},
		{"credential", true},
		{"tenant_id", false},
		{"subdomain", false},
		{"database_name", false},
		{"status", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := isSecret(tt.key); got != tt.isSecret {
				t.Errorf("isSecret(%q) = %v, want %v", tt.key, got, tt.isSecret)
			}
		})
	}
}

// TestPurpose: Validates that Redact masks secret values without mutating
// the caller's map, so a sink cannot leak what another sink redacted.
// Scope: Unit Test
// Security: Data Masking and Leakage Prevention (CWE-532)
// Expected: Secret keys become [REDACTED] in the copy; the input map is
// untouched; empty input yields nil.
// Test Case ID: AUD-02
func TestAudit_Redact(t *testing.T) {
	in := map[string]any{
		"api_key":   "dk_raw_value",
		"subdomain": "acme",
	}

	out := Redact(in)
	if out["api_key"] != "[REDACTED]" {
		t.Errorf("api_key not redacted: %v", out["api_key"])
	}
	if out["subdomain"] != "acme" {
		t.Errorf("non-secret value changed: %v", out["subdomain"])
	}
	if in["api_key"] != "dk_raw_value" {
		t.Errorf("input map was mutated: %v", in["api_key"])
	}

	if Redact(nil) != nil {
		t.Error("Redact(nil) should be nil")
	}
}

type countingLogger struct{ n int }

func (c *countingLogger) Log(context.Context, Event) { c.n++ }

// TestPurpose: Validates that the fanout sink delivers each event to every
// underlying sink.
// Scope: Unit Test
// Expected: Both sinks see both events.
// Test Case ID: AUD-03
func TestAudit_Fanout(t *testing.T) {
	a, b := &countingLogger{}, &countingLogger{}
	f := Fanout{a, b}

	f.Log(context.Background(), Event{Type: TypeTenantCreated})
	f.Log(context.Background(), Event{Type: TypeTenantDeleted})

	if a.n != 2 || b.n != 2 {
		t.Errorf("fanout delivered %d/%d events, want 2/2", a.n, b.n)
	}
}
