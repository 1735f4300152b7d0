package tenant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveDatabaseName(t *testing.T) {
	tests := []struct {
		name      string
		subdomain string
		id        string
		want      string
	}{
		{"plain", "acme", "0198aa01-0000-7000-8000-000000000000", "darasa_acme_0198aa01"},
		{"uppercase folded", "Acme", "0198aa01-0000-7000-8000-000000000000", "darasa_acme_0198aa01"},
		{"hyphens mapped", "st-marys", "0198aa01-0000-7000-8000-000000000000", "darasa_st_marys_0198aa01"},
		{"short id kept whole", "acme", "abc", "darasa_acme_abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveDatabaseName(tt.subdomain, tt.id))
		})
	}
}

func TestDeriveDatabaseName_Deterministic(t *testing.T) {
	a := DeriveDatabaseName("acme", "0198aa01-0000-7000-8000-000000000000")
	b := DeriveDatabaseName("acme", "0198aa01-0000-7000-8000-000000000000")
	assert.Equal(t, a, b)
}

// TestPurpose: Validates API key issuance and verification round-trip, and
// that verification rejects wrong keys and malformed hashes.
// Scope: Unit Test
// Security: Credential storage (keys stored only as argon2id hashes)
// Expected: Generated key verifies against its own hash and nothing else.
// Test Case ID: KEY-01
func TestAPIKey_GenerateAndVerify(t *testing.T) {
	raw, hash, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(raw, "dk_"))
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	assert.NotContains(t, hash, raw)

	assert.True(t, VerifyAPIKey(raw, hash))
	assert.False(t, VerifyAPIKey("dk_wrong", hash))
	assert.False(t, VerifyAPIKey(raw, "$argon2id$garbage"))
	assert.False(t, VerifyAPIKey(raw, ""))
}

func TestAPIKey_HashesAreSalted(t *testing.T) {
	h1, err := HashAPIKey("dk_fixed")
	require.NoError(t, err)
	h2, err := HashAPIKey("dk_fixed")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.True(t, VerifyAPIKey("dk_fixed", h1))
	assert.True(t, VerifyAPIKey("dk_fixed", h2))
}
