package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseTenantID_Valid tests accepted tenant identifiers
func TestParseTenantID_Valid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"simple", "acme"},
		{"with digits", "tenant42"},
		{"with hyphen", "acme-legal"},
		{"with underscore", "acme_legal"},
		{"single character", "a"},
		{"max length", "a" + strings.Repeat("b", 63)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseTenantID(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, id.String())
		})
	}
}

// TestParseTenantID_Rejected tests that hostile identifiers are rejected, never escaped
func TestParseTenantID_Rejected(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"leading hyphen", "-acme"},
		{"whitespace", "acme corp"},
		{"sql metacharacters", `acme" OR 1=1 --`},
		{"path traversal", "../other-tenant"},
		{"json injection", `acme"},{"key":"tenant_id","match":{"value":"victim`},
		{"wildcard", "acme*"},
		{"unicode", "acmé"},
		{"too long", strings.Repeat("a", 65)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTenantID(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

// TestTenantContext_Capabilities tests capability membership checks
func TestTenantContext_Capabilities(t *testing.T) {
	tenant, err := ParseTenantID("acme")
	require.NoError(t, err)

	tc := NewTenantContext(tenant, "analyst@acme", CapabilitySearch, CapabilityIngest)

	assert.Equal(t, tenant, tc.Tenant())
	assert.Equal(t, "analyst@acme", tc.Actor())
	assert.True(t, tc.Can(CapabilitySearch))
	assert.True(t, tc.Can(CapabilityIngest))
	assert.False(t, tc.Can(CapabilityAdmin))
}

// TestTenantContext_Require tests the capability guard
func TestTenantContext_Require(t *testing.T) {
	tenant, err := ParseTenantID("acme")
	require.NoError(t, err)

	tc := NewTenantContext(tenant, "analyst@acme", CapabilitySearch)

	assert.NoError(t, tc.Require(CapabilitySearch))

	err = tc.Require(CapabilityAdmin)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapabilityDenied))
}

// TestParseCapability tests capability name validation
func TestParseCapability(t *testing.T) {
	for _, valid := range []string{"search", "ingest", "admin"} {
		c, err := ParseCapability(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, string(c))
	}

	_, err := ParseCapability("superuser")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

// TestValidateIdentifier tests the filter identifier allow-list
func TestValidateIdentifier(t *testing.T) {
	assert.NoError(t, ValidateIdentifier("0b3c9a52-7a1f-4b6e-9f63-2f1f2a9d8e11"))
	assert.NoError(t, ValidateIdentifier("text-embedding-3-small"))
	assert.NoError(t, ValidateIdentifier("model:v1.2"))

	for _, hostile := range []string{"", `doc" OR "1"="1`, "doc id", "{\"must\":[]}", "-leading"} {
		err := ValidateIdentifier(hostile)
		require.Error(t, err, "identifier %q should be rejected", hostile)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	}
}
