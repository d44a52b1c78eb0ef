package domain

import (
	"fmt"
	"regexp"
)

// tenantIDPattern is the allow-list for tenant identifiers. Anything
// that does not match is rejected outright; identifiers are never
// escaped or rewritten into an acceptable form.
var tenantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// TenantID identifies a tenant. It can only be obtained through
// ParseTenantID, so every value in circulation has passed validation.
type TenantID string

// ParseTenantID validates a raw tenant identifier against the
// allow-list pattern. Invalid identifiers return ErrInvalidInput.
func ParseTenantID(raw string) (TenantID, error) {
	if !tenantIDPattern.MatchString(raw) {
		return "", fmt.Errorf("%w: tenant id %q does not match allowed pattern", ErrInvalidInput, raw)
	}
	return TenantID(raw), nil
}

// String returns the identifier as a plain string.
func (t TenantID) String() string {
	return string(t)
}

// Capability is a permission granted to a tenant context by the
// upstream authorization layer. Authorization decisions are made
// before the boundary; the core only checks membership.
type Capability string

const (
	// CapabilitySearch allows retrieval and grounded answers.
	CapabilitySearch Capability = "search"

	// CapabilityIngest allows uploading documents.
	CapabilityIngest Capability = "ingest"

	// CapabilityAdmin allows maintenance operations such as re-indexing
	// and document deletion.
	CapabilityAdmin Capability = "admin"
)

// ParseCapability validates a capability name.
func ParseCapability(raw string) (Capability, error) {
	switch Capability(raw) {
	case CapabilitySearch, CapabilityIngest, CapabilityAdmin:
		return Capability(raw), nil
	}
	return "", fmt.Errorf("%w: unknown capability %q", ErrInvalidInput, raw)
}

// TenantContext carries a validated tenant identity, the acting
// principal and the capability set granted upstream. It is immutable
// after construction and crosses the service boundary exactly once
// per request.
type TenantContext struct {
	tenant TenantID
	actor  string
	caps   map[Capability]struct{}
}

// NewTenantContext builds an immutable context from a validated
// tenant identifier.
func NewTenantContext(tenant TenantID, actor string, caps ...Capability) TenantContext {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return TenantContext{tenant: tenant, actor: actor, caps: set}
}

// Tenant returns the tenant identity.
func (tc TenantContext) Tenant() TenantID {
	return tc.tenant
}

// Actor returns the acting principal, for audit fields.
func (tc TenantContext) Actor() string {
	return tc.actor
}

// Can reports whether the context holds the given capability.
func (tc TenantContext) Can(c Capability) bool {
	_, ok := tc.caps[c]
	return ok
}

// Require returns ErrCapabilityDenied unless the context holds the
// given capability.
func (tc TenantContext) Require(c Capability) error {
	if !tc.Can(c) {
		return fmt.Errorf("%w: %s", ErrCapabilityDenied, c)
	}
	return nil
}
