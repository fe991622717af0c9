package auth

import "strings"

// Principal is the resolved, request-scoped identity used by every downstream
// check. It is constructed fresh per request from a session or a token and is
// never persisted.
type Principal struct {
	ID                    string `json:"id"`
	Username              string `json:"username"`
	Role                  string `json:"role"`
	RoleID                string `json:"role_id,omitempty"`
	OrganizationID        string `json:"organization_id,omitempty"`
	CurrentOrganizationID string `json:"current_organization_id,omitempty"`
}

// PrincipalFromUser builds the request view of a user record.
func PrincipalFromUser(u User) Principal {
	return Principal{
		ID:                    u.ID,
		Username:              u.Username,
		Role:                  u.LegacyRole,
		RoleID:                u.RoleID,
		OrganizationID:        u.OrganizationID,
		CurrentOrganizationID: u.OrganizationID,
	}
}

// EffectiveOrganization is the tenant the principal currently acts as. It
// defaults to the home organization unless explicitly switched.
func (p Principal) EffectiveOrganization() string {
	if p.CurrentOrganizationID != "" {
		return p.CurrentOrganizationID
	}
	return p.OrganizationID
}

// PlatformLevel reports whether the principal has no home tenant.
func (p Principal) PlatformLevel() bool {
	return p.OrganizationID == ""
}

// Summary returns the sanitized client-facing view.
func (p Principal) Summary() UserSummary {
	return UserSummary{
		ID:             p.ID,
		Username:       p.Username,
		Role:           p.Role,
		OrganizationID: p.OrganizationID,
	}
}

// ScopeGuard enforces tenant isolation. It is evaluated independently of role
// and permission checks so a permission grant can never leak across tenants.
type ScopeGuard struct {
	superAdminRole string
}

// NewScopeGuard binds the guard to the reserved super-admin role name.
func NewScopeGuard(superAdminRole string) ScopeGuard {
	return ScopeGuard{superAdminRole: strings.ToLower(strings.TrimSpace(superAdminRole))}
}

// SameOrganization reports whether the principal may act on a resource owned
// by resourceOrgID. Platform-level super-admins have no home tenant to be
// isolated from and are exempt.
func (g ScopeGuard) SameOrganization(p Principal, resourceOrgID string) bool {
	if p.PlatformLevel() && strings.EqualFold(p.Role, g.superAdminRole) {
		return true
	}
	eff := p.EffectiveOrganization()
	return eff != "" && eff == resourceOrgID
}
