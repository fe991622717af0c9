package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Engine answers role and permission questions for a resolved principal.
//
// Role checks honor an unconditional super-admin bypass. HasPermission does
// not: the super-admin role is granted the full catalog at seed time, so its
// reach stays visible and reviewable in the permission table instead of being
// hidden in a code path.
type Engine struct {
	store           Store
	superAdminRole  string
	defaultRoleName string
}

// NewEngine constructs the RBAC engine.
func NewEngine(store Store, superAdminRole, defaultRoleName string) (*Engine, error) {
	if store == nil {
		return nil, errors.New("auth: rbac store is required")
	}
	superAdminRole = strings.ToLower(strings.TrimSpace(superAdminRole))
	if superAdminRole == "" {
		return nil, errors.New("auth: super-admin role name is required")
	}
	return &Engine{
		store:           store,
		superAdminRole:  superAdminRole,
		defaultRoleName: strings.TrimSpace(defaultRoleName),
	}, nil
}

// SuperAdminRole returns the reserved role name honored by the bypass.
func (e *Engine) SuperAdminRole() string { return e.superAdminRole }

func (e *Engine) isSuperAdmin(p Principal) bool {
	return strings.EqualFold(p.Role, e.superAdminRole)
}

// RequireRole reports whether the principal holds the role. Super-admins pass
// regardless of the requested role.
func (e *Engine) RequireRole(p Principal, role string) bool {
	if e.isSuperAdmin(p) {
		return true
	}
	return strings.EqualFold(p.Role, role)
}

// RequireAnyRole reports whether the principal holds any of the roles.
func (e *Engine) RequireAnyRole(p Principal, roles []string) bool {
	if e.isSuperAdmin(p) {
		return true
	}
	for _, role := range roles {
		if strings.EqualFold(p.Role, role) {
			return true
		}
	}
	return false
}

// HasPermission derives the effective permission set via
// roleID -> role_permissions -> permissions on every call, so role edits are
// visible to new requests without a restart. A principal without a role holds
// no permissions.
func (e *Engine) HasPermission(ctx context.Context, p Principal, key string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, fmt.Errorf("%w: permission key is required", ErrInvalidInput)
	}
	if p.RoleID == "" {
		return false, nil
	}
	perms, err := e.store.Permissions(ctx).PermissionsForRole(ctx, p.RoleID)
	if err != nil {
		return false, err
	}
	for _, perm := range perms {
		if perm.Key == key {
			return true, nil
		}
	}
	return false, nil
}

// ResolveRoleReference maps the legacy string-role / numeric-roleId duality
// onto one canonical Role record. Priority: explicit RoleID, then the legacy
// role name, then the configured default role as a remediation policy.
func (e *Engine) ResolveRoleReference(ctx context.Context, u *User) (*Role, error) {
	roles := e.store.Roles(ctx)
	if u.RoleID != "" {
		return roles.Find(ctx, u.RoleID)
	}
	if u.LegacyRole != "" {
		role, err := roles.FindByName(ctx, u.LegacyRole)
		if err == nil {
			return role, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	if e.defaultRoleName == "" {
		return nil, ErrNotFound
	}
	return roles.FindByName(ctx, e.defaultRoleName)
}
