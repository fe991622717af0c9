package auth

import (
	"context"
	"errors"
)

// Clinical permission catalog, seeded at deployment.
const (
	PermPatientsView      = "patients.view"
	PermPatientsEdit      = "patients.edit"
	PermRecordsView       = "records.view"
	PermPrescriptionsEdit = "prescriptions.write"
	PermLabsView          = "labs.view"
	PermBillingView       = "billing.view"
	PermSchedulingEdit    = "scheduling.edit"
	PermRBACManage        = "rbac.manage"
)

var BuiltinPermissions = []Permission{
	{Key: PermPatientsView, Description: "View patient records"},
	{Key: PermPatientsEdit, Description: "Create and edit patient records"},
	{Key: PermRecordsView, Description: "View clinical visit records"},
	{Key: PermPrescriptionsEdit, Description: "Write prescriptions"},
	{Key: PermLabsView, Description: "View lab results"},
	{Key: PermBillingView, Description: "View billing information"},
	{Key: PermSchedulingEdit, Description: "Manage appointment schedules"},
	{Key: PermRBACManage, Description: "Manage organizations, users, roles and permissions"},
}

// EnsureBuiltins makes the predefined permission catalog exist; repeated runs
// are idempotent.
func EnsureBuiltins(ctx context.Context, store Store) error {
	return store.Permissions(ctx).Ensure(ctx, BuiltinPermissions)
}

// SeedSuperAdminRole creates the reserved super-admin role when missing and
// grants it the complete catalog. The bypass in role checks is structural
// here: the permission table states super-admin's reach explicitly.
func SeedSuperAdminRole(ctx context.Context, store Store, roleName string) (*Role, error) {
	roles := store.Roles(ctx)
	role, err := roles.FindByName(ctx, roleName)
	if errors.Is(err, ErrNotFound) {
		role = &Role{Name: roleName, Description: "Platform super-administrator"}
		if err := roles.Create(ctx, role); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(BuiltinPermissions))
	for _, p := range BuiltinPermissions {
		keys = append(keys, p.Key)
	}
	if err := store.Permissions(ctx).SetForRole(ctx, role.ID, keys); err != nil {
		return nil, err
	}
	return role, nil
}
