package auth

import (
	"context"
	"fmt"
	"strings"
)

// AdminService carries the role-management operations used by administrators.
// Input validation happens here; persistence stays behind the Store.
type AdminService struct {
	store Store
}

func NewAdminService(store Store) (*AdminService, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidInput)
	}
	return &AdminService{store: store}, nil
}

func (s *AdminService) CreateOrganization(ctx context.Context, name string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}
	org := &Organization{Name: name}
	if err := s.store.Organizations(ctx).Create(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *AdminService) ListOrganizations(ctx context.Context) ([]*Organization, error) {
	return s.store.Organizations(ctx).List(ctx)
}

func (s *AdminService) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	return s.store.Organizations(ctx).Find(ctx, id)
}

func (s *AdminService) CreateUser(ctx context.Context, organizationID, username, email, password, roleID string) (*User, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	password = strings.TrimSpace(password)
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email != "" && !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &User{
		OrganizationID: strings.TrimSpace(organizationID),
		Username:       username,
		Email:          email,
		PasswordHash:   hash,
		RoleID:         strings.TrimSpace(roleID),
		Status:         UserStatusActive,
	}
	if user.RoleID != "" {
		role, err := s.store.Roles(ctx).Find(ctx, user.RoleID)
		if err != nil {
			return nil, err
		}
		user.LegacyRole = role.Name
	}
	if err := s.store.Users(ctx).Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AdminService) ListUsers(ctx context.Context, organizationID string) ([]*User, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	return s.store.Users(ctx).ListByOrg(ctx, organizationID)
}

func (s *AdminService) CreateRole(ctx context.Context, name, description string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	role := &Role{Name: name, Description: strings.TrimSpace(description)}
	if err := s.store.Roles(ctx).Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *AdminService) ListRoles(ctx context.Context) ([]*Role, error) {
	return s.store.Roles(ctx).List(ctx)
}

// SetRolePermissions replaces a role's permission set. Duplicates collapse so
// recomputing the effective set stays idempotent.
func (s *AdminService) SetRolePermissions(ctx context.Context, roleID string, permissions []string) error {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return fmt.Errorf("%w: role_id is required", ErrInvalidInput)
	}
	if _, err := s.store.Roles(ctx).Find(ctx, roleID); err != nil {
		return err
	}
	return s.store.Permissions(ctx).SetForRole(ctx, roleID, dedupeStrings(permissions))
}

// AssignRole points a user at a role, keeping the legacy role name in step so
// both representations stay coherent during the migration window.
func (s *AdminService) AssignRole(ctx context.Context, userID, roleID string) (*User, error) {
	userID = strings.TrimSpace(userID)
	roleID = strings.TrimSpace(roleID)
	if userID == "" || roleID == "" {
		return nil, fmt.Errorf("%w: user_id and role_id are required", ErrInvalidInput)
	}
	role, err := s.store.Roles(ctx).Find(ctx, roleID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Users(ctx).Update(ctx, userID, UserUpdate{RoleID: &role.ID})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AdminService) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.Permissions(ctx).List(ctx)
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
