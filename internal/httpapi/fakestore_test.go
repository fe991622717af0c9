package httpapi

import (
	"context"
	"strings"
	"sync"
	"time"

	"curamed.org/internal/auth"
	"curamed.org/internal/ids"
)

// fakeStore is an in-memory auth.Store for handler tests.
type fakeStore struct {
	mu        sync.Mutex
	orgs      map[string]*auth.Organization
	users     map[string]*auth.User
	roles     map[string]*auth.Role
	perms     map[string]auth.Permission // by key
	rolePerms map[string][]string        // roleID -> permission keys
	audits    []*auth.AuditEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orgs:      make(map[string]*auth.Organization),
		users:     make(map[string]*auth.User),
		roles:     make(map[string]*auth.Role),
		perms:     make(map[string]auth.Permission),
		rolePerms: make(map[string][]string),
	}
}

func (s *fakeStore) Organizations(context.Context) auth.OrganizationStore { return (*fakeOrgs)(s) }
func (s *fakeStore) Users(context.Context) auth.UserStore                 { return (*fakeUsers)(s) }
func (s *fakeStore) Roles(context.Context) auth.RoleStore                 { return (*fakeRoles)(s) }
func (s *fakeStore) Permissions(context.Context) auth.PermissionStore     { return (*fakePerms)(s) }
func (s *fakeStore) Audit(context.Context) auth.AuditStore                { return (*fakeAudit)(s) }

type fakeOrgs fakeStore

func (s *fakeOrgs) Create(_ context.Context, org *auth.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if org.ID == "" {
		org.ID = ids.New()
	}
	org.CreatedAt = time.Now()
	cp := *org
	s.orgs[org.ID] = &cp
	return nil
}

func (s *fakeOrgs) Find(_ context.Context, id string) (*auth.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (s *fakeOrgs) List(_ context.Context) ([]*auth.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*auth.Organization
	for _, org := range s.orgs {
		cp := *org
		res = append(res, &cp)
	}
	return res, nil
}

type fakeUsers fakeStore

func (s *fakeUsers) Create(_ context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.Status == "" {
		u.Status = auth.UserStatusActive
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeUsers) Find(_ context.Context, id string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUsers) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *fakeUsers) ListByOrg(_ context.Context, orgID string) ([]*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*auth.User
	for _, u := range s.users {
		if u.OrganizationID == orgID {
			cp := *u
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (s *fakeUsers) Update(_ context.Context, userID string, upd auth.UserUpdate) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Status != nil {
		u.Status = *upd.Status
	}
	if upd.RoleID != nil {
		u.RoleID = *upd.RoleID
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUsers) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (s *fakeUsers) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	return nil
}

type fakeRoles fakeStore

func (s *fakeRoles) Create(_ context.Context, role *auth.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role.ID == "" {
		role.ID = ids.New()
	}
	cp := *role
	s.roles[role.ID] = &cp
	return nil
}

func (s *fakeRoles) Find(_ context.Context, id string) (*auth.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *role
	return &cp, nil
}

func (s *fakeRoles) FindByName(_ context.Context, name string) (*auth.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, role := range s.roles {
		if strings.EqualFold(role.Name, name) {
			cp := *role
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *fakeRoles) List(_ context.Context) ([]*auth.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*auth.Role
	for _, role := range s.roles {
		cp := *role
		res = append(res, &cp)
	}
	return res, nil
}

func (s *fakeRoles) Update(_ context.Context, roleID string, upd auth.RoleUpdate) (*auth.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[roleID]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if upd.Name != nil {
		role.Name = *upd.Name
	}
	if upd.Description != nil {
		role.Description = *upd.Description
	}
	cp := *role
	return &cp, nil
}

func (s *fakeRoles) Delete(_ context.Context, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, roleID)
	return nil
}

type fakePerms fakeStore

func (s *fakePerms) Ensure(_ context.Context, perms []auth.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range perms {
		if _, ok := s.perms[p.Key]; ok {
			continue
		}
		if p.ID == "" {
			p.ID = ids.New()
		}
		s.perms[p.Key] = p
	}
	return nil
}

func (s *fakePerms) List(_ context.Context) ([]auth.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []auth.Permission
	for _, p := range s.perms {
		res = append(res, p)
	}
	return res, nil
}

func (s *fakePerms) SetForRole(_ context.Context, roleID string, permKeys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for _, key := range permKeys {
		if _, ok := s.perms[key]; ok {
			keys = append(keys, key)
		}
	}
	s.rolePerms[roleID] = keys
	return nil
}

func (s *fakePerms) PermissionsForRole(_ context.Context, roleID string) ([]auth.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []auth.Permission
	for _, key := range s.rolePerms[roleID] {
		if p, ok := s.perms[key]; ok {
			res = append(res, p)
		}
	}
	return res, nil
}

type fakeAudit fakeStore

func (s *fakeAudit) Append(_ context.Context, entry *auth.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	cp := *entry
	s.audits = append(s.audits, &cp)
	return nil
}

func (s *fakeStore) auditEntries() []*auth.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*auth.AuditEntry(nil), s.audits...)
}
