package httpapi

import (
	"net/http"
	"strings"

	"curamed.org/internal/auth"
)

func (a *API) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.ensurePermission(w, r, auth.PermRBACManage)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		org, err := a.admin.CreateOrganization(r.Context(), req.Name)
		if err != nil {
			writeError(w, errorStatus(err, auth.ErrNotFound, auth.ErrInvalidInput, auth.ErrConflict), err.Error())
			return
		}
		_ = a.recorder.Record(r.Context(), principal, "organization.create", "organization", org.ID, map[string]string{"name": org.Name})
		writeJSON(w, http.StatusCreated, org)
	case http.MethodGet:
		orgs, err := a.admin.ListOrganizations(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list organizations")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"organizations": orgs})
	default:
		methodNotAllowed(w, http.MethodPost, http.MethodGet)
	}
}

// handleOrganizationScoped dispatches /v1/organizations/{id} and
// /v1/organizations/{id}/users.
func (a *API) handleOrganizationScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/organizations/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	orgID := parts[0]

	switch {
	case len(parts) == 1:
		a.getOrganization(w, r, orgID)
	case len(parts) == 2 && parts[1] == "users":
		a.organizationUsers(w, r, orgID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (a *API) getOrganization(w http.ResponseWriter, r *http.Request, orgID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if _, ok := a.ensurePermission(w, r, auth.PermRBACManage); !ok {
		return
	}
	org, err := a.admin.GetOrganization(r.Context(), orgID)
	if err != nil {
		writeError(w, errorStatus(err, auth.ErrNotFound, auth.ErrInvalidInput, auth.ErrConflict), "organization not found")
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (a *API) organizationUsers(w http.ResponseWriter, r *http.Request, orgID string) {
	principal, ok := a.ensurePermission(w, r, auth.PermRBACManage)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
			RoleID   string `json:"role_id"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.admin.CreateUser(r.Context(), orgID, req.Username, req.Email, req.Password, req.RoleID)
		if err != nil {
			writeError(w, errorStatus(err, auth.ErrNotFound, auth.ErrInvalidInput, auth.ErrConflict), err.Error())
			return
		}
		_ = a.recorder.Record(r.Context(), principal, "user.create", "user", user.ID, map[string]string{
			"username":        user.Username,
			"organization_id": orgID,
		})
		writeJSON(w, http.StatusCreated, user)
	case http.MethodGet:
		users, err := a.admin.ListUsers(r.Context(), orgID)
		if err != nil {
			writeError(w, errorStatus(err, auth.ErrNotFound, auth.ErrInvalidInput, auth.ErrConflict), "failed to list users")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
	default:
		methodNotAllowed(w, http.MethodPost, http.MethodGet)
	}
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.ensurePermission(w, r, auth.PermRBACManage)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		role, err := a.admin.CreateRole(r.Context(), req.Name, req.Description)
		if err != nil {
			writeError(w, errorStatus(err, auth.ErrNotFound, auth.ErrInvalidInput, auth.ErrConflict), err.Error())
			return
		}
		_ = a.recorder.Record(r.Context(), principal, "role.create", "role", role.ID, map[string]string{"name": role.Name})
		writeJSON(w, http.StatusCreated, role)
	case http.MethodGet:
		roles, err := a.admin.ListRoles(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list roles")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
	default:
		methodNotAllowed(w, http.MethodPost, http.MethodGet)
	}
}

// handleRoleResource dispatches /v1/roles/{id}/permissions.
func (a *API) handleRoleResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/roles/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "permissions" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w, http.MethodPut)
		return
	}
	principal, ok := a.ensurePermission(w, r, auth.PermRBACManage)
	if !ok {
		return
	}
	roleID := parts[0]
	var req struct {
		Permissions []string `json:"permissions"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.admin.SetRolePermissions(r.Context(), roleID, req.Permissions); err != nil {
		writeError(w, errorStatus(err, auth.ErrNotFound, auth.ErrInvalidInput, auth.ErrConflict), err.Error())
		return
	}
	_ = a.recorder.Record(r.Context(), principal, "role.set_permissions", "role", roleID, map[string]string{
		"permissions": strings.Join(req.Permissions, ","),
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}

// handleUserResource dispatches /v1/users/{id}/role.
func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "role" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w, http.MethodPut)
		return
	}
	principal, ok := a.ensurePermission(w, r, auth.PermRBACManage)
	if !ok {
		return
	}
	userID := parts[0]
	var req struct {
		RoleID string `json:"role_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.admin.AssignRole(r.Context(), userID, req.RoleID)
	if err != nil {
		writeError(w, errorStatus(err, auth.ErrNotFound, auth.ErrInvalidInput, auth.ErrConflict), err.Error())
		return
	}
	_ = a.recorder.Record(r.Context(), principal, "user.assign_role", "user", userID, map[string]string{
		"role_id": req.RoleID,
	})
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if _, ok := a.ensurePermission(w, r, auth.PermRBACManage); !ok {
		return
	}
	perms, err := a.admin.ListPermissions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list permissions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"permissions": perms})
}
