package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"curamed.org/internal/audit"
	"curamed.org/internal/auth"
	"curamed.org/internal/clinical"
	"curamed.org/internal/obs"
)

const maxBodyBytes = 1 << 20

// ReadyProbe reports readiness, pinging the database when one is attached.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps carries the wired collaborators for the HTTP layer.
type Deps struct {
	Resolver *auth.Resolver
	Engine   *auth.Engine
	Guard    auth.ScopeGuard
	Auth     *auth.Service
	Admin    *auth.AdminService
	Recorder *audit.Recorder
	Patients clinical.Store

	ReadyProbe    ReadyProbe
	Version       string
	SecureCookies bool
}

// API is the HTTP layer.
type API struct {
	mux *http.ServeMux

	resolver *auth.Resolver
	engine   *auth.Engine
	guard    auth.ScopeGuard
	auth     *auth.Service
	admin    *auth.AdminService
	recorder *audit.Recorder
	patients clinical.Store

	readyProbe    ReadyProbe
	version       string
	secureCookies bool
}

// New builds the route table.
func New(d Deps) *API {
	a := &API{
		mux:           http.NewServeMux(),
		resolver:      d.Resolver,
		engine:        d.Engine,
		guard:         d.Guard,
		auth:          d.Auth,
		admin:         d.Admin,
		recorder:      d.Recorder,
		patients:      d.Patients,
		readyProbe:    d.ReadyProbe,
		version:       d.Version,
		secureCookies: d.SecureCookies,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/change-password", a.handleChangePassword)
	a.mux.HandleFunc("/v1/auth/switch-organization", a.handleSwitchOrganization)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)

	a.mux.HandleFunc("/v1/organizations", a.handleOrganizations)
	a.mux.HandleFunc("/v1/organizations/", a.handleOrganizationScoped)
	a.mux.HandleFunc("/v1/roles", a.handleRoles)
	a.mux.HandleFunc("/v1/roles/", a.handleRoleResource)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)
	a.mux.HandleFunc("/v1/permissions", a.handlePermissions)

	a.mux.HandleFunc("/v1/patients/", a.handlePatientResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, maxBodyBytes)
	h = RateLimit(h, 20, 10)
	h = SecurityHeaders(h)
	h = Logging(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "curamed-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "curamed-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
