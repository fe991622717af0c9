package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"curamed.org/internal/auth"
	"curamed.org/internal/obs"
)

var publicPaths = []string{
	"/",
	"/healthz",
	"/readyz",
	"/metrics",
	"/v1/info",
	"/v1/auth/login",
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// withAuth resolves the caller's identity once per request and attaches the
// principal to the context. Authentication failures are terminal: no handler
// ever runs with a partial principal.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := a.resolver.Resolve(r)
		if err != nil {
			a.rejectUnauthenticated(w, r, err)
			return
		}
		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) rejectUnauthenticated(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="curamed"`)
	switch {
	case errors.Is(err, auth.ErrSessionExpired):
		obs.AuthFailures.WithLabelValues("session_expired").Inc()
		a.clearSessionCookie(w)
		writeError(w, http.StatusUnauthorized, "session expired, please log in again")
	case errors.Is(err, auth.ErrTokenExpired):
		obs.AuthFailures.WithLabelValues("token_expired").Inc()
		writeError(w, http.StatusUnauthorized, "token expired, please log in again")
	case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrUnauthenticated):
		// One generic message: do not reveal which check failed.
		obs.AuthFailures.WithLabelValues("unauthenticated").Inc()
		writeError(w, http.StatusUnauthorized, "authentication required")
	default:
		obs.AuthFailures.WithLabelValues("internal").Inc()
		writeError(w, http.StatusInternalServerError, "authentication error")
	}
}

// requirePrincipal fetches the resolved principal or fails the request.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return auth.Principal{}, false
	}
	return principal, true
}

// ensureRole fails the request with 403 naming the required role.
func (a *API) ensureRole(w http.ResponseWriter, r *http.Request, role string) (auth.Principal, bool) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return auth.Principal{}, false
	}
	if !a.engine.RequireRole(principal, role) {
		writeError(w, http.StatusForbidden, "role required: "+role)
		return auth.Principal{}, false
	}
	return principal, true
}

// ensureAnyRole fails the request with 403 naming the accepted roles.
func (a *API) ensureAnyRole(w http.ResponseWriter, r *http.Request, roles ...string) (auth.Principal, bool) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return auth.Principal{}, false
	}
	if !a.engine.RequireAnyRole(principal, roles) {
		writeError(w, http.StatusForbidden, "one of roles required: "+strings.Join(roles, ", "))
		return auth.Principal{}, false
	}
	return principal, true
}

// ensurePermission fails the request with 403 naming the missing permission.
// Identity is already established at this point, so being specific is fine.
func (a *API) ensurePermission(w http.ResponseWriter, r *http.Request, key string) (auth.Principal, bool) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return auth.Principal{}, false
	}
	allowed, err := a.engine.HasPermission(r.Context(), principal, key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "permission check failed")
		return auth.Principal{}, false
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "permission required: "+key)
		return auth.Principal{}, false
	}
	return principal, true
}
