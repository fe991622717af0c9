package auth

import (
	"errors"
	"net/http"
	"strings"

	"curamed.org/internal/session"
)

// SessionCookieName is the opaque session handle set at login.
const SessionCookieName = "curamed_session"

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// Resolver merges the session store and the token codec into one normalized
// Principal per request. Sessions take precedence over bearer tokens; when
// both are present the session wins silently.
type Resolver struct {
	sessions session.Store
	codec    *TokenCodec
}

// NewResolver constructs an identity resolver.
func NewResolver(sessions session.Store, codec *TokenCodec) (*Resolver, error) {
	if sessions == nil {
		return nil, errors.New("auth: session store is required")
	}
	if codec == nil {
		return nil, errors.New("auth: token codec is required")
	}
	return &Resolver{sessions: sessions, codec: codec}, nil
}

// Resolve authenticates the request. Resolution order: an existing session is
// touched (idle check before activity refresh, an expired session is terminal);
// otherwise a bearer token is verified and the principal is built from its
// claims with no activity semantics; otherwise ErrUnauthenticated.
func (r *Resolver) Resolve(req *http.Request) (Principal, error) {
	if cookie, err := req.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		sess, err := r.sessions.Touch(req.Context(), cookie.Value)
		switch {
		case err == nil:
			return principalFromSnapshot(sess.User), nil
		case errors.Is(err, session.ErrExpired):
			return Principal{}, ErrSessionExpired
		case errors.Is(err, session.ErrNotFound):
			// Stale cookie; a bearer token may still authenticate the caller.
		default:
			return Principal{}, err
		}
	}

	token, ok := bearerToken(req)
	if !ok {
		return Principal{}, ErrUnauthenticated
	}
	claims, err := r.codec.Verify(token)
	if err != nil {
		return Principal{}, err
	}
	return principalFromClaims(claims), nil
}

// ResolveOptional never errors; endpoints that merely behave differently for
// anonymous callers use it.
func (r *Resolver) ResolveOptional(req *http.Request) (Principal, bool) {
	p, err := r.Resolve(req)
	if err != nil {
		return Principal{}, false
	}
	return p, true
}

func principalFromSnapshot(s session.Snapshot) Principal {
	p := Principal{
		ID:                    s.UserID,
		Username:              s.Username,
		Role:                  s.Role,
		RoleID:                s.RoleID,
		OrganizationID:        s.OrganizationID,
		CurrentOrganizationID: s.CurrentOrganizationID,
	}
	if p.CurrentOrganizationID == "" {
		p.CurrentOrganizationID = p.OrganizationID
	}
	return p
}

func principalFromClaims(c Claims) Principal {
	return Principal{
		ID:                    c.Subject,
		Username:              c.Username,
		Role:                  c.Role,
		RoleID:                c.RoleID,
		OrganizationID:        c.OrganizationID,
		CurrentOrganizationID: c.OrganizationID,
	}
}

func bearerToken(req *http.Request) (string, bool) {
	header := strings.TrimSpace(req.Header.Get(authHeader))
	if header == "" {
		return "", false
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}
