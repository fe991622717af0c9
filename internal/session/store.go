// Package session holds server-side login sessions keyed by opaque ids.
//
// The idle-timeout contract is deliberate: a lookup first checks whether the
// session has been idle past the timeout and destroys it before any activity
// refresh. Refreshing first would reset the very clock the check evaluates,
// making sessions unkillable.
package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means no session exists for the id.
	ErrNotFound = errors.New("session: not found")
	// ErrExpired means the idle timeout was exceeded; the session is destroyed.
	ErrExpired = errors.New("session: expired")
)

// DefaultIdleTimeout applies when no timeout is configured.
const DefaultIdleTimeout = 24 * time.Hour

// Snapshot is the user view embedded in a session at login time.
type Snapshot struct {
	UserID                string `json:"user_id"`
	Username              string `json:"username"`
	Role                  string `json:"role"`
	RoleID                string `json:"role_id,omitempty"`
	OrganizationID        string `json:"organization_id,omitempty"`
	CurrentOrganizationID string `json:"current_organization_id,omitempty"`
}

// Session is an ephemeral server-side record.
type Session struct {
	ID           string
	User         Snapshot
	LastActivity time.Time
}

// Store is the session persistence contract. Touch must perform the
// check-timeout-then-refresh sequence atomically per session id.
type Store interface {
	Create(ctx context.Context, user Snapshot) (string, error)
	Get(ctx context.Context, id string) (Session, error)
	Touch(ctx context.Context, id string) (Session, error)
	Destroy(ctx context.Context, id string) error
	SwitchOrganization(ctx context.Context, id, orgID string) error
}
