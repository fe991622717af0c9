package auth

import "time"

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// Organization is the tenant boundary isolating one clinic's data from another's.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is an identity record. OrganizationID is empty for platform-level
// accounts. RoleID is empty when no role has been assigned yet; LegacyRole
// carries the pre-RBAC role name kept for migration.
type User struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id,omitempty"`
	Username       string    `json:"username"`
	Email          string    `json:"email,omitempty"`
	PasswordHash   string    `json:"-"`
	LegacyRole     string    `json:"role"`
	RoleID         string    `json:"role_id,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Role groups permissions. Names are unique across the platform.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission is a fine-grained capability from the seeded catalog.
type Permission struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RolePermission links roles to permissions; pairs are unique.
type RolePermission struct {
	RoleID       string `json:"role_id"`
	PermissionID string `json:"permission_id"`
}

// AuditEntry is an append-only record of a mutating action.
type AuditEntry struct {
	ID             string            `json:"id"`
	OccurredAt     time.Time         `json:"occurred_at"`
	ActorID        string            `json:"actor_id"`
	Action         string            `json:"action"`
	Entity         string            `json:"entity"`
	EntityID       string            `json:"entity_id,omitempty"`
	OrganizationID string            `json:"organization_id,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// UserUpdate mutates selected user fields; nil means leave unchanged.
type UserUpdate struct {
	Email  *string
	Status *string
	RoleID *string
}

// RoleUpdate mutates selected role fields; nil means leave unchanged.
type RoleUpdate struct {
	Name        *string
	Description *string
}

// UserSummary is the sanitized view returned to clients after login.
type UserSummary struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Role           string `json:"role"`
	OrganizationID string `json:"organization_id,omitempty"`
}
