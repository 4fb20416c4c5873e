// Package tenant defines the identity registry entities and the tenant
// context that scopes every storage and retrieval operation.
//
// An Organization is the isolation boundary for all data. Users belong to
// exactly one organization (nullable only during bootstrap) and own at most
// one ProfileSettings row. Every other entity in the system references its
// organization, and where relevant its user, by foreign key.
package tenant

import "time"

// Organization is the tenant root. Organizations are never hard-deleted;
// removal is a soft-delete that hides the tenant and everything under it.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsDeleted bool      `json:"is_deleted"`
}

// UserStatus enumerates the lifecycle states of a user.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User belongs to exactly one organization. OrganizationID is empty only
// while an organization is being bootstrapped.
type User struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id,omitempty"`
	Name           string     `json:"name"`
	Status         UserStatus `json:"status"`
	Timezone       string     `json:"timezone,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	IsDeleted      bool       `json:"is_deleted"`
}

// ProfileSettings is the singleton-per-user profile row. It is not a
// memory record: it carries the model identifiers and persona used by the
// assistant plus free-form UI and custom settings maps.
type ProfileSettings struct {
	UserID         string         `json:"user_id"`
	ChatModel      string         `json:"chat_model,omitempty"`
	MemoryModel    string         `json:"memory_model,omitempty"`
	Timezone       string         `json:"timezone,omitempty"`
	Persona        string         `json:"persona,omitempty"`
	UISettings     map[string]any `json:"ui_settings,omitempty"`
	CustomSettings map[string]any `json:"custom_settings,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
