// Package file defines references to externally stored content and the
// two-way mapping that mirrors local files to cloud storage.
package file

import "time"

// File references externally stored content. The bytes themselves live on
// disk or in cloud storage; the store only tracks the reference.
type File struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id,omitempty"`
	LocalPath      string    `json:"local_path,omitempty"`
	CloudURL       string    `json:"cloud_url,omitempty"`
	Type           string    `json:"type,omitempty"`
	Size           int64     `json:"size,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	IsDeleted      bool      `json:"is_deleted"`
}

// SyncStatus enumerates cloud mapping sync states.
type SyncStatus string

const (
	SyncPending  SyncStatus = "pending"
	SyncComplete SyncStatus = "complete"
	SyncFailed   SyncStatus = "failed"
)

// CloudMapping links a cloud file id to a local file id with its sync
// state. At most one active mapping exists per local file.
type CloudMapping struct {
	ID          string     `json:"id"`
	CloudFileID string     `json:"cloud_file_id"`
	LocalFileID string     `json:"local_file_id"`
	Status      SyncStatus `json:"status"`
	SyncedAt    time.Time  `json:"synced_at,omitempty"`
	Active      bool       `json:"active"`
}
