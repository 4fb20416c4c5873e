package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mnemohq/mnemo/pkg/file"
	"github.com/mnemohq/mnemo/pkg/store"
	"github.com/mnemohq/mnemo/pkg/tenant"
)

// CreateFile implements store.FileStore.
func (d *Driver) CreateFile(ctx context.Context, tc tenant.Context, f *file.File) (*file.File, error) {
	if err := d.requireTenant(ctx, tc, false); err != nil {
		return nil, err
	}
	if f == nil || (f.LocalPath == "" && f.CloudURL == "") {
		return nil, fmt.Errorf("file needs a local path or a cloud url")
	}

	stored := *f
	stored.ID = d.newID()
	stored.OrganizationID = tc.OrganizationID
	stored.UserID = tc.UserID
	stored.CreatedAt = nowUTC()
	stored.UpdatedAt = stored.CreatedAt

	var userID any
	if stored.UserID != "" {
		userID = stored.UserID
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO files
			(id, organization_id, user_id, local_path, cloud_url, type, size,
			 created_at, updated_at, is_deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		stored.ID, stored.OrganizationID, userID, stored.LocalPath,
		stored.CloudURL, stored.Type, stored.Size,
		formatTime(stored.CreatedAt), formatTime(stored.UpdatedAt),
	)
	if err != nil {
		return nil, wrapConstraint(err, "files")
	}

	return &stored, nil
}

// GetFile implements store.FileStore.
func (d *Driver) GetFile(ctx context.Context, tc tenant.Context, id string) (*file.File, error) {
	if err := d.requireTenant(ctx, tc, false); err != nil {
		return nil, err
	}

	f := &file.File{}
	var userID, localPath, cloudURL, typ sql.NullString
	var createdAt, updatedAt string

	err := d.db.QueryRowContext(ctx,
		`SELECT id, organization_id, user_id, local_path, cloud_url, type, size,
			created_at, updated_at, is_deleted
		 FROM files
		 WHERE id = ? AND organization_id = ? AND is_deleted = 0`,
		id, tc.OrganizationID,
	).Scan(&f.ID, &f.OrganizationID, &userID, &localPath, &cloudURL, &typ,
		&f.Size, &createdAt, &updatedAt, &f.IsDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		d.auditIfCrossTenant(ctx, d.db, tc, "files", "file", id)
		return nil, store.NotFoundError{Kind: "file", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying file: %w", err)
	}

	f.UserID = userID.String
	f.LocalPath = localPath.String
	f.CloudURL = cloudURL.String
	f.Type = typ.String
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)

	return f, nil
}

// MapToCloud implements store.FileStore. Any prior active mapping for the
// local file is deactivated in the same transaction, so the partial unique
// index on (local_file_id) WHERE active holds at all times.
func (d *Driver) MapToCloud(ctx context.Context, tc tenant.Context, m *file.CloudMapping) (*file.CloudMapping, error) {
	if err := d.requireTenant(ctx, tc, false); err != nil {
		return nil, err
	}
	if m == nil || m.CloudFileID == "" || m.LocalFileID == "" {
		return nil, fmt.Errorf("cloud and local file ids are required")
	}

	// The local file must be visible within the tenant.
	if _, err := d.GetFile(ctx, tc, m.LocalFileID); err != nil {
		return nil, err
	}

	stored := *m
	stored.ID = d.newID()
	stored.Active = true
	if stored.Status == "" {
		stored.Status = file.SyncPending
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE cloud_file_mapping SET active = 0 WHERE local_file_id = ? AND active = 1`,
		stored.LocalFileID,
	); err != nil {
		return nil, fmt.Errorf("deactivating prior mapping: %w", err)
	}

	var syncedAt any
	if !stored.SyncedAt.IsZero() {
		syncedAt = formatTime(stored.SyncedAt)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cloud_file_mapping (id, cloud_file_id, local_file_id, status, synced_at, active)
		 VALUES (?, ?, ?, ?, ?, 1)`,
		stored.ID, stored.CloudFileID, stored.LocalFileID, string(stored.Status), syncedAt,
	); err != nil {
		return nil, wrapConstraint(err, "cloud_file_mapping.local_file_id_active")
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing mapping: %w", err)
	}

	return &stored, nil
}

// ActiveMapping implements store.FileStore.
func (d *Driver) ActiveMapping(ctx context.Context, tc tenant.Context, localFileID string) (*file.CloudMapping, error) {
	if err := d.requireTenant(ctx, tc, false); err != nil {
		return nil, err
	}

	// Scope through the file's tenancy; mappings carry no org column.
	if _, err := d.GetFile(ctx, tc, localFileID); err != nil {
		return nil, err
	}

	m := &file.CloudMapping{}
	var status string
	var syncedAt sql.NullString

	err := d.db.QueryRowContext(ctx,
		`SELECT id, cloud_file_id, local_file_id, status, synced_at, active
		 FROM cloud_file_mapping
		 WHERE local_file_id = ? AND active = 1`,
		localFileID,
	).Scan(&m.ID, &m.CloudFileID, &m.LocalFileID, &status, &syncedAt, &m.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFoundError{Kind: "cloud mapping", ID: localFileID}
	}
	if err != nil {
		return nil, fmt.Errorf("querying cloud mapping: %w", err)
	}

	m.Status = file.SyncStatus(status)
	if syncedAt.Valid {
		m.SyncedAt = parseTime(syncedAt.String)
	}

	return m, nil
}
