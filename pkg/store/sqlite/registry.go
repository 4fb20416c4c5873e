package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mnemohq/mnemo/pkg/store"
	"github.com/mnemohq/mnemo/pkg/tenant"
)

// CreateOrganization implements store.RegistryStore.
func (d *Driver) CreateOrganization(ctx context.Context, name string) (*tenant.Organization, error) {
	if name == "" {
		return nil, fmt.Errorf("organization name is required")
	}

	org := &tenant.Organization{
		ID:        d.newID(),
		Name:      name,
		CreatedAt: nowUTC(),
		UpdatedAt: nowUTC(),
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, created_at, updated_at, is_deleted)
		 VALUES (?, ?, ?, ?, 0)`,
		org.ID, org.Name, formatTime(org.CreatedAt), formatTime(org.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting organization: %w", err)
	}

	return org, nil
}

// GetOrganization implements store.RegistryStore.
func (d *Driver) GetOrganization(ctx context.Context, id string) (*tenant.Organization, error) {
	org := &tenant.Organization{}
	var createdAt, updatedAt string

	err := d.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at, is_deleted
		 FROM organizations WHERE id = ?`, id,
	).Scan(&org.ID, &org.Name, &createdAt, &updatedAt, &org.IsDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFoundError{Kind: "organization", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying organization: %w", err)
	}

	org.CreatedAt = parseTime(createdAt)
	org.UpdatedAt = parseTime(updatedAt)
	return org, nil
}

// SoftDeleteOrganization hides the tenant and, by scope, everything under
// it. Organizations are never hard-deleted.
func (d *Driver) SoftDeleteOrganization(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE organizations SET is_deleted = 1, updated_at = ? WHERE id = ?`,
		formatTime(nowUTC()), id,
	)
	if err != nil {
		return fmt.Errorf("soft-deleting organization: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.NotFoundError{Kind: "organization", ID: id}
	}

	return nil
}

// CreateUser implements store.RegistryStore. orgID may be empty during
// bootstrap; the user is attached to an organization later.
func (d *Driver) CreateUser(ctx context.Context, orgID, name, timezone string) (*tenant.User, error) {
	if name == "" {
		return nil, fmt.Errorf("user name is required")
	}

	if orgID != "" {
		if err := d.requireTenant(ctx, tenant.Context{OrganizationID: orgID}, false); err != nil {
			return nil, err
		}
	}

	u := &tenant.User{
		ID:             d.newID(),
		OrganizationID: orgID,
		Name:           name,
		Status:         tenant.UserStatusActive,
		Timezone:       timezone,
		CreatedAt:      nowUTC(),
		UpdatedAt:      nowUTC(),
	}

	var org any
	if orgID != "" {
		org = orgID
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO users (id, organization_id, name, status, timezone, created_at, updated_at, is_deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		u.ID, org, u.Name, string(u.Status), u.Timezone,
		formatTime(u.CreatedAt), formatTime(u.UpdatedAt),
	)
	if err != nil {
		return nil, wrapConstraint(err, "users.organization_id")
	}

	return u, nil
}

// GetUser implements store.RegistryStore. The lookup is scoped by the
// context's organization.
func (d *Driver) GetUser(ctx context.Context, tc tenant.Context) (*tenant.User, error) {
	if !tc.Valid() {
		return nil, tenant.ErrInvalidContext
	}
	if !tc.UserScoped() {
		return nil, tenant.ErrUserScopeRequired
	}

	u := &tenant.User{}
	var orgID sql.NullString
	var timezone sql.NullString
	var createdAt, updatedAt string
	var status string

	err := d.db.QueryRowContext(ctx,
		`SELECT id, organization_id, name, status, timezone, created_at, updated_at, is_deleted
		 FROM users WHERE id = ? AND organization_id = ?`,
		tc.UserID, tc.OrganizationID,
	).Scan(&u.ID, &orgID, &u.Name, &status, &timezone, &createdAt, &updatedAt, &u.IsDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		d.auditIfCrossTenant(ctx, d.db, tc, "users", "user", tc.UserID)
		return nil, store.NotFoundError{Kind: "user", ID: tc.UserID}
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u.OrganizationID = orgID.String
	u.Status = tenant.UserStatus(status)
	u.Timezone = timezone.String
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return u, nil
}

// PutProfileSettings upserts the singleton-per-user settings row.
func (d *Driver) PutProfileSettings(ctx context.Context, tc tenant.Context, settings *tenant.ProfileSettings) error {
	if err := d.requireTenant(ctx, tc, true); err != nil {
		return err
	}
	if settings == nil {
		return fmt.Errorf("nil profile settings")
	}

	ui, err := json.Marshal(settings.UISettings)
	if err != nil {
		return fmt.Errorf("encoding ui settings: %w", err)
	}
	custom, err := json.Marshal(settings.CustomSettings)
	if err != nil {
		return fmt.Errorf("encoding custom settings: %w", err)
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, chat_model, memory_model, timezone, persona, ui_settings, custom_settings, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
			chat_model = excluded.chat_model,
			memory_model = excluded.memory_model,
			timezone = excluded.timezone,
			persona = excluded.persona,
			ui_settings = excluded.ui_settings,
			custom_settings = excluded.custom_settings,
			updated_at = excluded.updated_at`,
		tc.UserID, settings.ChatModel, settings.MemoryModel, settings.Timezone,
		settings.Persona, string(ui), string(custom), formatTime(nowUTC()),
	)
	if err != nil {
		return wrapConstraint(err, "user_settings.user_id")
	}

	return nil
}

// GetProfileSettings implements store.RegistryStore.
func (d *Driver) GetProfileSettings(ctx context.Context, tc tenant.Context) (*tenant.ProfileSettings, error) {
	if err := d.requireTenant(ctx, tc, true); err != nil {
		return nil, err
	}

	s := &tenant.ProfileSettings{UserID: tc.UserID}
	var chatModel, memoryModel, timezone, persona, ui, custom sql.NullString
	var updatedAt string

	err := d.db.QueryRowContext(ctx,
		`SELECT chat_model, memory_model, timezone, persona, ui_settings, custom_settings, updated_at
		 FROM user_settings WHERE user_id = ?`, tc.UserID,
	).Scan(&chatModel, &memoryModel, &timezone, &persona, &ui, &custom, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFoundError{Kind: "profile settings", ID: tc.UserID}
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile settings: %w", err)
	}

	s.ChatModel = chatModel.String
	s.MemoryModel = memoryModel.String
	s.Timezone = timezone.String
	s.Persona = persona.String
	s.UpdatedAt = parseTime(updatedAt)

	// The settings maps are structured, validated JSON; a row that fails
	// to decode is a defect worth surfacing, not silently dropping.
	if ui.Valid && ui.String != "" && ui.String != "null" {
		if err := json.Unmarshal([]byte(ui.String), &s.UISettings); err != nil {
			return nil, fmt.Errorf("decoding ui settings: %w", err)
		}
	}
	if custom.Valid && custom.String != "" && custom.String != "null" {
		if err := json.Unmarshal([]byte(custom.String), &s.CustomSettings); err != nil {
			return nil, fmt.Errorf("decoding custom settings: %w", err)
		}
	}

	return s, nil
}
