package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mnemohq/mnemo/pkg/agent"
	"github.com/mnemohq/mnemo/pkg/store"
	"github.com/mnemohq/mnemo/pkg/tenant"
)

// CreateAgent implements store.AgentStore.
func (d *Driver) CreateAgent(ctx context.Context, tc tenant.Context, a *agent.Agent) (*agent.Agent, error) {
	if err := d.requireTenant(ctx, tc, false); err != nil {
		return nil, err
	}
	if a == nil || a.Type == "" || a.Name == "" {
		return nil, fmt.Errorf("agent type and name are required")
	}

	stored := *a
	stored.ID = d.newID()
	stored.OrganizationID = tc.OrganizationID
	stored.CreatedAt = nowUTC()
	stored.UpdatedAt = stored.CreatedAt

	tools, _ := json.Marshal(stored.ToolBindings)
	mcps, _ := json.Marshal(stored.MCPBindings)
	msgIDs, _ := json.Marshal(stored.MessageIDs)
	llmCfg, _ := json.Marshal(stored.LLMConfig)
	embCfg, _ := json.Marshal(stored.EmbedConfig)

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO agents
			(id, organization_id, type, name, system_prompt, tool_bindings,
			 mcp_bindings, message_ids, llm_config, embedding_config,
			 created_at, updated_at, is_deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		stored.ID, stored.OrganizationID, stored.Type, stored.Name,
		stored.SystemPrompt, string(tools), string(mcps), string(msgIDs),
		string(llmCfg), string(embCfg),
		formatTime(stored.CreatedAt), formatTime(stored.UpdatedAt),
	)
	if err != nil {
		return nil, wrapConstraint(err, "agents")
	}

	return &stored, nil
}

// GetAgent implements store.AgentStore.
func (d *Driver) GetAgent(ctx context.Context, tc tenant.Context, id string) (*agent.Agent, error) {
	if err := d.requireTenant(ctx, tc, false); err != nil {
		return nil, err
	}

	a := &agent.Agent{}
	var systemPrompt sql.NullString
	var tools, mcps, msgIDs, llmCfg, embCfg sql.NullString
	var createdAt, updatedAt string

	err := d.db.QueryRowContext(ctx,
		`SELECT id, organization_id, type, name, system_prompt, tool_bindings,
			mcp_bindings, message_ids, llm_config, embedding_config,
			created_at, updated_at, is_deleted
		 FROM agents
		 WHERE id = ? AND organization_id = ? AND is_deleted = 0`,
		id, tc.OrganizationID,
	).Scan(&a.ID, &a.OrganizationID, &a.Type, &a.Name, &systemPrompt,
		&tools, &mcps, &msgIDs, &llmCfg, &embCfg,
		&createdAt, &updatedAt, &a.IsDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		d.auditIfCrossTenant(ctx, d.db, tc, "agents", "agent", id)
		return nil, store.NotFoundError{Kind: "agent", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying agent: %w", err)
	}

	a.SystemPrompt = systemPrompt.String
	decodeJSON(tools, &a.ToolBindings)
	decodeJSON(mcps, &a.MCPBindings)
	decodeJSON(msgIDs, &a.MessageIDs)
	decodeJSON(llmCfg, &a.LLMConfig)
	decodeJSON(embCfg, &a.EmbedConfig)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)

	return a, nil
}

// CreateBlock implements store.AgentStore.
func (d *Driver) CreateBlock(ctx context.Context, tc tenant.Context, b *agent.Block) (*agent.Block, error) {
	if err := d.requireTenant(ctx, tc, false); err != nil {
		return nil, err
	}
	if b == nil || b.Label == "" {
		return nil, fmt.Errorf("block label is required")
	}

	stored := *b
	stored.ID = d.newID()
	stored.OrganizationID = tc.OrganizationID
	stored.CreatedAt = nowUTC()
	stored.UpdatedAt = stored.CreatedAt

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO blocks (id, organization_id, label, value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.OrganizationID, stored.Label, stored.Value,
		formatTime(stored.CreatedAt), formatTime(stored.UpdatedAt),
	)
	if err != nil {
		return nil, wrapConstraint(err, "blocks")
	}

	return &stored, nil
}

// BindBlock implements store.AgentStore. The (agent, label) pair is
// unique; rebinding the same label to another block is a constraint
// violation surfaced to the caller.
func (d *Driver) BindBlock(ctx context.Context, tc tenant.Context, binding agent.BlockBinding) error {
	if err := d.requireTenant(ctx, tc, false); err != nil {
		return err
	}

	// Both ends must be visible within the tenant before binding.
	if _, err := d.GetAgent(ctx, tc, binding.AgentID); err != nil {
		return err
	}

	var exists bool
	err := d.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM blocks WHERE id = ? AND organization_id = ?)`,
		binding.BlockID, tc.OrganizationID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("resolving block: %w", err)
	}
	if !exists {
		d.auditIfCrossTenant(ctx, d.db, tc, "blocks", "block", binding.BlockID)
		return store.NotFoundError{Kind: "block", ID: binding.BlockID}
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO agent_blocks (agent_id, block_id, block_label) VALUES (?, ?, ?)`,
		binding.AgentID, binding.BlockID, binding.Label,
	)
	return wrapConstraint(err, "agent_blocks.agent_id_block_label")
}

// ListAgentBlocks implements store.AgentStore.
func (d *Driver) ListAgentBlocks(ctx context.Context, tc tenant.Context, agentID string) ([]*agent.Block, error) {
	if err := d.requireTenant(ctx, tc, false); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT b.id, b.organization_id, ab.block_label, b.value, b.created_at, b.updated_at
		 FROM agent_blocks ab
		 INNER JOIN blocks b ON b.id = ab.block_id
		 INNER JOIN agents a ON a.id = ab.agent_id
		 WHERE ab.agent_id = ? AND a.organization_id = ? AND b.organization_id = ?
		 ORDER BY ab.block_label`,
		agentID, tc.OrganizationID, tc.OrganizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing agent blocks: %w", err)
	}
	defer rows.Close()

	var out []*agent.Block
	for rows.Next() {
		b := &agent.Block{}
		var createdAt, updatedAt string
		if err := rows.Scan(&b.ID, &b.OrganizationID, &b.Label, &b.Value, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		b.CreatedAt = parseTime(createdAt)
		b.UpdatedAt = parseTime(updatedAt)
		out = append(out, b)
	}

	return out, rows.Err()
}

// AppendMessage implements store.AgentStore.
func (d *Driver) AppendMessage(ctx context.Context, tc tenant.Context, m *agent.Message) (*agent.Message, error) {
	if err := d.requireTenant(ctx, tc, true); err != nil {
		return nil, err
	}
	if m == nil || m.AgentID == "" || m.Role == "" {
		return nil, fmt.Errorf("message agent and role are required")
	}

	stored := *m
	stored.ID = d.newID()
	stored.OrganizationID = tc.OrganizationID
	stored.UserID = tc.UserID
	stored.CreatedAt = nowUTC()

	var stepID any
	if stored.StepID != "" {
		stepID = stored.StepID
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO messages (id, organization_id, agent_id, user_id, step_id, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.OrganizationID, stored.AgentID, stored.UserID,
		stepID, stored.Role, stored.Content, formatTime(stored.CreatedAt),
	)
	if err != nil {
		return nil, wrapConstraint(err, "messages")
	}

	return &stored, nil
}

// ListMessages implements store.AgentStore.
func (d *Driver) ListMessages(ctx context.Context, tc tenant.Context, agentID string, limit int) ([]*agent.Message, error) {
	if err := d.requireTenant(ctx, tc, false); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 100
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, organization_id, agent_id, user_id, step_id, role, content, created_at
		 FROM messages
		 WHERE agent_id = ? AND organization_id = ?
		 ORDER BY created_at
		 LIMIT ?`,
		agentID, tc.OrganizationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var out []*agent.Message
	for rows.Next() {
		m := &agent.Message{}
		var stepID sql.NullString
		var createdAt string
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.AgentID, &m.UserID,
			&stepID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		m.StepID = stepID.String
		m.CreatedAt = parseTime(createdAt)
		out = append(out, m)
	}

	return out, rows.Err()
}

// CreateStep implements store.AgentStore.
func (d *Driver) CreateStep(ctx context.Context, tc tenant.Context, s *agent.Step) (*agent.Step, error) {
	if err := d.requireTenant(ctx, tc, false); err != nil {
		return nil, err
	}
	if s == nil || s.AgentID == "" {
		return nil, fmt.Errorf("step agent is required")
	}

	stored := *s
	stored.ID = d.newID()
	stored.OrganizationID = tc.OrganizationID
	stored.CreatedAt = nowUTC()

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO steps
			(id, organization_id, agent_id, provider, model,
			 prompt_tokens, completion_tokens, total_tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.OrganizationID, stored.AgentID, stored.Provider,
		stored.Model, stored.PromptTokens, stored.CompletionTokens,
		stored.TotalTokens, formatTime(stored.CreatedAt),
	)
	if err != nil {
		return nil, wrapConstraint(err, "steps")
	}

	return &stored, nil
}

// RegisterTool implements store.AgentStore. Tool names are unique per
// organization.
func (d *Driver) RegisterTool(ctx context.Context, tc tenant.Context, t *agent.Tool) (*agent.Tool, error) {
	if err := d.requireTenant(ctx, tc, false); err != nil {
		return nil, err
	}
	if t == nil || t.Name == "" {
		return nil, fmt.Errorf("tool name is required")
	}

	stored := *t
	stored.ID = d.newID()
	stored.OrganizationID = tc.OrganizationID
	stored.CreatedAt = nowUTC()
	stored.UpdatedAt = stored.CreatedAt

	schema, _ := json.Marshal(stored.Schema)

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO tools (id, organization_id, name, description, schema, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.OrganizationID, stored.Name, stored.Description,
		string(schema), formatTime(stored.CreatedAt), formatTime(stored.UpdatedAt),
	)
	if err != nil {
		return nil, wrapConstraint(err, "tools.name_organization_id")
	}

	return &stored, nil
}

// PutSandboxConfig implements store.AgentStore. Configs are unique per
// (type, organization); re-putting the same type updates it.
func (d *Driver) PutSandboxConfig(ctx context.Context, tc tenant.Context, sc *agent.SandboxConfig) (*agent.SandboxConfig, error) {
	if err := d.requireTenant(ctx, tc, false); err != nil {
		return nil, err
	}
	if sc == nil || sc.Type == "" {
		return nil, fmt.Errorf("sandbox config type is required")
	}

	stored := *sc
	stored.OrganizationID = tc.OrganizationID
	stored.UpdatedAt = nowUTC()
	if stored.ID == "" {
		stored.ID = d.newID()
		stored.CreatedAt = stored.UpdatedAt
	}

	cfg, _ := json.Marshal(stored.Config)

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO sandbox_configs (id, organization_id, type, config, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (type, organization_id) DO UPDATE SET
			config = excluded.config,
			updated_at = excluded.updated_at`,
		stored.ID, stored.OrganizationID, stored.Type, string(cfg),
		formatTime(stored.CreatedAt), formatTime(stored.UpdatedAt),
	)
	if err != nil {
		return nil, wrapConstraint(err, "sandbox_configs.type_organization_id")
	}

	return &stored, nil
}

// PutEnvVar implements store.AgentStore. Keys are unique per owner
// (agent or sandbox config); re-putting a key updates its value.
func (d *Driver) PutEnvVar(ctx context.Context, tc tenant.Context, v *agent.EnvVar) (*agent.EnvVar, error) {
	if err := d.requireTenant(ctx, tc, false); err != nil {
		return nil, err
	}
	if v == nil || v.OwnerID == "" || v.Key == "" {
		return nil, fmt.Errorf("env var owner and key are required")
	}

	stored := *v
	stored.UpdatedAt = nowUTC()
	if stored.ID == "" {
		stored.ID = d.newID()
		stored.CreatedAt = stored.UpdatedAt
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO env_vars (id, owner_id, key, value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (key, owner_id) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		stored.ID, stored.OwnerID, stored.Key, stored.Value,
		formatTime(stored.CreatedAt), formatTime(stored.UpdatedAt),
	)
	if err != nil {
		return nil, wrapConstraint(err, "env_vars.key_owner_id")
	}

	return &stored, nil
}

// decodeJSON is a best-effort decode for optional JSON columns.
func decodeJSON[T any](col sql.NullString, dst *T) {
	if !col.Valid || col.String == "" || col.String == "null" {
		return
	}
	_ = json.Unmarshal([]byte(col.String), dst)
}
