// Package agent defines the configured reasoning units of the assistant
// and their conversational audit trail: agents, shared blocks, messages
// and steps, plus the sandbox descriptors for tool execution.
package agent

import "time"

// Agent is a configured reasoning unit scoped to one organization.
type Agent struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	Type           string         `json:"type"`
	Name           string         `json:"name"`
	SystemPrompt   string         `json:"system_prompt,omitempty"`
	ToolBindings   []string       `json:"tool_bindings,omitempty"`
	MCPBindings    []string       `json:"mcp_bindings,omitempty"`
	MessageIDs     []string       `json:"message_ids,omitempty"`
	LLMConfig      map[string]any `json:"llm_config,omitempty"`
	EmbedConfig    map[string]any `json:"embedding_config,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	IsDeleted      bool           `json:"is_deleted"`
}

// Block is a reusable labeled text fragment shared across agents via a
// many-to-many binding that carries the denormalized label. The label is
// unique per (agent, label).
type Block struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Label          string    `json:"label"`
	Value          string    `json:"value"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BlockBinding attaches a block to an agent under a label. The composite
// key is (agent_id, block_id, block_label).
type BlockBinding struct {
	AgentID string `json:"agent_id"`
	BlockID string `json:"block_id"`
	Label   string `json:"block_label"`
}

// Message is a conversational turn belonging to an agent and a user, and
// optionally to the step that produced it.
type Message struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	AgentID        string    `json:"agent_id"`
	UserID         string    `json:"user_id"`
	StepID         string    `json:"step_id,omitempty"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Step is the audit trail of a single LLM invocation.
type Step struct {
	ID               string    `json:"id"`
	OrganizationID   string    `json:"organization_id"`
	AgentID          string    `json:"agent_id"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	CreatedAt        time.Time `json:"created_at"`
}
