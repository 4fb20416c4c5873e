package sqlite

// schemaDDL is the canonical table set. Every statement carries IF NOT
// EXISTS guards so re-applying the schema is a no-op.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS organizations (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	is_deleted  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS users (
	id              TEXT PRIMARY KEY,
	organization_id TEXT REFERENCES organizations(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'active',
	timezone        TEXT,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL,
	is_deleted      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_users_org ON users(organization_id);

CREATE TABLE IF NOT EXISTS user_settings (
	user_id         TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	chat_model      TEXT,
	memory_model    TEXT,
	timezone        TEXT,
	persona         TEXT,
	ui_settings     TEXT,
	custom_settings TEXT,
	updated_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS memory_records (
	id               TEXT PRIMARY KEY,
	organization_id  TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	variant          TEXT NOT NULL,
	payload          TEXT NOT NULL,
	tree_path        TEXT NOT NULL DEFAULT '[]',
	revisions        TEXT NOT NULL DEFAULT '[]',
	metadata         TEXT,
	embeddings       TEXT,
	embedding_config TEXT,
	search_text      TEXT,
	idempotency_key  TEXT,
	is_deleted       INTEGER NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_tenant
	ON memory_records(organization_id, user_id, variant);
CREATE INDEX IF NOT EXISTS idx_records_updated
	ON memory_records(updated_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS idx_records_idem
	ON memory_records(organization_id, user_id, idempotency_key)
	WHERE idempotency_key IS NOT NULL;

CREATE VIRTUAL TABLE IF NOT EXISTS memory_fts USING fts5(
	search_text,
	content=memory_records,
	content_rowid=rowid
);

CREATE TRIGGER IF NOT EXISTS memory_fts_ai AFTER INSERT ON memory_records BEGIN
	INSERT INTO memory_fts(rowid, search_text)
	VALUES (new.rowid, coalesce(new.search_text, ''));
END;
CREATE TRIGGER IF NOT EXISTS memory_fts_ad AFTER DELETE ON memory_records BEGIN
	INSERT INTO memory_fts(memory_fts, rowid, search_text)
	VALUES ('delete', old.rowid, coalesce(old.search_text, ''));
END;
CREATE TRIGGER IF NOT EXISTS memory_fts_au AFTER UPDATE ON memory_records BEGIN
	INSERT INTO memory_fts(memory_fts, rowid, search_text)
	VALUES ('delete', old.rowid, coalesce(old.search_text, ''));
	INSERT INTO memory_fts(rowid, search_text)
	VALUES (new.rowid, coalesce(new.search_text, ''));
END;

CREATE TABLE IF NOT EXISTS agents (
	id               TEXT PRIMARY KEY,
	organization_id  TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	type             TEXT NOT NULL,
	name             TEXT NOT NULL,
	system_prompt    TEXT,
	tool_bindings    TEXT,
	mcp_bindings     TEXT,
	message_ids      TEXT,
	llm_config       TEXT,
	embedding_config TEXT,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL,
	is_deleted       INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_agents_org ON agents(organization_id);

CREATE TABLE IF NOT EXISTS blocks (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	label           TEXT NOT NULL,
	value           TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS agent_blocks (
	agent_id    TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
	block_id    TEXT NOT NULL REFERENCES blocks(id) ON DELETE CASCADE,
	block_label TEXT NOT NULL,
	PRIMARY KEY (agent_id, block_id, block_label)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_agent_blocks_label
	ON agent_blocks(agent_id, block_label);

CREATE TABLE IF NOT EXISTS steps (
	id                TEXT PRIMARY KEY,
	organization_id   TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	agent_id          TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
	provider          TEXT,
	model             TEXT,
	prompt_tokens     INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens      INTEGER NOT NULL DEFAULT 0,
	created_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	agent_id        TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
	user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	step_id         TEXT REFERENCES steps(id),
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_agent ON messages(agent_id, created_at);

CREATE TABLE IF NOT EXISTS tools (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	description     TEXT,
	schema          TEXT,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL,
	UNIQUE (name, organization_id)
);

CREATE TABLE IF NOT EXISTS sandbox_configs (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	type            TEXT NOT NULL,
	config          TEXT,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL,
	UNIQUE (type, organization_id)
);

CREATE TABLE IF NOT EXISTS env_vars (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE (key, owner_id)
);

CREATE TABLE IF NOT EXISTS files (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	user_id         TEXT REFERENCES users(id) ON DELETE CASCADE,
	local_path      TEXT,
	cloud_url       TEXT,
	type            TEXT,
	size            INTEGER NOT NULL DEFAULT 0,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL,
	is_deleted      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS cloud_file_mapping (
	id            TEXT PRIMARY KEY,
	cloud_file_id TEXT NOT NULL,
	local_file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	status        TEXT NOT NULL DEFAULT 'pending',
	synced_at     TEXT,
	active        INTEGER NOT NULL DEFAULT 1
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_cloud_mapping_active
	ON cloud_file_mapping(local_file_id)
	WHERE active = 1;
`
